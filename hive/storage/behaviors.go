package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openhive/hivecore/hive/ports"
)

const behaviorColumns = `device_id, module_id, content_id, content_day, action, instance_id, timestamp, ended_reason`

func (s *Store) AppendBehaviors(ctx context.Context, entries []ports.BehaviorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin behavior insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO behaviors (`+behaviorColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare behavior insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.DeviceID, e.ModuleID, e.ContentID,
			e.ContentDay, e.Action, e.InstanceID, e.Timestamp, e.EndedReason); err != nil {
			return fmt.Errorf("insert behavior for %s: %w", e.DeviceID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) BehaviorHistory(ctx context.Context, deviceID string) ([]ports.BehaviorEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+behaviorColumns+` FROM behaviors WHERE device_id = ?
		 ORDER BY timestamp DESC`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("load behavior history for %s: %w", deviceID, err)
	}
	defer rows.Close()

	var entries []ports.BehaviorEntry
	for rows.Next() {
		entry, err := scanBehavior(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) LastBehavior(ctx context.Context, deviceID string) (*ports.BehaviorEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+behaviorColumns+` FROM behaviors WHERE device_id = ?
		 ORDER BY timestamp DESC LIMIT 1`, deviceID)

	entry, err := scanBehavior(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last behavior for %s: %w", deviceID, err)
	}
	return &entry, nil
}

func scanBehavior(scan func(...any) error) (ports.BehaviorEntry, error) {
	var e ports.BehaviorEntry
	err := scan(&e.DeviceID, &e.ModuleID, &e.ContentID, &e.ContentDay,
		&e.Action, &e.InstanceID, &e.Timestamp, &e.EndedReason)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("scan behavior: %w", err)
	}
	return e, err
}
