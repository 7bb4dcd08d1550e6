package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openhive/hivecore/hive/ports"
)

func (s *Store) ScheduleByName(ctx context.Context, name string) (*ports.Schedule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, doc, source_version FROM schedules WHERE name = ?`, name)

	var (
		sched  ports.Schedule
		docRaw sql.NullString
	)
	err := row.Scan(&sched.Name, &docRaw, &sched.SourceVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule %s: %w", name, err)
	}
	if sched.Doc, err = unmarshalDoc(docRaw); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", name, err)
	}
	return &sched, nil
}

// SaveSchedule upserts a named schedule document. Imports with a source
// version at or below the stored one are skipped, so re-running an import
// never clobbers newer content.
func (s *Store) SaveSchedule(ctx context.Context, sched *ports.Schedule) (bool, error) {
	docRaw, err := marshalDoc(sched.Doc)
	if err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules (name, doc, source_version) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET doc = excluded.doc,
		 source_version = excluded.source_version
		 WHERE excluded.source_version > schedules.source_version`,
		sched.Name, docRaw, sched.SourceVersion)
	if err != nil {
		return false, fmt.Errorf("save schedule %s: %w", sched.Name, err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ListSchedules returns the names of all stored schedules.
func (s *Store) ListSchedules(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM schedules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schedule name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
