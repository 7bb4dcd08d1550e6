package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openhive/hivecore/hive/ports"
)

func (s *Store) GetOrCreatePersistentBlob(ctx context.Context, deviceID string) (ports.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM persistent_blobs WHERE device_id = ?`, deviceID)

	var docRaw sql.NullString
	err := row.Scan(&docRaw)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO persistent_blobs (device_id, doc) VALUES (?, '{}')
			 ON CONFLICT (device_id) DO NOTHING`, deviceID); err != nil {
			return nil, fmt.Errorf("create persistent blob for %s: %w", deviceID, err)
		}
		return ports.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load persistent blob for %s: %w", deviceID, err)
	}

	doc, err := unmarshalDoc(docRaw)
	if err != nil {
		return nil, fmt.Errorf("persistent blob for %s: %w", deviceID, err)
	}
	if doc == nil {
		doc = ports.Document{}
	}
	return doc, nil
}

func (s *Store) SavePersistentBlob(ctx context.Context, deviceID string, data ports.Document) error {
	docRaw, err := marshalDoc(data)
	if err != nil {
		return err
	}
	if !docRaw.Valid {
		docRaw = sql.NullString{String: "{}", Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO persistent_blobs (device_id, doc) VALUES (?, ?)
		 ON CONFLICT (device_id) DO UPDATE SET doc = excluded.doc`,
		deviceID, docRaw.String)
	if err != nil {
		return fmt.Errorf("save persistent blob for %s: %w", deviceID, err)
	}
	return nil
}
