package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/openhive/hivecore/hive/ports"
)

// RecordBehaviorBulk appends one COMPLETED ledger entry per content id.
// All entries get unique timestamps so retrieval order is deterministic;
// future times would be weird, so the sequence starts one second in the
// past and steps forward one millisecond per entry, bumped past the
// device's newest existing row if needed. Instance ids continue from the
// most recent entry. Errors are surfaced: silent loss in progress
// tracking is not acceptable.
func (s *DeviceStore) RecordBehaviorBulk(ctx context.Context, deviceID, moduleID string, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	return s.exec.Do(func() error {
		last, err := s.store.LastBehavior(ctx, deviceID)
		if err != nil {
			return fmt.Errorf("load last behavior for %s: %w", deviceID, err)
		}
		instanceID := int64(1)
		contentDay := "1"
		ts := time.Now().UnixMilli() - 1000
		if last != nil {
			instanceID = last.InstanceID + 1
			contentDay = last.ContentDay
			if ts <= last.Timestamp {
				ts = last.Timestamp + 1
			}
		}
		entries := make([]ports.BehaviorEntry, 0, len(contentIDs))
		for _, cid := range contentIDs {
			entries = append(entries, ports.BehaviorEntry{
				DeviceID:   deviceID,
				ModuleID:   moduleID,
				ContentID:  cid,
				ContentDay: contentDay,
				Action:     "COMPLETED",
				InstanceID: instanceID,
				Timestamp:  ts,
			})
			instanceID++
			ts++
		}
		if err := s.store.AppendBehaviors(ctx, entries); err != nil {
			return fmt.Errorf("append behaviors for %s: %w", deviceID, err)
		}
		return nil
	})
}

// BehaviorHistory returns a device's ledger entries, newest first.
func (s *DeviceStore) BehaviorHistory(ctx context.Context, deviceID string) ([]ports.BehaviorEntry, error) {
	var history []ports.BehaviorEntry
	err := s.exec.Do(func() error {
		var err error
		history, err = s.store.BehaviorHistory(ctx, deviceID)
		return err
	})
	return history, err
}
