package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhive/hivecore/hive/ports"
)

// TestRecordBehaviorBulk_UniqueAscendingTimestamps checks bulk completion
// marking produces strictly increasing timestamps in the recent past.
func TestRecordBehaviorBulk_UniqueAscendingTimestamps(t *testing.T) {
	store := newFakeStore()
	s := NewDeviceStore(context.Background(), store, "default", zerolog.Nop())
	defer s.Close()

	before := time.Now().UnixMilli()
	err := s.RecordBehaviorBulk(context.Background(), "d-1", "TNT", []string{"1", "2", "3"})
	require.NoError(t, err)

	require.Len(t, store.behaviors, 3)
	var prev int64
	for i, entry := range store.behaviors {
		assert.Equal(t, "COMPLETED", entry.Action)
		assert.Equal(t, "TNT", entry.ModuleID)
		if i > 0 {
			assert.Greater(t, entry.Timestamp, prev)
		}
		assert.Less(t, entry.Timestamp, before, "timestamps sit in the past")
		prev = entry.Timestamp
	}
}

// TestRecordBehaviorBulk_ContinuesInstanceIDs checks instance ids carry on
// from the device's newest ledger row instead of colliding with it.
func TestRecordBehaviorBulk_ContinuesInstanceIDs(t *testing.T) {
	store := newFakeStore()
	store.behaviors = []ports.BehaviorEntry{{
		DeviceID:   "d-1",
		ModuleID:   "TNT",
		ContentID:  "1",
		ContentDay: "4",
		Action:     "COMPLETED",
		InstanceID: 7,
		Timestamp:  time.Now().UnixMilli() - 5000,
	}}
	s := NewDeviceStore(context.Background(), store, "default", zerolog.Nop())
	defer s.Close()

	err := s.RecordBehaviorBulk(context.Background(), "d-1", "TNT", []string{"2", "3"})
	require.NoError(t, err)

	require.Len(t, store.behaviors, 3)
	assert.Equal(t, int64(8), store.behaviors[1].InstanceID)
	assert.Equal(t, int64(9), store.behaviors[2].InstanceID)
	assert.Equal(t, "4", store.behaviors[1].ContentDay, "content day carries over")
	assert.Greater(t, store.behaviors[1].Timestamp, store.behaviors[0].Timestamp)
}

// TestRecordBehaviorBulk_EmptyIsNoop checks an empty content list writes
// nothing.
func TestRecordBehaviorBulk_EmptyIsNoop(t *testing.T) {
	store := newFakeStore()
	s := NewDeviceStore(context.Background(), store, "default", zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.RecordBehaviorBulk(context.Background(), "d-1", "TNT", nil))
	assert.Empty(t, store.behaviors)
}

// TestBehaviorHistory_NewestFirst checks retrieval order through the
// cache layer.
func TestBehaviorHistory_NewestFirst(t *testing.T) {
	store := newFakeStore()
	s := NewDeviceStore(context.Background(), store, "default", zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.RecordBehaviorBulk(context.Background(), "d-1", "TNT", []string{"1", "2"}))

	history, err := s.BehaviorHistory(context.Background(), "d-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2", history[0].ContentID)
	assert.Equal(t, "1", history[1].ContentID)
}
