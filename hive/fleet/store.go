// Package fleet manages data for the connected device fleet.
//
// The general design is to keep data for active devices in memory. Records
// are loaded from the durable store when a device connects, flushed and
// evicted when it disconnects, and served through accessors for schedule,
// config and state in between.
package fleet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openhive/hivecore/hive/ports"
	"github.com/openhive/hivecore/hive/schedule"
)

// cacheEntry holds the working set for one connected device. An entry with
// ready == false is a placeholder published while initialization is in
// flight; observers that need a fully-initialized record must check ready
// (or config presence), not mere key presence.
type cacheEntry struct {
	ready    bool
	schedule ports.Document
	config   ports.Document
	state    ports.Document
	persist  ports.Document
	puppet   ports.Document // ephemeral remote-control state, never persisted
}

// VolleyData is the per-turn snapshot of device data handed to a session.
type VolleyData struct {
	Config  ports.Document
	State   ports.Document
	Persist ports.Document
}

// DeviceStore owns the in-memory map of currently-connected devices.
type DeviceStore struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	store   ports.Store
	exec    *serialExec
	log     zerolog.Logger

	defaultScheduleName string
	defaultSchedule     ports.Document
}

// NewDeviceStore builds a store around the durable record store. The
// well-known default schedule is resolved once up front; a hive without
// one is degraded but functional, so that is logged rather than fatal.
func NewDeviceStore(ctx context.Context, store ports.Store, defaultScheduleName string, log zerolog.Logger) *DeviceStore {
	s := &DeviceStore{
		entries:             make(map[string]*cacheEntry),
		store:               store,
		exec:                newSerialExec(),
		log:                 log,
		defaultScheduleName: defaultScheduleName,
		defaultSchedule:     ports.Document{},
	}
	sched, err := store.ScheduleByName(ctx, defaultScheduleName)
	switch {
	case err == nil:
		log.Info().Str("schedule", defaultScheduleName).Msg("using stored schedule as fallback")
		s.defaultSchedule = sched.Doc
	case errors.Is(err, ports.ErrNotFound):
		log.Error().Str("schedule", defaultScheduleName).Msg("missing fallback schedule in store")
	default:
		log.Error().Err(err).Msg("failed to load fallback schedule")
	}
	return s
}

// Close flushes pending durable-store work and stops the executor.
func (s *DeviceStore) Close() {
	s.exec.Close()
}

// RunExclusive runs fn on the executor that serializes durable-store
// work. Callers that mutate a cached document outside a turn (session
// completion hooks in particular) go through here so their writes are
// ordered against the disconnect flush reading the same document.
func (s *DeviceStore) RunExclusive(fn func()) {
	_ = s.exec.Do(func() error {
		fn()
		return nil
	})
}

// Connect loads or creates records for a device that has joined the
// network. Idempotent: a device that is already initialized, or whose
// initialization is in flight from a racing connect, is left alone.
// Initialization failures degrade to defaults rather than failing the
// connection; a device with default config beats a device that cannot
// connect.
func (s *DeviceStore) Connect(ctx context.Context, deviceID string) {
	s.mu.Lock()
	if e, ok := s.entries[deviceID]; ok {
		ready := e.ready
		s.mu.Unlock()
		if ready {
			s.log.Info().Str("device", deviceID).Msg("device already known")
		} else {
			s.log.Info().Str("device", deviceID).Msg("device initialization already in flight")
		}
		return
	}
	// Placeholder so a racing connect observes it and skips re-init.
	s.entries[deviceID] = &cacheEntry{}
	s.mu.Unlock()

	s.log.Info().Str("device", deviceID).Msg("device is loading")
	_ = s.exec.Do(func() error {
		s.initFromStore(ctx, deviceID)
		return nil
	})
}

// initFromStore runs on the serialized executor. It always publishes a
// ready entry, degrading field by field when the store misbehaves.
func (s *DeviceStore) initFromStore(ctx context.Context, deviceID string) {
	dev, created, err := s.store.GetOrCreateDevice(ctx, deviceID)
	if err != nil {
		s.log.Error().Err(err).Str("device", deviceID).Msg("device record unavailable, connecting with defaults")
		s.publish(deviceID, &cacheEntry{
			ready:    true,
			schedule: s.defaultSchedule,
			config:   DefaultCombinedConfig(),
			persist:  ports.Document{},
		})
		return
	}

	entry := &cacheEntry{ready: true, schedule: s.defaultSchedule}
	dev.LastConnect = time.Now()
	if created {
		s.log.Info().Str("device", deviceID).Msg("created new record for device")
		if len(s.defaultSchedule) > 0 {
			dev.ScheduleName = s.defaultScheduleName
		} else {
			s.log.Warn().Str("device", deviceID).Msg("no fallback schedule to assign")
		}
	} else if dev.ScheduleName != "" {
		sched, err := s.store.ScheduleByName(ctx, dev.ScheduleName)
		if err != nil {
			s.log.Error().Err(err).Str("device", deviceID).Str("schedule", dev.ScheduleName).Msg("schedule missing, using fallback")
		} else {
			entry.schedule = sched.Doc
		}
	}

	tenant, err := s.store.TenantConfig(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("tenant config unavailable, merging defaults only")
		tenant = &ports.TenantConfig{}
	}
	entry.config = MergeConfig(tenant.CommonConfig, tenant.CommonSettings, dev.ConfigOverrides, dev.SettingsOverrides)

	persist, err := s.store.GetOrCreatePersistentBlob(ctx, deviceID)
	if err != nil {
		s.log.Error().Err(err).Str("device", deviceID).Msg("persistent blob unavailable")
		persist = ports.Document{}
	}
	entry.persist = persist

	if err := s.store.SaveDevice(ctx, dev); err != nil {
		s.log.Error().Err(err).Str("device", deviceID).Msg("failed to save connect timestamps")
	}
	s.publish(deviceID, entry)
}

// publish swaps the populated entry in for the placeholder.
func (s *DeviceStore) publish(deviceID string, entry *cacheEntry) {
	s.mu.Lock()
	if existing, ok := s.entries[deviceID]; ok && existing.puppet != nil {
		entry.puppet = existing.puppet
	}
	s.entries[deviceID] = entry
	s.mu.Unlock()
}

// Disconnect flushes a device's disconnect timestamp and persistent blob
// to the durable store and evicts the cache entry. No-op for a device that
// is not present. The entry is removed before the flush so the device
// reads as offline the moment the transport reports it gone.
func (s *DeviceStore) Disconnect(ctx context.Context, deviceID string) {
	s.mu.Lock()
	e, ok := s.entries[deviceID]
	if !ok {
		s.mu.Unlock()
		return
	}
	persist := e.persist
	delete(s.entries, deviceID)
	s.mu.Unlock()

	s.log.Info().Str("device", deviceID).Msg("releasing device data")
	_ = s.exec.Do(func() error {
		dev, err := s.store.GetDevice(ctx, deviceID)
		if err != nil {
			s.log.Error().Err(err).Str("device", deviceID).Msg("device record unavailable on disconnect")
		} else {
			dev.LastDisconnect = time.Now()
			if err := s.store.SaveDevice(ctx, dev); err != nil {
				s.log.Error().Err(err).Str("device", deviceID).Msg("failed to save disconnect timestamp")
			}
		}
		if persist != nil {
			if err := s.store.SavePersistentBlob(ctx, deviceID, persist); err != nil {
				s.log.Error().Err(err).Str("device", deviceID).Msg("failed to flush persistent blob")
			}
		}
		return nil
	})
}

// IsOnline reports whether the device has a cache entry. A placeholder
// counts: the device has connected, its data is just not loaded yet.
func (s *DeviceStore) IsOnline(deviceID string) bool {
	s.mu.Lock()
	_, ok := s.entries[deviceID]
	s.mu.Unlock()
	return ok
}

// ListOnline returns the ids of all connected devices.
func (s *DeviceStore) ListOnline() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	return ids
}

// EffectiveConfig returns the cached config for an online device, or a
// merge computed ad hoc from the durable record (not cached) otherwise.
func (s *DeviceStore) EffectiveConfig(ctx context.Context, deviceID string) ports.Document {
	s.mu.Lock()
	if e, ok := s.entries[deviceID]; ok && e.config != nil {
		cfg := e.config
		s.mu.Unlock()
		return cfg
	}
	s.mu.Unlock()

	var cfg ports.Document
	_ = s.exec.Do(func() error {
		cfg = s.computeConfig(ctx, deviceID)
		return nil
	})
	return cfg
}

// computeConfig merges a device's config from durable records. Runs on the
// serialized executor.
func (s *DeviceStore) computeConfig(ctx context.Context, deviceID string) ports.Document {
	dev, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			s.log.Error().Err(err).Str("device", deviceID).Msg("failed to load device for config merge")
		}
		return DefaultCombinedConfig()
	}
	tenant, err := s.store.TenantConfig(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("tenant config unavailable, merging defaults only")
		tenant = &ports.TenantConfig{}
	}
	return MergeConfig(tenant.CommonConfig, tenant.CommonSettings, dev.ConfigOverrides, dev.SettingsOverrides)
}

// RefreshConfigIfOnline recomputes and republishes the cached config after
// an out-of-band edit to the durable record. Returns whether the device
// was online, so the caller knows to push the new config over the
// transport.
func (s *DeviceStore) RefreshConfigIfOnline(ctx context.Context, deviceID string) bool {
	if !s.IsOnline(deviceID) {
		return false
	}
	var cfg ports.Document
	_ = s.exec.Do(func() error {
		cfg = s.computeConfig(ctx, deviceID)
		return nil
	})
	s.mu.Lock()
	if e, ok := s.entries[deviceID]; ok {
		e.config = cfg
	}
	s.mu.Unlock()
	return true
}

// UpdateState persists and caches the latest device telemetry. Reporters
// may omit fields opportunistically; a missing battery_level is carried
// forward from the previous state rather than dropped.
func (s *DeviceStore) UpdateState(ctx context.Context, deviceID string, state ports.Document) {
	st := cloneDocument(state)
	err := s.exec.Do(func() error {
		dev, err := s.store.GetDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		if _, ok := st["battery_level"]; !ok {
			if prev, ok := dev.State["battery_level"]; ok {
				st["battery_level"] = prev
			}
		}
		dev.State = st
		return s.store.SaveDevice(ctx, dev)
	})
	if err != nil {
		s.log.Error().Err(err).Str("device", deviceID).Msg("failed to persist device state")
	}
	s.mu.Lock()
	if e, ok := s.entries[deviceID]; ok && e.ready {
		e.state = st
	}
	s.mu.Unlock()
}

// PersistentData returns the opaque per-device document session handlers
// mutate in place. Cached for online devices; loaded (and not cached)
// otherwise. Flushed on disconnect, not on every write.
func (s *DeviceStore) PersistentData(ctx context.Context, deviceID string) ports.Document {
	s.mu.Lock()
	if e, ok := s.entries[deviceID]; ok && e.persist != nil {
		persist := e.persist
		s.mu.Unlock()
		return persist
	}
	s.mu.Unlock()

	var persist ports.Document
	err := s.exec.Do(func() error {
		var err error
		persist, err = s.store.GetOrCreatePersistentBlob(ctx, deviceID)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("device", deviceID).Msg("failed to load persistent blob")
		return ports.Document{}
	}
	return persist
}

// PutPuppetState stores ephemeral remote-control state for a live device.
func (s *DeviceStore) PutPuppetState(deviceID string, state ports.Document) {
	s.mu.Lock()
	if e, ok := s.entries[deviceID]; ok {
		e.puppet = state
	}
	s.mu.Unlock()
}

// PuppetState returns the ephemeral remote-control state, nil when absent.
func (s *DeviceStore) PuppetState(deviceID string) ports.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[deviceID]; ok {
		return e.puppet
	}
	return nil
}

// VolleyData snapshots the documents a session turn needs. The persist
// document is shared: handlers mutate it in place and the
// disconnect flush picks the mutations up.
func (s *DeviceStore) VolleyData(deviceID string) VolleyData {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[deviceID]
	if !ok || !e.ready {
		return VolleyData{Config: DefaultCombinedConfig(), State: ports.Document{}, Persist: ports.Document{}}
	}
	data := VolleyData{Config: e.config, State: e.state, Persist: e.persist}
	if data.State == nil {
		data.State = ports.Document{}
	}
	if data.Persist == nil {
		data.Persist = ports.Document{}
	}
	return data
}

// Schedule returns the device's current schedule document. With expand
// set, generative blocks are expanded into a concrete session plan using
// the device's behavior history.
func (s *DeviceStore) Schedule(ctx context.Context, deviceID string, expand bool) ports.Document {
	s.mu.Lock()
	sched := s.defaultSchedule
	if e, ok := s.entries[deviceID]; ok && e.schedule != nil {
		sched = e.schedule
	}
	s.mu.Unlock()

	if !expand {
		return sched
	}
	history, err := s.BehaviorHistory(ctx, deviceID)
	if err != nil {
		s.log.Warn().Err(err).Str("device", deviceID).Msg("behavior history unavailable for schedule expansion")
	}
	return schedule.Expand(sched, history)
}
