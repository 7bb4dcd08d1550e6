package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openhive/hivecore/hive/ports"
)

const deviceColumns = `device_id, name, schedule_name, config_overrides, settings_overrides, state, first_connect, last_connect, last_disconnect`

func (s *Store) GetOrCreateDevice(ctx context.Context, deviceID string) (*ports.Device, bool, error) {
	device, err := s.GetDevice(ctx, deviceID)
	if err == nil {
		return device, false, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO devices (device_id, first_connect, last_connect) VALUES (?, ?, ?)
		 ON CONFLICT (device_id) DO NOTHING`,
		deviceID, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, false, fmt.Errorf("insert device %s: %w", deviceID, err)
	}
	device, err = s.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, false, err
	}
	return device, true, nil
}

func (s *Store) GetDevice(ctx context.Context, deviceID string) (*ports.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE device_id = ?`, deviceID)

	var (
		device                               ports.Device
		configRaw, settingsRaw, stateRaw     sql.NullString
		firstConnect, lastConnect, lastDisco int64
	)
	err := row.Scan(&device.ID, &device.Name, &device.ScheduleName,
		&configRaw, &settingsRaw, &stateRaw,
		&firstConnect, &lastConnect, &lastDisco)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load device %s: %w", deviceID, err)
	}

	if device.ConfigOverrides, err = unmarshalDoc(configRaw); err != nil {
		return nil, fmt.Errorf("device %s config overrides: %w", deviceID, err)
	}
	if device.SettingsOverrides, err = unmarshalDoc(settingsRaw); err != nil {
		return nil, fmt.Errorf("device %s settings overrides: %w", deviceID, err)
	}
	if device.State, err = unmarshalDoc(stateRaw); err != nil {
		return nil, fmt.Errorf("device %s state: %w", deviceID, err)
	}
	device.FirstConnect = msToTime(firstConnect)
	device.LastConnect = msToTime(lastConnect)
	device.LastDisconnect = msToTime(lastDisco)
	return &device, nil
}

func (s *Store) SaveDevice(ctx context.Context, device *ports.Device) error {
	configRaw, err := marshalDoc(device.ConfigOverrides)
	if err != nil {
		return err
	}
	settingsRaw, err := marshalDoc(device.SettingsOverrides)
	if err != nil {
		return err
	}
	stateRaw, err := marshalDoc(device.State)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE devices SET name = ?, schedule_name = ?, config_overrides = ?,
		 settings_overrides = ?, state = ?, first_connect = ?, last_connect = ?,
		 last_disconnect = ? WHERE device_id = ?`,
		device.Name, device.ScheduleName, configRaw, settingsRaw, stateRaw,
		timeToMs(device.FirstConnect), timeToMs(device.LastConnect),
		timeToMs(device.LastDisconnect), device.ID)
	if err != nil {
		return fmt.Errorf("save device %s: %w", device.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *Store) TenantConfig(ctx context.Context) (*ports.TenantConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT common_config, common_settings FROM tenant_config WHERE id = 1`)

	var configRaw, settingsRaw sql.NullString
	err := row.Scan(&configRaw, &settingsRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return &ports.TenantConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant config: %w", err)
	}

	cfg := &ports.TenantConfig{}
	if cfg.CommonConfig, err = unmarshalDoc(configRaw); err != nil {
		return nil, fmt.Errorf("tenant common config: %w", err)
	}
	if cfg.CommonSettings, err = unmarshalDoc(settingsRaw); err != nil {
		return nil, fmt.Errorf("tenant common settings: %w", err)
	}
	return cfg, nil
}

// SaveTenantConfig upserts the single hive-wide override row.
func (s *Store) SaveTenantConfig(ctx context.Context, cfg *ports.TenantConfig) error {
	configRaw, err := marshalDoc(cfg.CommonConfig)
	if err != nil {
		return err
	}
	settingsRaw, err := marshalDoc(cfg.CommonSettings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tenant_config (id, common_config, common_settings) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET common_config = excluded.common_config,
		 common_settings = excluded.common_settings`,
		configRaw, settingsRaw)
	if err != nil {
		return fmt.Errorf("save tenant config: %w", err)
	}
	return nil
}
