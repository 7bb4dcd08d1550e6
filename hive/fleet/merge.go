package fleet

import "github.com/openhive/hivecore/hive/ports"

// DefaultRobotSettings returns the system default device settings. Callers
// get a fresh copy each time; the merge layer never aliases a shared
// constant into a cached config.
// Notes:
// - default_loglevel in {info, warning, error, fatal} - logging at warning
//   reduces device load and increases frame rate
func DefaultRobotSettings() ports.Document {
	return ports.Document{
		"props": map[string]any{
			"touch_wake":                     "1",
			"wake_alarms":                    "1",
			"wake_button":                    "1",
			"doa_range":                      "80",
			"target_all":                     "1",
			"gcp_upload_disable":             "1",
			"local_stt":                      "on",
			"max_enroll":                     "2",
			"audio_wake":                     "1",
			"cloud_schedule_reset_threshold": "5",
			"debug_whiteboard":               "0",
			"brain_entrances_available":      "1",
			"mqtt_files":                     "0",
			"file_sync_wait":                 "0",
			"default_loglevel":               "warning",
		},
	}
}

// DefaultRobotConfig returns the system default device configuration.
func DefaultRobotConfig() ports.Document {
	return ports.Document{
		"pairing_status":    "paired",
		"audio_volume":      "0.6",
		"screen_brightness": "1.0",
		"audio_wake_set":    "off",
		"timezone_id":       "America/Los_Angeles",
		"child_pii": map[string]any{
			"nickname":    "Pat",
			"input_speed": 0.0,
		},
	}
}

// DefaultCombinedConfig returns the full default config handed to a device
// when nothing is loaded for it (it should be loaded).
func DefaultCombinedConfig() ports.Document {
	cfg := DefaultRobotConfig()
	cfg["settings"] = DefaultRobotSettings()
	return cfg
}

// MergeConfig builds the effective configuration for one device. Layering,
// lowest to highest precedence: built-in defaults, hive-wide overrides,
// per-device overrides. The settings document is nested under "settings"
// and merged under the same rule. No input document is mutated or aliased
// into the result.
func MergeConfig(common, commonSettings, deviceCfg, deviceSettings ports.Document) ports.Document {
	base := DefaultRobotConfig()
	if common != nil {
		base = common
	}
	baseSettings := DefaultRobotSettings()
	if commonSettings != nil {
		baseSettings = commonSettings
	}

	merged := deepMerge(cloneDocument(base), baseSettings, "settings")
	merged = deepMergeInto(merged, deviceCfg)
	return deepMerge(merged, deviceSettings, "settings")
}

// deepMerge merges src into dst under the given key, recursing into the
// existing value when both sides are maps.
func deepMerge(dst ports.Document, src ports.Document, key string) ports.Document {
	if src == nil {
		src = ports.Document{}
	}
	if existing, ok := dst[key].(map[string]any); ok {
		dst[key] = mergeMaps(existing, src)
	} else {
		dst[key] = cloneMap(src)
	}
	return dst
}

// deepMergeInto merges every key of src into dst at the top level.
func deepMergeInto(dst ports.Document, src ports.Document) ports.Document {
	return mergeMaps(dst, src)
}

// mergeMaps merges src over base key by key. Maps merge recursively;
// any other value from src replaces the base value wholesale. base is
// assumed owned by the caller, src is never mutated.
func mergeMaps(base map[string]any, src map[string]any) map[string]any {
	for k, v := range src {
		sv, srcIsMap := v.(map[string]any)
		bv, baseIsMap := base[k].(map[string]any)
		if srcIsMap && baseIsMap {
			base[k] = mergeMaps(bv, sv)
		} else if srcIsMap {
			base[k] = cloneMap(sv)
		} else {
			base[k] = v
		}
	}
	return base
}

// cloneMap returns a structural copy of m, deep enough that merging into
// the copy can never write through to the original.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if mv, ok := v.(map[string]any); ok {
			out[k] = cloneMap(mv)
		} else {
			out[k] = v
		}
	}
	return out
}

// cloneDocument is cloneMap at the document type.
func cloneDocument(d ports.Document) ports.Document {
	return cloneMap(d)
}
