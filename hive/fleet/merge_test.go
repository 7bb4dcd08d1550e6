package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openhive/hivecore/hive/ports"
)

// TestMergeConfig_Precedence checks the layering order: defaults, then
// hive-wide overrides, then per-device overrides.
func TestMergeConfig_Precedence(t *testing.T) {
	common := ports.Document{"audio_volume": "0.4", "timezone_id": "UTC"}
	deviceCfg := ports.Document{"audio_volume": "0.9"}

	merged := MergeConfig(common, nil, deviceCfg, nil)

	assert.Equal(t, "0.9", merged["audio_volume"], "device override wins")
	assert.Equal(t, "UTC", merged["timezone_id"], "hive override survives where device is silent")
}

// TestMergeConfig_SettingsNested checks that settings merge under the
// "settings" key with the same precedence.
func TestMergeConfig_SettingsNested(t *testing.T) {
	commonSettings := ports.Document{
		"props": map[string]any{"cloud_tts": "0", "doa_range": "60"},
	}
	deviceSettings := ports.Document{
		"props": map[string]any{"cloud_tts": "1"},
	}

	merged := MergeConfig(nil, commonSettings, nil, deviceSettings)

	settings, ok := merged["settings"].(map[string]any)
	assert.True(t, ok)
	props, ok := settings["props"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "1", props["cloud_tts"], "device setting wins")
	assert.Equal(t, "60", props["doa_range"], "common setting survives")
}

// TestMergeConfig_MapsRecurseScalarsReplace checks the merge rule: maps
// merge key by key, anything else replaces wholesale.
func TestMergeConfig_MapsRecurseScalarsReplace(t *testing.T) {
	deviceCfg := ports.Document{
		"child_pii": map[string]any{"nickname": "Sam"},
	}

	merged := MergeConfig(nil, nil, deviceCfg, nil)

	pii, ok := merged["child_pii"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "Sam", pii["nickname"])
	assert.Equal(t, 0.0, pii["input_speed"], "untouched sibling keys survive a nested merge")
}

// TestMergeConfig_InputsNotMutated checks that no input document is
// written through by the merge.
func TestMergeConfig_InputsNotMutated(t *testing.T) {
	common := ports.Document{"child_pii": map[string]any{"nickname": "Alex"}}
	deviceCfg := ports.Document{"child_pii": map[string]any{"nickname": "Sam"}}

	merged := MergeConfig(common, nil, deviceCfg, nil)
	pii := merged["child_pii"].(map[string]any)
	pii["nickname"] = "mutated"

	assert.Equal(t, "Alex", common["child_pii"].(map[string]any)["nickname"])
	assert.Equal(t, "Sam", deviceCfg["child_pii"].(map[string]any)["nickname"])
}

// TestDefaultCombinedConfig_FreshCopies checks callers cannot corrupt the
// defaults through a returned document.
func TestDefaultCombinedConfig_FreshCopies(t *testing.T) {
	first := DefaultCombinedConfig()
	first["audio_volume"] = "0.0"
	first["settings"].(map[string]any)["props"].(map[string]any)["touch_wake"] = "0"

	second := DefaultCombinedConfig()
	assert.Equal(t, "0.6", second["audio_volume"])
	assert.Equal(t, "1", second["settings"].(map[string]any)["props"].(map[string]any)["touch_wake"])
}
