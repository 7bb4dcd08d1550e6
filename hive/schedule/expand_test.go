package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhive/hivecore/hive/ports"
)

// TestExpand_NoGenerateBlockPassesThrough checks concrete schedules are
// returned untouched.
func TestExpand_NoGenerateBlockPassesThrough(t *testing.T) {
	sched := ports.Document{
		"provided_schedule": []any{map[string]any{"module_id": "CHAT"}},
	}

	out := Expand(sched, nil)
	assert.Equal(t, sched, out)
}

// TestExpand_RemovesGenerateBlock checks the generate block never reaches
// the device.
func TestExpand_RemovesGenerateBlock(t *testing.T) {
	sched := ports.Document{
		"generate": map[string]any{"chat_count": 1, "module_count": 4},
	}

	out := Expand(sched, nil)
	assert.NotContains(t, out, "generate")
	assert.Contains(t, out, "provided_schedule")
	assert.Contains(t, sched, "generate", "input document is not mutated")
}

// TestExpand_CountsRespected checks the plan carries the requested number
// of generated modules plus interleaved chats.
func TestExpand_CountsRespected(t *testing.T) {
	sched := ports.Document{
		"generate": map[string]any{"chat_count": 2, "module_count": 5},
	}

	out := Expand(sched, nil)
	entries, ok := out["provided_schedule"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 7)

	chats := 0
	for _, e := range entries {
		m := e.(map[string]any)
		if m["module_id"] == "CHAT" {
			chats++
		}
	}
	assert.GreaterOrEqual(t, chats, 2, "both chat slots present")
}

// TestExpand_ExcludedModulesNeverPicked checks excluded_module_ids prunes
// the selection pool.
func TestExpand_ExcludedModulesNeverPicked(t *testing.T) {
	excluded := []any{"STORYTELLING", "DRAWING", "JOKES", "DANCE", "READING", "FACTS"}
	sched := ports.Document{
		"generate": map[string]any{
			"chat_count":          0,
			"module_count":        9,
			"excluded_module_ids": excluded,
		},
	}

	out := Expand(sched, nil)
	entries := out["provided_schedule"].([]any)
	for _, e := range entries {
		id := e.(map[string]any)["module_id"].(string)
		for _, x := range excluded {
			assert.NotEqual(t, x, id)
		}
	}
}

// TestExpand_ExtraModulesJoinThePool checks caller-supplied modules are
// eligible for selection.
func TestExpand_ExtraModulesJoinThePool(t *testing.T) {
	sched := ports.Document{
		"generate": map[string]any{
			"chat_count":   0,
			"module_count": 10,
			"extra_modules": []any{
				map[string]any{"module_id": "CUSTOM", "content_id": "one"},
			},
			"excluded_module_ids": []any{
				"CHAT", "STORYTELLING", "DRAWING", "BREATHING", "AFFIRMATIONS",
				"JOKES", "DANCE", "READING", "FACTS",
			},
		},
	}

	out := Expand(sched, nil)
	entries := out["provided_schedule"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "CUSTOM", entries[0].(map[string]any)["module_id"])
	assert.Equal(t, "one", entries[0].(map[string]any)["content_id"])
}

// TestExpand_FTUEPurgedAfterCompletion checks exhausted first-time-user
// modules are dropped from the provided plan.
func TestExpand_FTUEPurgedAfterCompletion(t *testing.T) {
	provided := []any{
		map[string]any{"module_id": "TNT"},
		map[string]any{"module_id": "WELCOME"},
		map[string]any{"module_id": "CHAT", "content_id": "short"},
	}
	sched := ports.Document{
		"provided_schedule": provided,
		"generate":          map[string]any{"chat_count": 0, "module_count": 0},
	}

	var history []ports.BehaviorEntry
	for i := 0; i < 7; i++ {
		history = append(history, ports.BehaviorEntry{
			DeviceID: "d-1", ModuleID: "TNT", Action: "COMPLETED",
		})
	}

	out := Expand(sched, history)
	entries := out["provided_schedule"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "CHAT", entries[0].(map[string]any)["module_id"])
}

// TestExpand_WelcomeSurvivesWithNoCompletions checks a brand new device
// keeps its onboarding entries.
func TestExpand_WelcomeSurvivesWithNoCompletions(t *testing.T) {
	sched := ports.Document{
		"provided_schedule": []any{map[string]any{"module_id": "WELCOME"}},
		"generate":          map[string]any{"chat_count": 0, "module_count": 0},
	}

	out := Expand(sched, nil)
	entries := out["provided_schedule"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "WELCOME", entries[0].(map[string]any)["module_id"])
}

// TestValidate_AcceptsGoodDocuments exercises the import schema on both
// concrete and generative schedules.
func TestValidate_AcceptsGoodDocuments(t *testing.T) {
	assert.NoError(t, Validate(ports.Document{
		"provided_schedule": []any{map[string]any{"module_id": "CHAT", "content_id": "short"}},
	}))
	assert.NoError(t, Validate(ports.Document{
		"generate": map[string]any{"chat_count": 2, "module_count": 6},
	}))
}

// TestValidate_RejectsMissingModuleID checks entries without a module id
// fail validation.
func TestValidate_RejectsMissingModuleID(t *testing.T) {
	err := Validate(ports.Document{
		"provided_schedule": []any{map[string]any{"content_id": "short"}},
	})
	assert.Error(t, err)
}
