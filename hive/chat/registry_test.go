package chat

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhive/hivecore/hive"
	"github.com/openhive/hivecore/hive/ports"
)

// TestRegistry_ResolveByKey checks lookups hit exact module/content pairs
// and nothing else.
func TestRegistry_ResolveByKey(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Rebuild([]ports.ChatDefinition{
		{ModuleID: "CHAT", ContentID: "short", Name: "Short chat"},
	})

	spec, ok := r.Resolve("CHAT", "short")
	require.True(t, ok)
	assert.Equal(t, KindPromptChat, spec.Kind)
	assert.Equal(t, "Short chat", spec.PromptChat.Def.Name)

	_, ok = r.Resolve("CHAT", "long")
	assert.False(t, ok)
	_, ok = r.Resolve("CHA", "short")
	assert.False(t, ok)
}

// TestRegistry_PipeDelimitedContentIDs checks one definition can register
// several content ids, each resolving with its own id in the spec.
func TestRegistry_PipeDelimitedContentIDs(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Rebuild([]ports.ChatDefinition{
		{ModuleID: "CHAT", ContentID: "short|long| special ", Prompt: "p"},
	})

	for _, cid := range []string{"short", "long", "special"} {
		spec, ok := r.Resolve("CHAT", cid)
		require.True(t, ok, cid)
		assert.Equal(t, cid, spec.PromptChat.Def.ContentID)
		assert.Equal(t, "p", spec.PromptChat.Def.Prompt)
	}
}

// TestRegistry_RebuildReplacesWholesale checks a rebuild drops entries
// that are no longer defined.
func TestRegistry_RebuildReplacesWholesale(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Rebuild([]ports.ChatDefinition{{ModuleID: "CHAT", ContentID: "short"}})
	r.Rebuild([]ports.ChatDefinition{{ModuleID: "STORY", ContentID: "one"}})

	_, ok := r.Resolve("CHAT", "short")
	assert.False(t, ok)
	_, ok = r.Resolve("STORY", "one")
	assert.True(t, ok)
}

// TestRegistry_ModulesInfo checks the advertisement groups content ids by
// module and carries the software version.
func TestRegistry_ModulesInfo(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Rebuild([]ports.ChatDefinition{
		{ModuleID: "CHAT", ContentID: "long|short"},
		{ModuleID: "STORY", ContentID: "one"},
	})

	info := r.ModulesInfo()
	require.Len(t, info.Modules, 2)
	assert.Equal(t, hive.SoftwareVersion, info.Version)

	byID := map[string]ModuleInfo{}
	for _, m := range info.Modules {
		byID[m.ID] = m
	}
	assert.ElementsMatch(t, []string{"long", "short"}, byID["CHAT"].ContentIDs)
	assert.Equal(t, "RANDOM", byID["CHAT"].Rules)
	assert.Equal(t, "REMOTE_CHAT", byID["CHAT"].Source)
	assert.Equal(t, []string{"one"}, byID["STORY"].ContentIDs)
}
