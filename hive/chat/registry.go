package chat

import (
	"strings"
	"sync/atomic"

	radix "github.com/armon/go-radix"
	"github.com/rs/zerolog"

	"github.com/openhive/hivecore/hive"
	"github.com/openhive/hivecore/hive/ports"
)

// ModuleInfo advertises one remotely-handled module to devices.
type ModuleInfo struct {
	ID         string   `json:"id"`
	Rules      string   `json:"rules"`
	Source     string   `json:"source"`
	ContentIDs []string `json:"content_ids"`
}

// ModulesInfo is the full advertisement document for the fleet.
type ModulesInfo struct {
	Modules []ModuleInfo `json:"modules"`
	Version string       `json:"version"`
}

// Registry maps module_id/content_id keys to session specs. Lookups are
// lock-free; Rebuild swaps in a whole new tree so readers never observe a
// half-loaded catalog.
type Registry struct {
	tree atomic.Pointer[radix.Tree]
	info atomic.Pointer[ModulesInfo]
	log  zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	r := &Registry{log: log}
	r.tree.Store(radix.New())
	r.info.Store(&ModulesInfo{Version: hive.SoftwareVersion})
	return r
}

// Rebuild replaces the catalog from the given definitions. A definition's
// content id field may hold several pipe-delimited ids; each becomes its
// own entry sharing the definition.
func (r *Registry) Rebuild(defs []ports.ChatDefinition) {
	tree := radix.New()
	for _, def := range defs {
		for _, cid := range strings.Split(def.ContentID, "|") {
			cid = strings.TrimSpace(cid)
			if cid == "" {
				continue
			}
			d := def
			d.ContentID = cid
			tree.Insert(d.ModuleID+"/"+cid, SessionSpec{
				Kind:       KindPromptChat,
				PromptChat: &PromptChatSpec{Def: d},
			})
			r.log.Debug().
				Str("module_id", d.ModuleID).
				Str("content_id", cid).
				Str("name", d.Name).
				Msg("registered chat module")
		}
	}
	r.info.Store(buildModulesInfo(tree))
	r.tree.Store(tree)
	r.log.Info().Int("entries", tree.Len()).Msg("chat registry rebuilt")
}

// Resolve looks up the spec registered for a module/content pair.
func (r *Registry) Resolve(moduleID, contentID string) (SessionSpec, bool) {
	v, ok := r.tree.Load().Get(moduleID + "/" + contentID)
	if !ok {
		return SessionSpec{}, false
	}
	return v.(SessionSpec), true
}

// ModulesInfo returns the current advertisement document.
func (r *Registry) ModulesInfo() *ModulesInfo {
	return r.info.Load()
}

// buildModulesInfo walks the tree in key order, so content ids group
// under their module deterministically.
func buildModulesInfo(tree *radix.Tree) *ModulesInfo {
	info := &ModulesInfo{Version: hive.SoftwareVersion}
	byModule := map[string]int{}
	tree.Walk(func(key string, _ any) bool {
		moduleID, contentID, ok := strings.Cut(key, "/")
		if !ok {
			return false
		}
		idx, seen := byModule[moduleID]
		if !seen {
			idx = len(info.Modules)
			byModule[moduleID] = idx
			info.Modules = append(info.Modules, ModuleInfo{
				ID:     moduleID,
				Rules:  "RANDOM",
				Source: "REMOTE_CHAT",
			})
		}
		info.Modules[idx].ContentIDs = append(info.Modules[idx].ContentIDs, contentID)
		return false
	})
	return info
}
