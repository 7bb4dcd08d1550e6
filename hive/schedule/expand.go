// Package schedule expands generative schedule documents into concrete
// session plans and validates schedule documents on import.
package schedule

import (
	"math/rand/v2"

	"github.com/openhive/hivecore/hive/ports"
)

// Module is one schedulable content item.
type Module struct {
	ModuleID  string
	ContentID string
	Category  string
}

// Recommendable is the built-in pool of modules the generator may pick
// from when a schedule asks for automatic filling.
var Recommendable = []Module{
	{ModuleID: "CHAT", ContentID: "short", Category: "Conversation"},
	{ModuleID: "STORYTELLING", Category: "Creative"},
	{ModuleID: "DRAWING", Category: "Creative"},
	{ModuleID: "BREATHING", Category: "Regulation"},
	{ModuleID: "AFFIRMATIONS", Category: "Regulation"},
	{ModuleID: "JOKES", Category: "Play"},
	{ModuleID: "DANCE", Category: "Play"},
	{ModuleID: "READING", Category: "Learning"},
	{ModuleID: "FACTS", Category: "Learning"},
}

// First-time-user modules cycle through their content ids in order; once a
// device has completed them all, the device-side scheduler would replay
// them forever unless they are removed from the plan.
const (
	tntContentTotal          = 7
	systemsCheckContentTotal = 2
)

// Expand generates a concrete provided_schedule for a document carrying a
// generate block. Documents without one pass through untouched. The input
// document is never mutated; callers may be handing us a cached value.
func Expand(sched ports.Document, history []ports.BehaviorEntry) ports.Document {
	gen, ok := sched["generate"].(map[string]any)
	if !ok {
		return sched
	}

	chatCount := docInt(gen, "chat_count", 2)
	moduleCount := docInt(gen, "module_count", 6)
	chatModules := docModules(gen, "chat_modules")
	if len(chatModules) == 0 {
		chatModules = []Module{{ModuleID: "CHAT", ContentID: "short"}}
	}
	extraModules := docModules(gen, "extra_modules")
	excluded := docStrings(gen, "excluded_module_ids")

	provided := docEntries(sched, "provided_schedule")

	// First-time-user modules the device has exhausted must go.
	for _, purge := range ftueRemove(history) {
		provided = removeModule(provided, purge)
	}

	pool := make([]Module, 0, len(Recommendable)+len(extraModules))
	for _, m := range Recommendable {
		if !contains(excluded, m.ModuleID) {
			pool = append(pool, m)
		}
	}
	pool = append(pool, extraModules...)
	generated := ransacSelect(pool, moduleCount)

	if chatCount > 0 && len(chatModules) > 0 {
		chats := make([]Module, chatCount)
		for i := range chats {
			chats[i] = chatModules[rand.IntN(len(chatModules))]
		}
		generated = distribute(generated, chats)
	}

	out := make(ports.Document, len(sched))
	for k, v := range sched {
		if k == "generate" {
			continue
		}
		out[k] = v
	}
	out["provided_schedule"] = append(provided, toEntries(generated)...)
	return out
}

// ftueRemove returns module ids that should be purged from the plan based
// on what the device has already completed.
func ftueRemove(history []ports.BehaviorEntry) []string {
	completed := map[string]int{}
	anyCompleted := false
	for _, entry := range history {
		if entry.Action != "COMPLETED" {
			continue
		}
		completed[entry.ModuleID]++
		anyCompleted = true
	}

	var purge []string
	if completed["TNT"] >= tntContentTotal {
		purge = append(purge, "TNT")
	}
	if completed["SYSTEMSCHECK"] >= systemsCheckContentTotal {
		purge = append(purge, "SYSTEMSCHECK")
	}
	if len(purge) > 0 || anyCompleted {
		purge = append(purge, "WELCOME")
	}
	return purge
}

// ransacSelect picks count modules by scoring random shuffles, penalizing
// adjacent and duplicate categories so a session spreads across them.
func ransacSelect(modules []Module, count int) []Module {
	if count > len(modules) {
		count = len(modules)
	}
	var best []Module
	bestScore := 100

	for range 20 {
		perm := rand.Perm(len(modules))
		catSeen := map[string]bool{}
		lastCat := ""
		score := 0
		for i := 0; i < count; i++ {
			cat := modules[perm[i]].Category
			if cat == "" {
				cat = "User"
			}
			if cat == lastCat {
				score += 5 // adjacent same-category penalty
			}
			if catSeen[cat] {
				score++ // duplicate category penalty
			}
			catSeen[cat] = true
			lastCat = cat
		}
		if score < bestScore {
			bestScore = score
			best = make([]Module, count)
			for i := 0; i < count; i++ {
				best[i] = modules[perm[i]]
			}
		}
	}
	return best
}

// distribute interleaves the smaller list into the larger at even gaps.
func distribute(a, b []Module) []Module {
	if len(a) > len(b) {
		a, b = b, a
	}
	result := make([]Module, len(b))
	copy(result, b)
	if len(a) == 0 {
		return result
	}
	gap := len(b) / (len(a) + 1)
	offset := 0
	for _, m := range a {
		at := offset + gap
		if at > len(result) {
			at = len(result)
		}
		result = append(result[:at], append([]Module{m}, result[at:]...)...)
		offset = at + 1
	}
	return result
}

func removeModule(entries []any, moduleID string) []any {
	out := entries[:0:0]
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok {
			if id, _ := m["module_id"].(string); id == moduleID {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func toEntries(modules []Module) []any {
	out := make([]any, 0, len(modules))
	for _, m := range modules {
		entry := map[string]any{"module_id": m.ModuleID}
		if m.ContentID != "" {
			entry["content_id"] = m.ContentID
		}
		out = append(out, entry)
	}
	return out
}

func docInt(doc map[string]any, key string, def int) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func docStrings(doc map[string]any, key string) []string {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func docEntries(doc map[string]any, key string) []any {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	out := make([]any, len(raw))
	copy(out, raw)
	return out
}

func docModules(doc map[string]any, key string) []Module {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Module, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		mod := Module{}
		mod.ModuleID, _ = m["module_id"].(string)
		mod.ContentID, _ = m["content_id"].(string)
		mod.Category, _ = m["category"].(string)
		if mod.ModuleID != "" {
			out = append(out, mod)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
