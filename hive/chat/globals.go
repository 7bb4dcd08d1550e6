package chat

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/openhive/hivecore/hive/ports"
)

// GlobalFunc fills the intercepted volley's reply and returns it.
type GlobalFunc func() *ports.Reply

// GlobalResponses intercepts speech that matches fleet-wide command
// patterns before any session handler sees it. Patterns are checked in
// descending sort-key order; the first match wins.
type GlobalResponses struct {
	log      zerolog.Logger
	patterns atomic.Pointer[[]actionPattern]
}

type actionPattern struct {
	re  *regexp.Regexp
	def ports.GlobalResponseDef
}

func NewGlobalResponses(log zerolog.Logger) *GlobalResponses {
	g := &GlobalResponses{log: log}
	g.patterns.Store(&[]actionPattern{})
	return g
}

// Rebuild replaces the pattern list. Definitions with patterns that do
// not compile or with unknown actions are skipped with a warning rather
// than failing the whole reload.
func (g *GlobalResponses) Rebuild(defs []ports.GlobalResponseDef) {
	sorted := make([]ports.GlobalResponseDef, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortKey > sorted[j].SortKey
	})

	patterns := make([]actionPattern, 0, len(sorted))
	for _, def := range sorted {
		switch def.Action {
		case "response", "launch", "confirm_launch":
		default:
			g.log.Warn().Str("name", def.Name).Str("action", def.Action).
				Msg("skipping global response with unsupported action")
			continue
		}
		// Patterns match from the start of the utterance.
		re, err := regexp.Compile("^(?:" + def.Pattern + ")")
		if err != nil {
			g.log.Warn().Err(err).Str("name", def.Name).
				Msg("skipping global response with invalid pattern")
			continue
		}
		g.log.Info().Str("name", def.Name).Str("action", def.Action).
			Msg("loaded global response")
		patterns = append(patterns, actionPattern{re: re, def: def})
	}
	g.patterns.Store(&patterns)
}

// Check tests the volley's speech against the loaded patterns. A non-nil
// result is a deferred apply: callers decide where to run it.
func (g *GlobalResponses) Check(v *Volley) GlobalFunc {
	speech := strings.ToLower(strings.TrimSpace(v.Request.Speech))
	if speech == "" {
		return nil
	}
	for _, p := range *g.patterns.Load() {
		if !p.re.MatchString(speech) {
			continue
		}
		def := p.def
		return func() *ports.Reply {
			v.SetOutput(def.ResponseText, def.ResponseMarkup, "GLOBAL_COMMAND")
			switch def.Action {
			case "launch":
				v.AddAction("launch", def.ModuleID, def.ContentID)
			case "confirm_launch":
				v.AddAction("launch_if_confirmed", def.ModuleID, def.ContentID)
			}
			return v.Reply
		}
	}
	return nil
}
