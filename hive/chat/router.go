package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/openhive/hivecore/hive"
	"github.com/openhive/hivecore/hive/fleet"
	"github.com/openhive/hivecore/hive/ports"
)

// RouterConfig tunes request dispatch.
type RouterConfig struct {
	// Workers bounds concurrent reply generation across all devices.
	Workers int
	// FallbackLine is spoken when a request targets an unregistered module.
	FallbackLine string
	// EnableGlobals turns fleet-wide command interception on.
	EnableGlobals bool
	// LogNotify echoes notify traffic to the log, for conversation review.
	LogNotify bool
	// LogRequests logs every inbound request at debug level.
	LogRequests bool
}

// session is one device's live conversation.
type session struct {
	key     string
	handler Handler
	local   ports.Document
}

// Router owns the session table and dispatches inbound requests. Intake
// is cheap and synchronous; anything that can block (generation,
// completion hooks, delivery) runs on a bounded worker pool so one slow
// device cannot back up the rest of the fleet.
type Router struct {
	cfg       RouterConfig
	devices   *fleet.DeviceStore
	store     ports.Store
	transport ports.Transport
	markup    ports.Markup
	responder ports.Responder
	registry  *Registry
	globals   *GlobalResponses
	tts       *TTSCorrelator
	pool      *pool.Pool
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRouter(cfg RouterConfig, devices *fleet.DeviceStore, store ports.Store, transport ports.Transport, markup ports.Markup, responder ports.Responder, log zerolog.Logger) *Router {
	if cfg.Workers <= 0 {
		cfg.Workers = hive.DefaultWorkerCount
	}
	if cfg.FallbackLine == "" {
		cfg.FallbackLine = hive.FallbackLine
	}
	if markup == nil {
		markup = PlainMarkup{}
	}
	return &Router{
		cfg:       cfg,
		devices:   devices,
		store:     store,
		transport: transport,
		markup:    markup,
		responder: responder,
		registry:  NewRegistry(log),
		globals:   NewGlobalResponses(log),
		tts:       NewTTSCorrelator(transport, log),
		pool:      pool.New().WithMaxGoroutines(cfg.Workers),
		log:       log,
		sessions:  map[string]*session{},
	}
}

// Close waits for in-flight work to drain.
func (r *Router) Close() {
	r.pool.Wait()
}

// Rebuild reloads the module catalog and global command patterns from the
// durable store and swaps them in wholesale.
func (r *Router) Rebuild(ctx context.Context) error {
	defs, err := r.store.ListChatDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("list chat definitions: %w", err)
	}
	r.registry.Rebuild(defs)

	gdefs, err := r.store.ListGlobalResponses(ctx)
	if err != nil {
		return fmt.Errorf("list global responses: %w", err)
	}
	r.globals.Rebuild(gdefs)
	return nil
}

// ModulesInfo returns the advertisement document for remotely-handled
// modules.
func (r *Router) ModulesInfo() *ModulesInfo {
	return r.registry.ModulesInfo()
}

// ActiveSessionData returns the live session's local document, or nil
// when the device has no active session. Callers get the shared document;
// it is theirs to inspect, not to mutate concurrently with turns.
func (r *Router) ActiveSessionData(deviceID string) ports.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[deviceID]; ok {
		return sess.local
	}
	return nil
}

// HandleRequest dispatches one inbound request. It never blocks on
// generation: reply-producing work is handed to the worker pool, while
// notify ingestion happens inline so context lands before any turn
// submitted afterwards.
func (r *Router) HandleRequest(ctx context.Context, deviceID string, req *ports.Request) {
	if r.cfg.LogRequests {
		r.log.Debug().Str("device", deviceID).Str("key", req.Key()).
			Str("command", req.Command).Msg("inbound request")
	}
	if r.cfg.LogNotify && req.IsNotify() {
		r.logNotify(deviceID, req)
	}

	spec, registered := r.registry.Resolve(req.ModuleID, req.ContentID)
	data := r.devices.VolleyData(deviceID)

	var tasks []func()
	r.mu.Lock()
	if registered {
		sess := r.sessions[deviceID]
		if sess == nil || sess.key != req.Key() {
			if sess != nil {
				if task := r.completeTask(ctx, deviceID, sess); task != nil {
					tasks = append(tasks, task)
				}
			}
			sess = &session{
				key:     req.Key(),
				handler: spec.NewHandler(r.responder, r.log),
				local:   ports.Document{},
			}
			r.sessions[deviceID] = sess
			r.log.Info().Str("device", deviceID).Str("key", sess.key).
				Msg("chat session started")
		}
		switch {
		case req.IsNotify():
			sess.handler.IngestNotify(NewDataVolley(deviceID, req, data, sess.local))
		default:
			v := NewVolley(deviceID, req, data, sess.local)
			if task := r.globalTask(deviceID, v); task != nil {
				tasks = append(tasks, task)
			} else {
				handler := sess.handler
				tasks = append(tasks, func() { r.sessionTurn(ctx, deviceID, handler, v) })
			}
		}
	} else {
		// On-device content: any live session is over.
		if sess := r.sessions[deviceID]; sess != nil {
			delete(r.sessions, deviceID)
			if task := r.completeTask(ctx, deviceID, sess); task != nil {
				tasks = append(tasks, task)
			}
		}
		if !req.IsNotify() {
			v := NewVolley(deviceID, req, data, ports.Document{})
			if task := r.globalTask(deviceID, v); task != nil {
				tasks = append(tasks, task)
			} else {
				tasks = append(tasks, func() { r.fallbackTurn(deviceID, v) })
			}
		}
	}
	r.mu.Unlock()

	for _, task := range tasks {
		r.pool.Go(task)
	}
}

// ReleaseDevice tears down the device's session, runs its completion
// hook, and releases the device from the live cache.
func (r *Router) ReleaseDevice(ctx context.Context, deviceID string) {
	r.mu.Lock()
	sess := r.sessions[deviceID]
	delete(r.sessions, deviceID)
	var task func()
	if sess != nil {
		task = r.completeTask(ctx, deviceID, sess)
	}
	r.mu.Unlock()

	// Run the hook before the disconnect flush so whatever it writes into
	// the persistent document makes it to the store.
	if task != nil {
		task()
	}
	r.devices.Disconnect(ctx, deviceID)
}

// completeTask builds the deferred completion-hook call for a session
// that just ended. Returns nil when the handler has no hook.
func (r *Router) completeTask(ctx context.Context, deviceID string, sess *session) func() {
	completer, ok := sess.handler.(Completer)
	r.log.Info().Str("device", deviceID).Str("key", sess.key).
		Bool("hook", ok).Msg("chat session ended")
	if !ok {
		return nil
	}
	v := NewDataVolley(deviceID, &ports.Request{}, r.devices.VolleyData(deviceID), sess.local)
	return func() {
		defer r.recoverTurn(deviceID, "completion hook")
		// The hook mutates the cached persistent document; running it
		// exclusively orders the writes against the disconnect flush
		// serializing that same document.
		r.devices.RunExclusive(func() {
			completer.Complete(ctx, v)
		})
	}
}

// globalTask checks the volley against fleet-wide command patterns and
// returns the deferred delivery when one matched.
func (r *Router) globalTask(deviceID string, v *Volley) func() {
	if !r.cfg.EnableGlobals {
		return nil
	}
	fn := r.globals.Check(v)
	if fn == nil {
		return nil
	}
	return func() {
		defer r.recoverTurn(deviceID, "global response")
		r.deliver(deviceID, v.Config(), fn())
	}
}

// sessionTurn runs one reply-producing turn on the worker pool.
func (r *Router) sessionTurn(ctx context.Context, deviceID string, handler Handler, v *Volley) {
	defer r.recoverTurn(deviceID, "session turn")
	if err := handler.HandleTurn(ctx, v); err != nil {
		// Dropped turn: the device re-prompts on its own timeout.
		r.log.Error().Err(err).Str("device", deviceID).Str("key", v.Request.Key()).
			Msg("turn failed, no reply sent")
		return
	}
	r.deliver(deviceID, v.Config(), v.Reply)
}

// fallbackTurn answers a request for content this service does not
// handle. The device should not have asked; responding at all keeps it
// from hanging on a reply that will never come.
func (r *Router) fallbackTurn(deviceID string, v *Volley) {
	defer r.recoverTurn(deviceID, "fallback turn")
	r.log.Debug().Str("device", deviceID).Str("key", v.Request.Key()).
		Msg("request for unregistered module")
	v.SetOutput(r.cfg.FallbackLine, "", "FALLBACK")
	r.deliver(deviceID, v.Config(), v.Reply)
}

// deliver sends the reply and mirrors it to synthesis when enabled.
// Replies with text always carry markup; devices will not speak bare
// text.
func (r *Router) deliver(deviceID string, cfg ports.Document, reply *ports.Reply) {
	if reply.Output.Text != "" && reply.Output.Markup == "" {
		reply.Output.Markup = r.markup.Render(reply.Output.Text)
	}
	if err := r.transport.SendReply(deviceID, reply); err != nil {
		r.log.Error().Err(err).Str("device", deviceID).
			Msg("failed to send reply")
		return
	}
	r.tts.MaybeEmit(deviceID, cfg, reply)
}

func (r *Router) recoverTurn(deviceID, stage string) {
	if p := recover(); p != nil {
		r.log.Error().Str("device", deviceID).Str("stage", stage).
			Any("panic", p).Msg("recovered panic in chat worker")
	}
}

// logNotify echoes the conversation a notify request reports, one line
// per utterance.
func (r *Router) logNotify(deviceID string, req *ports.Request) {
	for _, line := range req.ExtraLines {
		if line.Text != "" {
			r.log.Info().Str("device", deviceID).
				Msgf("USER: %s", line.Text)
		}
	}
	if req.Speech != "" {
		r.log.Info().Str("device", deviceID).
			Msgf("ROBOT: %s [%s]", req.Speech, req.Key())
	}
}
