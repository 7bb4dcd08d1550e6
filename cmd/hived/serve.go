package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openhive/hivecore/hive/chat"
	"github.com/openhive/hivecore/hive/config"
	"github.com/openhive/hivecore/hive/fleet"
	"github.com/openhive/hivecore/hive/ports"
	"github.com/openhive/hivecore/hive/storage"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the fleet core daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	log.Info().Str("path", cfg.Database.Path).Msg("storage ready")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	devices := fleet.NewDeviceStore(ctx, store, cfg.Fleet.DefaultSchedule, log)
	defer devices.Close()

	router := chat.NewRouter(chat.RouterConfig{
		Workers:       cfg.Chat.Workers,
		FallbackLine:  cfg.Chat.FallbackLine,
		EnableGlobals: cfg.Chat.EnableGlobals,
		LogNotify:     cfg.Chat.LogNotify,
		LogRequests:   cfg.Chat.LogRequests,
	}, devices, store, logTransport{log: log}, chat.PlainMarkup{}, chat.StaticResponder{Line: "Let me think about that one."}, log)
	defer router.Close()

	if err := router.Rebuild(ctx); err != nil {
		return fmt.Errorf("load chat catalog: %w", err)
	}

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, log, func(next *config.Config) {
				if level, err := zerolog.ParseLevel(next.Log.Level); err == nil {
					zerolog.SetGlobalLevel(level)
					log.Info().Str("level", next.Log.Level).Msg("log level updated")
				}
			})
			if err != nil {
				log.Error().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	log.Info().Msg("hived running")
	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

func newLogger(cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return log, nil
}

// logTransport writes outgoing traffic to the log. The device-facing
// bridge attaches its own ports.Transport; this one keeps the daemon
// observable without it.
type logTransport struct {
	log zerolog.Logger
}

func (t logTransport) SendReply(deviceID string, reply *ports.Reply) error {
	t.log.Info().Str("device", deviceID).Str("event_id", reply.EventID).
		Str("output_type", reply.OutputType).Str("text", reply.Output.Text).
		Msg("reply")
	return nil
}

func (t logTransport) SendSynthesis(deviceID string, req *ports.SynthesisRequest) error {
	t.log.Info().Str("device", deviceID).Str("event_id", req.EventID).
		Msg("synthesis request")
	return nil
}
