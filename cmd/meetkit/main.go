package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/avidela/meetkit/internal/adapters/media"
	"github.com/avidela/meetkit/internal/adapters/socket"
	"github.com/avidela/meetkit/internal/adapters/status"
	"github.com/avidela/meetkit/internal/config"
	"github.com/avidela/meetkit/internal/domain"
	"github.com/avidela/meetkit/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	fs := pflag.NewFlagSet("meetkit", pflag.ContinueOnError)
	var (
		signalURL = fs.StringP("signal-url", "s", cfg.SignalURL, "signaling endpoint")
		room      = fs.StringP("room", "r", cfg.Room, "room to join or create")
		name      = fs.StringP("name", "n", cfg.DisplayName, "display name")
		owner     = fs.Bool("owner", cfg.Owner, "create the room as its owner")
		logLevel  = fs.StringP("log-level", "l", cfg.LogLevel, "log level")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("failed to parse command line arguments")
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	zerolog.SetGlobalLevel(lvl)

	if *room == "" {
		log.Fatal().Msg("room is required")
	}

	channel := socket.NewChannel(socket.Config{
		URL:        *signalURL,
		SendBuffer: cfg.SendBuffer,
	})

	engine, err := media.NewEngine(media.DefaultConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create media engine")
	}

	coord, err := session.NewCoordinator(session.Options{
		Room:      domain.RoomName(*room),
		LocalName: *name,
		Owner:     *owner,
		RecordDir: cfg.RecordDir,
	}, channel, engine, session.NewMemoryCanvas(), logNotifier{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create coordinator")
	}
	engine.SetLocalID(coord.Local().ID)
	if err := engine.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start media engine")
	}

	engine.OnLocalVideoSample(func(chunk []byte) {
		if err := coord.Recorder().WriteChunk(chunk); err != nil {
			log.Error().Err(err).Msg("recording write")
		}
	})

	if err := coord.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start session")
	}

	probe, err := socket.NewHealthProbe(*signalURL)
	if err != nil {
		log.Fatal().Err(err).Msg("bad signal url")
	}
	r := status.SetupRouter(cfg.Mode, coord, probe)
	srv := &http.Server{
		Addr:    cfg.StatusAddr,
		Handler: r,
	}
	go func() {
		log.Info().Str("addr", cfg.StatusAddr).Msg("status server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server error")
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		coord.LeaveRoom()
	case <-coord.Done():
		log.Info().Msg("session ended")
	}
	coord.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server forced to shutdown")
	}
	log.Info().Msg("exited gracefully")
}

// logNotifier renders session deltas to the log; a UI would subscribe here.
type logNotifier struct{}

func (logNotifier) ParticipantsChanged(total int) {
	log.Info().Int("total", total).Msg("participants changed")
}

func (logNotifier) JoinRequested(name string) {
	log.Info().Str("name", name).Msg("join requested")
}

func (logNotifier) ChatAppended(msg domain.ChatMessage) {
	log.Info().Str("from", msg.AuthorName).Str("text", msg.Text).Msg("chat")
}

func (logNotifier) FeedChanged(owner domain.ParticipantID, state domain.FeedState) {
	log.Info().Str("owner", string(owner)).Str("state", string(state)).Msg("feed changed")
}

func (logNotifier) SessionEnded(phase domain.Phase) {
	log.Info().Stringer("phase", phase).Msg("session ended")
}
