// Command parlatore is the terminal client for the Parlatore voice tutor:
// it records speech from the microphone, ships finished utterances to the
// tutoring backend, and plays the synthesized answer.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/parlatore/parlatore/internal/chat"
	"github.com/parlatore/parlatore/internal/config"
	"github.com/parlatore/parlatore/internal/dispatch"
	"github.com/parlatore/parlatore/internal/observe"
	"github.com/parlatore/parlatore/internal/tutor"
	"github.com/parlatore/parlatore/pkg/audio"
	paplatform "github.com/parlatore/parlatore/pkg/audio/portaudio"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("list-devices", false, "list input devices and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "parlatore: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "parlatore: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// ── Audio platform ────────────────────────────────────────────────────────
	platform, err := paplatform.New()
	if err != nil {
		slog.Error("audio platform init failed", "err", err)
		return 1
	}

	if *listDevices {
		return printDevices(platform)
	}

	player, err := paplatform.NewPlayer()
	if err != nil {
		slog.Error("audio player init failed", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "parlatore"})
	if err != nil {
		slog.Error("metrics init failed", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObserve(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", cfg.Metrics.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// ── Backend client ────────────────────────────────────────────────────────
	var clientOpts []dispatch.Option
	if cfg.Backend.TimeoutSeconds > 0 {
		clientOpts = append(clientOpts, dispatch.WithTimeout(time.Duration(cfg.Backend.TimeoutSeconds*float64(time.Second))))
	}
	client, err := dispatch.NewClient(cfg.Backend.BaseURL, clientOpts...)
	if err != nil {
		slog.Error("backend client init failed", "err", err)
		return 1
	}

	if cfg.Backend.APIKey != "" {
		valid, err := client.VerifyAPIKey(ctx, cfg.Backend.APIKey, cfg.Tutor.Model)
		switch {
		case err != nil:
			slog.Warn("API key verification unavailable", "err", err)
		case !valid:
			fmt.Fprintln(os.Stderr, "parlatore: the configured API key was rejected by the backend")
			return 1
		}
	}

	// ── Conversation store ────────────────────────────────────────────────────
	store, err := chat.OpenStore(cfg.Storage.Path)
	if err != nil {
		slog.Error("conversation store init failed", "err", err)
		return 1
	}
	defer store.Close()

	// ── Session controller ────────────────────────────────────────────────────
	trimPolicy, err := audio.ParseTrimPolicy(cfg.Audio.TrimPolicy)
	if err != nil {
		slog.Error("invalid trim policy", "err", err)
		return 1
	}

	controller, err := tutor.NewController(ctx, platform, player, client, store, metrics, tutor.Config{
		Settings: dispatch.Settings{
			TutoringLanguage:  cfg.Tutor.TutoringLanguage,
			TutorsLanguage:    cfg.Tutor.TutorsLanguage,
			TutorsVoice:       cfg.Tutor.TutorsVoice,
			PartnersVoice:     cfg.Tutor.PartnersVoice,
			InterventionLevel: string(cfg.Tutor.InterventionLevel),
			DisableTutor:      cfg.Tutor.DisableTutor,
			IgnoreAccent:      cfg.Tutor.IgnoreAccent,
			Model:             cfg.Tutor.Model,
			PlaybackSpeed:     cfg.Tutor.PlaybackSpeed,
			APIKey:            cfg.Backend.APIKey,
		},
		MicrophoneID:     cfg.Audio.MicrophoneID,
		SilenceThreshold: cfg.Audio.SilenceThreshold,
		PauseTime:        time.Duration(cfg.Audio.PauseTimeSeconds * float64(time.Second)),
		MinValidDuration: time.Duration(cfg.Audio.MinValidDurationSeconds * float64(time.Second)),
		TrimPolicy:       trimPolicy,
	})
	if err != nil {
		slog.Error("controller init failed", "err", err)
		return 1
	}

	controller.Subscribe(printEvent)

	// ── Command loop ──────────────────────────────────────────────────────────
	g.Go(func() error {
		defer stop()
		return commandLoop(gctx, controller)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	if err := controller.Stop(); err != nil {
		slog.Warn("session stop error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// commandLoop reads interactive commands from stdin until EOF, "quit", or
// ctx cancellation.
func commandLoop(ctx context.Context, controller *tutor.Controller) error {
	fmt.Println("Commands: start, stop, done, new, switch <id>, list, homework, name, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "start":
			if err := controller.Start(ctx); err != nil {
				fmt.Println("error:", err)
			}
		case "stop":
			if err := controller.Stop(); err != nil {
				fmt.Println("error:", err)
			}
		case "done":
			controller.ManualStop()
		case "new":
			if _, err := controller.NewConversation(ctx); err != nil {
				fmt.Println("error:", err)
			}
		case "switch":
			if len(fields) < 2 {
				fmt.Println("usage: switch <id>")
				continue
			}
			id, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				fmt.Println("error: malformed conversation id")
				continue
			}
			if err := controller.SwitchConversation(id); err != nil {
				fmt.Println("error:", err)
			}
		case "list":
			for _, conv := range controller.Conversations() {
				name := conv.DisplayName
				if name == "" {
					name = conv.FallbackName()
				}
				fmt.Printf("  %d  %s  (%d turns)\n", conv.ID, name, len(conv.History))
			}
		case "homework":
			homework, err := controller.GenerateHomework(ctx)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(homework)
		case "name":
			name, err := controller.NameCurrentConversation(ctx)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("named:", name)
		case "quit", "exit":
			return nil
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
	return scanner.Err()
}

// printEvent renders session events as status lines. Sound-level events are
// skipped; at 50 samples per second they would drown the terminal.
func printEvent(ev tutor.Event) {
	switch ev.Type {
	case tutor.EventSoundLevel:
	case tutor.EventMonitoringStarted:
		fmt.Println("● listening…")
	case tutor.EventProcessingStarted:
		fmt.Println("● processing…")
	case tutor.EventUtteranceDiscarded:
		fmt.Println("● discarded:", ev.Message)
	case tutor.EventResponseReceived:
		fmt.Println("● response received")
	case tutor.EventPlaybackStarted:
		fmt.Println("● playing…")
	case tutor.EventSessionStopped:
		fmt.Println("● session stopped")
	case tutor.EventError:
		fmt.Println("● error:", ev.Message)
	case tutor.EventConversationCreated:
		fmt.Println("● new conversation", ev.ConversationID)
	case tutor.EventConversationSwitched:
		fmt.Println("● switched to conversation", ev.ConversationID)
	}
}

// printDevices lists input devices for the -list-devices flag.
func printDevices(platform audio.Platform) int {
	devices, err := platform.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parlatore: %v\n", err)
		return 1
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, d.ID, d.Name)
	}
	return 0
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
