package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rodentplay/rodentbot/internal/agent"
	"github.com/rodentplay/rodentbot/internal/chat"
	"github.com/rodentplay/rodentbot/internal/config"
	"github.com/rodentplay/rodentbot/internal/events"
	"github.com/rodentplay/rodentbot/internal/flavor"
	"github.com/rodentplay/rodentbot/internal/history"
	"github.com/rodentplay/rodentbot/internal/logging"
	"github.com/rodentplay/rodentbot/internal/tui"
	"github.com/rodentplay/rodentbot/internal/world"
	"github.com/rodentplay/rodentbot/internal/world/sim"
)

type runOptions struct {
	tui     bool
	natsURL string
	user    string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent in the offline world",
		Long: `Run the agent in a simulated flat world. Commands come from stdin
("!rodent goto 5 64 5", or "alex: !rodent follow" to speak as someone else),
from the TUI input line with --tui, or from a NATS subject when nats.url is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if opts.natsURL != "" {
				cfg.NATS.URL = opts.natsURL
			}

			logger, err := logging.New(cfg.Log, global.verbose, opts.tui)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, opts, logger, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show the dashboard instead of plain chat lines")
	cmd.Flags().StringVar(&opts.natsURL, "nats", "", "NATS server URL; overrides nats.url")
	cmd.Flags().StringVarP(&opts.user, "user", "u", "steve", "player name for lines typed without a speaker")
	return cmd
}

// run wires the offline world, the agent and its consumers together and
// blocks until ctx is done or the input ends.
func run(ctx context.Context, cfg *config.Config, opts *runOptions, logger *zap.Logger, stdin io.Reader, stdout io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := newWorld(cfg, opts.user)

	store, err := openHistory(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := events.NewEventBus()
	defer bus.Close()

	a, err := agent.New(agent.Options{
		Config:  cfg,
		World:   w,
		Bus:     bus,
		History: store,
		Flavor:  newFlavor(cfg.Flavor, logger),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// Subscribe before anything can publish so the greeting is not lost.
	recorderSub := bus.SubscribeAll(256)
	relaySub := bus.SubscribeAll(256)
	var tuiSub *events.Subscription
	if opts.tui {
		tuiSub = bus.SubscribeAll(512)
	}

	transport, err := newTransport(cfg, opts, stdin, stdout)
	if err != nil {
		return err
	}
	if transport != nil {
		defer transport.Close()
	}

	deaths := make(chan struct{}, 1)
	w.OnDeath(func() {
		select {
		case deaths <- struct{}{}:
		default:
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error { return history.NewRecorder(store, logger).Run(gctx, recorderSub) })
	g.Go(func() error {
		w.Hostiles(gctx, cfg.Defense.Hostiles, cfg.Sim.HostileInterval, cfg.Sim.HostileChance)
		return nil
	})
	g.Go(func() error {
		a.HandleSpawn(gctx)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-deaths:
				a.HandleDeath()
				a.HandleSpawn(gctx)
			}
		}
	})

	if transport != nil {
		msgs, err := transport.Receive(gctx)
		if err != nil {
			cancel()
			_ = g.Wait()
			a.Shutdown()
			return fmt.Errorf("starting chat transport: %w", err)
		}
		g.Go(func() error { return chat.NewRelay(transport, logger).Run(gctx, relaySub) })
		g.Go(func() error {
			// End of input ends the session unless the TUI owns it.
			if !opts.tui {
				defer cancel()
			}
			return a.Serve(gctx, msgs)
		})
	} else {
		relaySub.Close()
	}

	if opts.tui {
		model := tui.New(tuiSub, opts.user, func(msg chat.Message) {
			a.HandleChat(gctx, msg)
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
		g.Go(func() error {
			defer cancel()
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("running dashboard: %w", err)
			}
			return nil
		})
	}

	logger.Info("agent started",
		zap.String("name", cfg.Name),
		zap.String("prefix", cfg.Command.Prefix),
		zap.Bool("tui", opts.tui),
		zap.Bool("nats", cfg.NATS.URL != ""))

	err = g.Wait()
	a.Shutdown()
	logger.Info("agent stopped")
	return err
}

// newWorld builds the offline world with the local player standing next to
// the agent.
func newWorld(cfg *config.Config, user string) *sim.World {
	sc := sim.DefaultConfig()
	sc.Speed = cfg.Sim.Speed
	sc.AcquireAllowed = cfg.Sim.AcquireAllowed
	sc.GameMode = cfg.Sim.GameMode

	w := sim.New(sc)
	w.Flatland(cfg.Sim.Radius)
	if user != "" {
		w.Spawn(world.Entity{
			Name:     user,
			Player:   true,
			Health:   20,
			Position: world.Vec3{X: 3.5, Y: 64, Z: 0.5},
		})
	}
	return w
}

func openHistory(ctx context.Context, cfg config.HistoryConfig) (history.Store, error) {
	if cfg.Path == "" {
		return history.NewMemoryStore(ctx)
	}
	return history.NewSQLiteStore(ctx, cfg.Path)
}

func newFlavor(cfg config.FlavorConfig, logger *zap.Logger) *flavor.Generator {
	if cfg.Command == "" {
		return nil
	}
	retry := flavor.DefaultRetryConfig()
	retry.MaxRetries = cfg.Retries
	return flavor.New(
		flavor.NewCommandSource(cfg.Command, cfg.Args...),
		flavor.Options{Timeout: cfg.Timeout, Retry: retry},
		logger,
	)
}

// newTransport picks where chat comes from: NATS when configured, stdin
// otherwise. With the TUI and no NATS there is no transport; the dashboard
// input line feeds the agent directly.
func newTransport(cfg *config.Config, opts *runOptions, stdin io.Reader, stdout io.Writer) (chat.Transport, error) {
	if cfg.NATS.URL != "" {
		t, err := chat.DialNATS(chat.NATSOptions{
			URL:      cfg.NATS.URL,
			Inbound:  cfg.NATS.Inbound,
			Outbound: cfg.NATS.Outbound,
			Name:     cfg.NATS.Name,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	if opts.tui {
		return nil, nil
	}
	return chat.NewConsole(stdin, stdout, opts.user, cfg.Name), nil
}
