package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/ghframe/browser"
	"github.com/hazyhaar/ghframe/bus"
	"github.com/hazyhaar/ghframe/config"
	"github.com/hazyhaar/ghframe/control"
	"github.com/hazyhaar/ghframe/dbopen"
	"github.com/hazyhaar/ghframe/frame"
	"github.com/hazyhaar/ghframe/history"
	"github.com/hazyhaar/ghframe/users"
)

func newRunCmd(opts *options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the embedded view and serve the control API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Control.Listen = listen
			}
			return run(cmd.Context(), opts, cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "control API address, e.g. 127.0.0.1:7411")
	return cmd
}

func run(ctx context.Context, opts *options, cfg *config.Config) error {
	logger := opts.logger()

	db, err := dbopen.Open(cfg.Database,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(config.Schema),
		dbopen.WithSchema(history.Schema),
		dbopen.WithSchema(users.Schema),
	)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	settings := config.NewStore(db)
	state, err := frame.LoadState(ctx, settings)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	b := bus.New(logger)
	hist := history.New(db)
	defer hist.Subscribe(b, logger)()

	names, err := users.New(users.Config{
		APIURL: cfg.Users.APIURL,
		Token:  cfg.Users.Token,
		DB:     db,
		TTL:    cfg.Users.CacheTTL,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL: cfg.Browser.Remote,
		Headless:  cfg.Browser.Headless,
		Stealth:   cfg.Browser.Stealth,
		DataDir:   cfg.Browser.DataDir,
		Devtools:  cfg.Browser.Devtools,
		Debounce:  cfg.Observer.Debounce,
		Logger:    logger,
	})
	defer mgr.Close()

	ctrl := frame.New(frame.Config{
		Opener:           mgr,
		Bus:              b,
		State:            state,
		Settings:         settings,
		Names:            names,
		Partition:        cfg.Frame.Partition,
		BaseURL:          cfg.Frame.BaseURL,
		NavDelay:         cfg.Frame.NavDelay,
		SettleDelay:      cfg.Frame.SettleDelay,
		SupersedePending: cfg.Frame.SupersedePending,
		Logger:           logger,
	})
	if err := ctrl.Init(ctx); err != nil {
		return fmt.Errorf("open view: %w", err)
	}
	defer ctrl.Close()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Control.Listen != "" {
		srv := control.New(control.Config{
			Bus:     b,
			Status:  ctrl.Status,
			History: hist,
			Logger:  logger,
		})
		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Control.Listen) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	logger.Info("ghframe: running", "db", cfg.Database, "partition", cfg.Frame.Partition, "control", cfg.Control.Listen)
	err = g.Wait()
	logger.Info("ghframe: shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
