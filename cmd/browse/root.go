package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/config"
	"github.com/timmy/rawgdex/internal/logger"
	"github.com/timmy/rawgdex/internal/rawg"
	"github.com/timmy/rawgdex/internal/repository"
	"github.com/timmy/rawgdex/internal/service"
	"github.com/timmy/rawgdex/internal/tui"
)

const rootCommandLong = `Browse the RAWG game catalog in the terminal.

Tabs page through RAWG feeds as you scroll. f/F cycles the genre filter,
/ searches by name and enter opens a game's detail.

The RAWG key comes from RAWG_API_KEY or rawg.api_key in the config file.
Logs go to --log-file so they never draw over the screen.`

type rootOptions struct {
	configPath string
	feeds      []string
	noCache    bool
	logFile    string
}

// NewRootCmd creates the browse command and its subcommands.
func NewRootCmd() *cobra.Command {
	opts := rootOptions{}

	cmd := &cobra.Command{
		Use:           "rawgdex",
		Short:         "Browse the RAWG game catalog",
		Long:          rootCommandLong,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default: CONFIG_PATH or ./configs/config.yaml)")
	cmd.Flags().StringSliceVar(&opts.feeds, "feeds", nil, "tabs to show, comma separated (see the feeds command)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "do not cache game details in the database")
	cmd.Flags().StringVar(&opts.logFile, "log-file", filepath.Join(os.TempDir(), "rawgdex.log"), "log file path")

	cmd.AddCommand(NewFeedsCmd())
	return cmd
}

// tuiLogConfig writes to the log file only; stdout belongs to the TUI.
func tuiLogConfig(path string) *logger.EnvConfig {
	cfg := logger.LoadFromEnv("rawgdex-browse")
	cfg.Environment = "tui"
	cfg.LogFile = path
	cfg.LogFileOnly = true
	return cfg
}

func validateFeeds(ids []string) error {
	for _, id := range ids {
		d, ok := catalog.Lookup(id)
		if !ok {
			return fmt.Errorf("unknown feed %q", id)
		}
		if d.Items != catalog.ItemGames {
			return fmt.Errorf("feed %q lists %s, only game feeds can be tabs", id, d.Items)
		}
	}
	return nil
}

func runBrowse(ctx context.Context, opts rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	feeds := make([]string, 0, len(opts.feeds))
	for _, f := range opts.feeds {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	if err := validateFeeds(feeds); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.SetDefaultLogger(logger.New(tuiLogConfig(opts.logFile)))
	defer logger.Sync()
	log := logger.GetDefault().WithField(logger.FieldComponent, "browse")

	client, err := rawg.New(rawg.Config{
		BaseURL:   cfg.RAWG.BaseURL,
		APIKey:    cfg.RAWG.APIKey,
		Timeout:   cfg.RAWG.Timeout,
		PageSize:  cfg.RAWG.PageSize,
		RateLimit: cfg.RAWG.RateLimit.RPS,
		Burst:     cfg.RAWG.RateLimit.Burst,
	})
	if err != nil {
		return fmt.Errorf("create RAWG client: %w", err)
	}

	var cache service.GameCache
	if !opts.noCache {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			log.WithError(err).Warn("Detail cache unavailable, continuing without it")
		} else {
			cache = repository.NewGameCacheRepository(db)
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
		}
	}
	details := service.NewDetailService(client, cache, log, service.DetailConfig{TTL: cfg.Cache.DetailTTL})

	model, err := tui.NewModel(ctx, catalog.New(client), details, tui.Options{
		Feeds:        feeds,
		FetchTimeout: cfg.RAWG.Timeout,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	log.WithField("feeds", strings.Join(feeds, ",")).Info("Starting browser")
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}
