package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vonshlovens/notion-sync/internal/assets"
	"github.com/vonshlovens/notion-sync/internal/config"
	"github.com/vonshlovens/notion-sync/internal/db"
	"github.com/vonshlovens/notion-sync/internal/notion"
	"github.com/vonshlovens/notion-sync/internal/seed"
	"github.com/vonshlovens/notion-sync/internal/server"
	"github.com/vonshlovens/notion-sync/internal/store"
	"github.com/vonshlovens/notion-sync/internal/sync"
	"github.com/vonshlovens/notion-sync/internal/watcher"
)

var (
	cfgFile string
	verbose bool
	logFile string
	version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "notion-sync",
		Short: "Sync a Notion workspace into a static site's content tree",
		Long: heredoc.Doc(`
			notion-sync pulls site settings, homepage sections, collections, authors
			and navbar pages from a Notion workspace into Markdown and JSON files.

			Credentials come from the environment or a .env file:
			  NOTION_TOKEN         integration token
			  NOTION_ROOT_PAGE_ID  id or URL of the page holding the site content
		`),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			var out io.Writer = os.Stderr
			if logFile != "" {
				out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
					Filename:   logFile,
					MaxSize:    10,
					MaxBackups: 3,
				})
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file, rotated at 10MB")

	rootCmd.AddCommand(
		syncCmd(),
		seedCmd(),
		statusCmd(),
		serveCmd(),
		migrateCmd(),
		initCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// loadConfig loads the config and checks the Notion credentials
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *notion.Client {
	return notion.NewClient(notion.ClientOptions{
		BaseURL:       cfg.Notion.APIURL,
		Token:         cfg.Notion.Token,
		Version:       cfg.Notion.Version,
		PageSize:      cfg.Notion.PageSize,
		HTTPClient:    &http.Client{Timeout: cfg.Sync.Timeout()},
		RetryAttempts: cfg.Sync.RetryAttempts,
		RetryDelay:    cfg.Sync.RetryDelay(),
	})
}

// workspace is everything a sync run needs, shared between runs
type workspace struct {
	cfg    *config.Config
	client *notion.Client
	state  *store.StateTracker
	store  *store.Store
	images *assets.Materializer
	mirror *db.DB
}

func openWorkspace(ctx context.Context, cfg *config.Config) (*workspace, error) {
	stateDir, err := config.GetStateDir()
	if err != nil {
		return nil, err
	}
	state, err := store.NewStateTracker(stateDir, cfg.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	ws := &workspace{
		cfg:    cfg,
		client: newClient(cfg),
		state:  state,
		store:  store.New(cfg.ContentDir, state),
		images: assets.New(cfg.PublicDir, &http.Client{Timeout: 2 * cfg.Sync.Timeout()}, state),
	}

	if cfg.Database.Enabled {
		database, err := db.New(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		ws.mirror = database
	}
	return ws, nil
}

func (ws *workspace) Close() {
	if ws.mirror != nil {
		ws.mirror.Close()
	}
}

func (ws *workspace) engine(out io.Writer, progress bool) (*sync.Engine, error) {
	opts := sync.Options{
		API:        ws.client,
		RootPageID: ws.cfg.Notion.RootPageID,
		Store:      ws.store,
		Images:     ws.images,
		Sync:       ws.cfg.Sync,
		Out:        out,
		Progress:   progress,
	}
	if ws.mirror != nil {
		opts.Mirror = ws.mirror
	}
	engine, err := sync.NewEngine(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync engine: %w", err)
	}
	return engine, nil
}

func syncCmd() *cobra.Command {
	var only []string
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync every content kind from Notion, then exit",
		Long: heredoc.Doc(`
			Runs every sync step in order: site config, collection settings, code
			injection, advanced config, homepage sections, authors, each collection
			and the navbar pages. A failing step is reported and the rest still run;
			the command exits non-zero when any step failed.
		`),
		Example: heredoc.Doc(`
			notion-sync sync
			notion-sync sync --only site --only 'collection/*'
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(only) > 0 {
				cfg.Sync.Only = only
			}

			ws, err := openWorkspace(ctx, cfg)
			if err != nil {
				return err
			}
			defer ws.Close()

			engine, err := ws.engine(os.Stdout, !noProgress)
			if err != nil {
				return err
			}
			report, err := engine.SyncAll(ctx)
			if err != nil {
				return fmt.Errorf("sync failed in %d step(s): %w", len(report.Failed()), err)
			}

			fmt.Println("Sync completed successfully.")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "run only the steps matching these glob patterns")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the collection progress bars")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create sample content in an empty Notion root page",
		Long: heredoc.Doc(`
			Creates every container the sync reads (site config, collections, code
			injection, advanced config, home sections, authors, navbar pages) with a
			few sample rows. The root page must not hold any page or database yet.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := newClient(cfg)
			res, err := seed.New(client, client, os.Stdout).Seed(ctx, cfg.Notion.RootPageID)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			fmt.Printf("Seeded %d databases and %d pages.\n", res.Databases, res.Pages)
			fmt.Println("Run 'notion-sync sync' to pull the sample content.")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last sync and the local content",
		Long: heredoc.Doc(`
			Shows the last full sync and its failed steps, counts the files in the
			content tree, lists local image links whose files are missing and, when
			the mirror is enabled, the database status.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			stateDir, err := config.GetStateDir()
			if err != nil {
				return err
			}
			state, err := store.NewStateTracker(stateDir, cfg.ContentDir)
			if err != nil {
				return fmt.Errorf("failed to load state: %w", err)
			}

			fmt.Println("=== notion-sync status ===")
			fmt.Printf("Content: %s\n", cfg.ContentDir)
			fmt.Printf("Public:  %s\n", cfg.PublicDir)
			fmt.Println()

			if last := state.GetLastFullSync(); last != nil {
				fmt.Printf("Last sync: %s\n", last.Format(time.RFC3339))
			} else {
				fmt.Println("Last sync: never")
			}
			if failed := state.FailedSteps(); len(failed) > 0 {
				fmt.Printf("  Failed steps: %v\n", failed)
			}
			fmt.Printf("  Tracked files: %d\n", state.FileCount())
			fmt.Printf("  Assets: %d\n", state.AssetCount())
			fmt.Println()

			inv, err := store.New(cfg.ContentDir, state).Inspect(cfg.PublicDir)
			if err != nil {
				return fmt.Errorf("failed to inspect content: %w", err)
			}
			fmt.Printf("Markdown files: %d\n", inv.Items())
			dirs := make([]string, 0, len(inv.Markdown))
			for dir := range inv.Markdown {
				dirs = append(dirs, dir)
			}
			sort.Strings(dirs)
			for _, dir := range dirs {
				fmt.Printf("  %s: %d\n", dir, inv.Markdown[dir])
			}
			fmt.Printf("Config documents: %d\n", len(inv.Documents))
			if len(inv.Broken) > 0 {
				fmt.Printf("Broken image links: %d\n", len(inv.Broken))
				for _, b := range inv.Broken {
					fmt.Printf("  %s -> %s\n", b.File, b.Ref)
				}
			}

			if !cfg.Database.Enabled {
				return nil
			}
			fmt.Println()
			database, err := db.New(ctx, &cfg.Database)
			if err != nil {
				fmt.Printf("Database Status: Disconnected\n")
				fmt.Printf("Error: %v\n", err)
				return nil
			}
			defer database.Close()

			status, err := database.GetStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			fmt.Printf("Database Status: Connected\n")
			fmt.Printf("  Host: %s\n", cfg.Database.Host)
			fmt.Printf("  Schema: %s\n", cfg.Database.Schema)
			fmt.Printf("  Items: %d\n", status.TotalItems)
			fmt.Printf("  Documents: %d\n", status.TotalDocuments)
			if status.LastSyncTime != nil {
				fmt.Printf("  Last mirror update: %s\n", status.LastSyncTime.Format(time.RFC3339))
			}

			itemPaths, err := database.GetAllItemPaths(ctx)
			if err != nil {
				return fmt.Errorf("failed to list mirrored items: %w", err)
			}
			docPaths, err := database.GetAllDocumentPaths(ctx)
			if err != nil {
				return fmt.Errorf("failed to list mirrored documents: %w", err)
			}
			stale := append(db.MissingPaths(itemPaths, inv.Files), db.MissingPaths(docPaths, inv.Documents)...)
			if len(stale) > 0 {
				fmt.Printf("  Rows without a local file: %d\n", len(stale))
				for _, p := range stale {
					fmt.Printf("    %s\n", p)
				}
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string
	var initial bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dev server for refreshing content from the site preview",
		Long: heredoc.Doc(`
			Serves POST /api/refresh, which runs a sync and streams its progress,
			and GET /api/events, a server-sent event stream of changes to the
			content directory.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Addr = addr
			}

			ws, err := openWorkspace(ctx, cfg)
			if err != nil {
				return err
			}
			defer ws.Close()

			run := func(ctx context.Context, out io.Writer) error {
				engine, err := ws.engine(out, false)
				if err != nil {
					return err
				}
				_, err = engine.SyncAll(ctx)
				return err
			}

			if initial {
				if err := run(ctx, os.Stdout); err != nil {
					slog.Error("initial sync failed", "error", err)
				}
			}

			w, err := watcher.New(watcher.Options{
				Root:     cfg.ContentDir,
				Debounce: time.Duration(cfg.Serve.WatchDebounceMs) * time.Millisecond,
				Ignore:   cfg.Serve.IgnorePatterns,
			})
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer w.Close()

			fmt.Printf("Serving on http://%s. Press Ctrl+C to stop.\n", cfg.Serve.Addr)
			err = server.New(run, w.Changes()).ListenAndServe(ctx, cfg.Serve.Addr)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from serve.addr)")
	cmd.Flags().BoolVar(&initial, "sync", false, "run a sync before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the mirror database migrations",
		Long:  `Creates the site schema if needed and applies the embedded migrations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.Database.Enabled {
				return fmt.Errorf("the database mirror is disabled; set database.enabled in the config")
			}

			database, err := db.New(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			if status {
				return database.MigrationStatus(ctx)
			}
			if err := database.RunMigrations(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Println("Migrations completed successfully.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print the migration status instead of migrating")
	return cmd
}

func initCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				dir, err := config.GetStateDir()
				if err != nil {
					return err
				}
				path = filepath.Join(dir, "config.yaml")
			}

			if err := config.WriteTemplate(path); err != nil {
				return err
			}

			fmt.Printf("Config file written to: %s\n", path)
			fmt.Print(heredoc.Doc(`

				Next steps:
				  1. Share your root page with a Notion integration.
				  2. export NOTION_TOKEN=... NOTION_ROOT_PAGE_ID=...
				  3. notion-sync seed   (optional, for an empty root page)
				  4. notion-sync sync
			`))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "where to write the config (default: user config dir)")
	return cmd
}
