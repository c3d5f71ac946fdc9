// inframon is the monitoring agent daemon: it runs the Temporal worker that
// hosts the repair workflows and activities, and serves the dashboard API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jordanhubbard/inframon/internal/api"
	"github.com/jordanhubbard/inframon/internal/audit"
	"github.com/jordanhubbard/inframon/internal/auth"
	"github.com/jordanhubbard/inframon/internal/cache"
	"github.com/jordanhubbard/inframon/internal/config"
	"github.com/jordanhubbard/inframon/internal/datastore"
	"github.com/jordanhubbard/inframon/internal/mcp"
	"github.com/jordanhubbard/inframon/internal/notify"
	"github.com/jordanhubbard/inframon/internal/oracle"
	"github.com/jordanhubbard/inframon/internal/telemetry"
	"github.com/jordanhubbard/inframon/internal/temporal"
)

const version = "1.0.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "inframon",
		Short:   "Infrastructure monitoring and repair agent daemon",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	// .env is optional; environment wins over file values.
	if err := godotenv.Load(); err == nil {
		log.Println("[Main] Loaded environment from .env")
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if cfg.Oracle.APIKey == "" && term.IsTerminal(int(syscall.Stdin)) {
		key, err := config.PromptForAPIKey()
		if err != nil {
			return err
		}
		cfg.Oracle.APIKey = key
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			return err
		}
		defer shutdown(ctx)
	}

	store := datastore.NewFileStore(cfg.Data.Dir)

	var oracleClient oracle.Protocol = oracle.NewClient(cfg.Oracle.Endpoint, cfg.Oracle.APIKey, cfg.Oracle.Timeout)
	if cfg.Cache.Enabled {
		cached, err := cache.New(cache.Config{URL: cfg.Cache.RedisURL, TTL: cfg.Cache.TTL}, oracleClient)
		if err != nil {
			return err
		}
		defer func() {
			hits, misses := cached.Stats()
			log.Printf("[Main] Oracle cache served %d hits, %d misses", hits, misses)
			cached.Close()
		}()
		oracleClient = cached
	}

	var trail *audit.Trail
	var err error
	if cfg.Audit.Enabled {
		trail, err = audit.New(cfg.Audit.DSN)
	} else {
		trail, err = audit.New("")
	}
	if err != nil {
		return err
	}
	defer trail.Close()

	var notifier *notify.Notifier
	if cfg.Notify.Enabled {
		notifier, err = notify.New(notify.Config{URL: cfg.Notify.URL, StreamName: cfg.Notify.StreamName})
		if err != nil {
			return err
		}
		defer notifier.Close()
	}

	manager, err := temporal.NewManager(cfg, store, oracleClient, trail, notifier)
	if err != nil {
		return err
	}
	defer manager.Stop()
	if err := manager.Start(); err != nil {
		return err
	}

	authMgr := auth.NewManager(cfg.Server.JWTSecret)
	if cfg.Server.AdminPassword != "" {
		if err := authMgr.AddUser("admin", cfg.Server.AdminPassword, "operator"); err != nil {
			return err
		}
	}

	server := api.NewServer(&cfg.Server, store, manager.Client(), authMgr, trail, cfg.Data.Dir)
	if err := server.Start(); err != nil {
		return err
	}

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(cfg, store, manager.Client())
		go func() {
			if err := mcpServer.ServeHTTP(ctx, cfg.MCP.Addr); err != nil {
				log.Printf("[Main] MCP server stopped: %v", err)
			}
		}()
	}

	log.Println("[Main] inframon is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Main] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
