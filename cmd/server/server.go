package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paularlott/cli"
	"golang.org/x/sync/errgroup"

	"github.com/martinsuchenak/netcanvas/internal/api"
	"github.com/martinsuchenak/netcanvas/internal/checkpoint"
	"github.com/martinsuchenak/netcanvas/internal/codec"
	"github.com/martinsuchenak/netcanvas/internal/config"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/layout"
	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/mcp"
	"github.com/martinsuchenak/netcanvas/internal/mirror"
	"github.com/martinsuchenak/netcanvas/internal/snmpimport"
	"github.com/martinsuchenak/netcanvas/internal/topology"
	"github.com/martinsuchenak/netcanvas/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// ServerConfig holds everything needed to run the server
type ServerConfig struct {
	Config     *config.Config
	Store      *topology.Store
	MCPServer  *mcp.Server
	APIHandler *api.Handler
	Scheduler  *worker.Scheduler
}

// NewStore builds an empty topology store sized by cfg
func NewStore(cfg *config.Config) *topology.Store {
	return topology.New(
		topology.WithGrid(geometry.Dimension{Width: cfg.GridWidth, Height: cfg.GridHeight}),
		topology.WithMargin(cfg.ComponentMargin),
	)
}

// Routes builds the HTTP handler chain
func Routes(cfg *ServerConfig) http.Handler {
	mux := http.NewServeMux()
	cfg.APIHandler.RegisterRoutes(mux)
	mux.HandleFunc("/mcp", cfg.MCPServer.GetHTTPHandler())

	var handler http.Handler = mux
	if cfg.Config.IsAPIAuthEnabled() {
		handler = api.AuthMiddleware(cfg.Config.APIAuthToken, "/api/", handler)
	}
	handler = api.SecurityHeadersMiddleware(handler)
	return api.LoggingMiddleware(handler)
}

// RunServer serves HTTP and runs the scheduler until ctx is cancelled
func RunServer(ctx context.Context, cfg *ServerConfig) error {
	server := &http.Server{
		Addr:              cfg.Config.ListenAddr,
		Handler:           Routes(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Starting netcanvas server", "addr", cfg.Config.ListenAddr)
	log.Info("API available", "url", "http://localhost"+cfg.Config.ListenAddr+"/api/")
	log.Info("MCP available", "url", "http://localhost"+cfg.Config.ListenAddr+"/mcp")
	if cfg.Config.IsAPIAuthEnabled() {
		log.Info("API authentication enabled")
	}
	cfg.MCPServer.LogStartup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cfg.Scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	log.Info("Server stopped")
	return err
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Start the netcanvas server",
		Description: "Start the HTTP server with the topology API and MCP endpoint",
		Flags:       config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			log.Info("Configuration loaded", "config", cfg.String())

			layouts := layout.NewRegistry()
			if _, err := layouts.Get(cfg.LayoutEngine); err != nil {
				return fmt.Errorf("layout engine: %w", err)
			}

			db, err := mirror.OpenSQLite(cfg.DataDir)
			if err != nil {
				log.Error("Failed to initialize mirror", "error", err)
				return err
			}
			defer db.Close()
			log.Info("Mirror initialized", "backend", "SQLite", "path", db.Path())

			dispatcher := mirror.NewDispatcher(db, cfg.MirrorWorkers, cfg.MirrorQueue)
			dispatcher.Start()
			defer func() {
				dispatcher.Stop()
				st := dispatcher.Stats()
				log.Info("Mirror stopped", "applied", st.Applied, "failed", st.Failed)
			}()

			store := NewStore(cfg)
			if err := mirror.Restore(ctx, store, db, dispatcher); err != nil {
				log.Error("Failed to restore topology", "error", err)
				return err
			}

			importer := snmpimport.NewImporter(store, &snmpimport.SNMPWalker{
				Community: cfg.SNMPCommunity,
				Timeout:   cfg.SNMPTimeout,
			})

			scheduler := worker.NewScheduler()
			if cfg.IsCheckpointEnabled() {
				format, err := codec.ParseFormat(cfg.CheckpointFormat)
				if err != nil {
					return err
				}
				writer := checkpoint.NewWriter(cfg.DataDir, format, checkpoint.DefaultKeep)
				if err := scheduler.RegisterTask("checkpoint", "Snapshot checkpoint", cfg.CheckpointSchedule, writer.Task(store)); err != nil {
					return err
				}
				log.Info("Checkpoints enabled", "schedule", cfg.CheckpointSchedule, "dir", writer.Dir())
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			apiHandler := api.NewHandler(store,
				api.WithLayouts(layouts, cfg.LayoutEngine),
				api.WithImporter(importer),
				api.WithChangeLog(db),
			)

			return RunServer(ctx, &ServerConfig{
				Config:     cfg,
				Store:      store,
				MCPServer:  mcp.NewServer(store, cfg.MCPAuthToken),
				APIHandler: apiHandler,
				Scheduler:  scheduler,
			})
		},
	}
}
