package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"protein-updater/core/database"
	"protein-updater/core/loader"
	"protein-updater/core/logger"
	"protein-updater/core/metrics"
	"protein-updater/core/middleware/auth"
	"protein-updater/core/middleware/rayid"
	"protein-updater/core/reconcile"
	"protein-updater/core/storage"
	"protein-updater/core/uniprot"
	"protein-updater/feature/proteins"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := bootstrap()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		cfg := rt.cfg
		logg := rt.logger
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink := metrics.NewSink(registry)

		client, err := rt.storage()
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}
		if created, err := storage.EnsureBucket(context.Background(), client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			logg.Warn("Storage bucket unavailable", zap.Error(err))
		} else if created {
			logg.Info("Created storage bucket", zap.String("bucket", cfg.Storage.Bucket))
		}

		// The proteins feature stays disabled without a database
		var store reconcile.RecordStore
		var runner *reconcile.Runner
		if db, err := rt.database(); err != nil {
			logg.Warn("Optional database connection failed", zap.Error(err))
		} else {
			records := database.NewStore(db)
			source := uniprot.NewSource(client, cfg.Storage.Bucket, cfg.Uniprot, logg)
			engine := reconcile.NewEngine(cfg.Reconcile, source, reconcile.MultiSink{reconcile.NewLogSink(logg), sink})
			runner = reconcile.NewRunner(engine, records, cfg.Reconcile.Workers).Observe(sink)
			store = records
		}
		archive := uniprot.NewArchive(client, cfg.Storage.Bucket, cfg.Uniprot)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager()
		mgr.Register(proteins.NewFeature(store, runner, archive, logg))

		// RayID first so every later log line carries it
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		var public []string
		if cfg.Server.MetricsPath != "" {
			app.Get(cfg.Server.MetricsPath, metrics.Handler(registry))
			public = append(public, cfg.Server.MetricsPath)
		}

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: public}))

		loaded, err := mgr.LoadAll(app)
		if err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}
		logg.Info("Features loaded", zap.Strings("features", loaded))

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
