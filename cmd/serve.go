package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"taskgrid.com/taskgrid/internal/cache"
	config "taskgrid.com/taskgrid/internal/configs"
	"taskgrid.com/taskgrid/internal/events"
	"taskgrid.com/taskgrid/internal/filters"
	httpapi "taskgrid.com/taskgrid/internal/http"
	model "taskgrid.com/taskgrid/internal/models"
	"taskgrid.com/taskgrid/internal/realtime"
	repository "taskgrid.com/taskgrid/internal/repositories"
	"taskgrid.com/taskgrid/internal/services"
	"taskgrid.com/taskgrid/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the task data layer",
	Long:  "Starts the local task query engine, its HTTP surface and the real-time mutation subscriber",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Println(".env file not found, using environment variables")
		}

		cfg := config.Load()
		database := config.NewDatabaseClient(cfg.DatabaseDSN)
		taskRepo := repository.NewTaskRepository(database)
		stateRepo := repository.NewStateRepository(database)

		recordStore := store.NewRecordStore()
		rowCache := cache.NewRowCache(cfg.RowCacheSize)
		bus := events.NewBus()

		queryService := services.NewQueryService(recordStore, rowCache)
		modeSelector := services.NewModeSelector(queryService, rowCache, cfg.MaterializeThreshold)
		filterService := filters.NewFilterService(stateRepo)
		refreshService := services.NewRefreshService(
			modeSelector,
			rowCache,
			filterService,
			bus,
			time.Duration(cfg.ApprovalGraceSeconds)*time.Second,
		)
		defer refreshService.Close()
		refreshService.SetInvalidatedFunc(func(qc model.QueryContext) {
			log.Printf("context invalidated: workspace=%s search=%q", qc.Workspace, qc.Search)
		})

		syncService := services.NewSyncService(
			recordStore,
			taskRepo,
			bus,
			time.Duration(cfg.UndoWindowSeconds)*time.Second,
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := syncService.Bootstrap(ctx); err != nil {
			log.Fatalf("bootstrap failed: %v", err)
		}
		log.Printf("record store ready with %d tasks", recordStore.Len())

		redisClient := config.NewRedisClient(cfg.RedisAddr)
		defer redisClient.Close()

		source := realtime.NewRedisMutationSource(redisClient, cfg.RedisEventsChannel)
		dispatcher := realtime.NewDispatcher(source, syncService)
		go func() {
			if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("realtime subscriber stopped: %v", err)
			}
		}()

		e := echo.New()
		handler := httpapi.NewHandler(queryService, modeSelector, refreshService, filterService, syncService)
		httpapi.Register(e, handler, cfg.RateLimit)

		go func() {
			log.Printf("HTTP server listening on %s", cfg.AppURL)
			if err := e.Start(cfg.AppURL); err != nil {
				log.Printf("server stopped: %v", err)
			}
		}()

		<-ctx.Done()

		echoCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		_ = e.Shutdown(echoCtx)

		log.Println("task data layer shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
