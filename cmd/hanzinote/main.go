package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/annotate"
	"github.com/xxxsen/hanzinote/internal/config"
	"github.com/xxxsen/hanzinote/internal/db"
	"github.com/xxxsen/hanzinote/internal/filestore"
	"github.com/xxxsen/hanzinote/internal/handler"
	"github.com/xxxsen/hanzinote/internal/job"
	"github.com/xxxsen/hanzinote/internal/middleware"
	"github.com/xxxsen/hanzinote/internal/ocr"
	"github.com/xxxsen/hanzinote/internal/pinyin"
	"github.com/xxxsen/hanzinote/internal/pipeline"
	"github.com/xxxsen/hanzinote/internal/repo"
	"github.com/xxxsen/hanzinote/internal/schedule"
	"github.com/xxxsen/hanzinote/internal/service"
	"github.com/xxxsen/hanzinote/internal/textproc"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hanzinote",
		Short: "hanzinote backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run hanzinote server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildFileStore(cfg config.FileStoreConfig) (filestore.Store, error) {
	switch cfg.Type {
	case "s3":
		return filestore.NewStore("s3", cfg.S3)
	default:
		return filestore.NewStore("local", map[string]interface{}{
			"dir":        cfg.Dir,
			"public_url": cfg.PublicURL,
		})
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ocr_provider", cfg.OCR.Provider),
	)

	noteRepo := repo.NewNoteRepo(conn)
	pageRepo := repo.NewPageRepo(conn)

	store, err := buildFileStore(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	extractor, err := ocr.NewExtractor(cfg.OCR.Provider, cfg.OCR.Args)
	if err != nil {
		return fmt.Errorf("init ocr extractor: %w", err)
	}
	dict, err := pinyin.LoadFile(cfg.Pinyin.DictPath)
	if err != nil {
		return fmt.Errorf("load pinyin dict: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("pinyin dict loaded", zap.Int("entries", dict.Size()))

	annotator, err := annotate.NewStreamAnnotator(annotate.StreamConfig{
		Endpoint:             cfg.Annotate.Endpoint,
		APIKey:               cfg.Annotate.APIKey,
		HeaderTimeoutSeconds: cfg.Annotate.HeaderTimeoutSeconds,
	}, dict.Lookup)
	if err != nil {
		return fmt.Errorf("init annotator: %w", err)
	}

	asyncSink := pipeline.NewAsyncSink(service.NewPageSink(pageRepo), cfg.Pipeline.SinkQueueDepth)
	defer asyncSink.Close()
	runner := pipeline.NewRunner(annotator, asyncSink)

	cleaner := textproc.NewCleaner()
	splitterOpts := textproc.DefaultSplitterOptions()
	if cfg.Splitter.CommaMinLeft > 0 {
		splitterOpts.CommaMinLeft = cfg.Splitter.CommaMinLeft
	}
	if cfg.Splitter.MinFragmentLen > 0 {
		splitterOpts.MinFragmentLen = cfg.Splitter.MinFragmentLen
	}
	if cfg.Splitter.TitleScanLines > 0 {
		splitterOpts.TitleScanLines = cfg.Splitter.TitleScanLines
	}
	splitter := textproc.NewSplitter(splitterOpts)

	noteService := service.NewNoteService(noteRepo, pageRepo, store, extractor, cleaner, splitter, runner)
	exportService := service.NewExportService(noteService)

	deps := handler.RouterDeps{
		Notes:     handler.NewNoteHandler(noteService),
		Shares:    handler.NewShareHandler(noteService, exportService),
		Export:    handler.NewExportHandler(exportService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	staleAfter := time.Duration(cfg.Pipeline.StaleAfterMinutes) * time.Minute
	if err := scheduler.AddJob(job.NewStaleStreamJob(noteService, staleAfter), "*/10 * * * *"); err != nil {
		return fmt.Errorf("schedule stale stream job: %w", err)
	}
	if err := scheduler.AddJob(job.NewPhotoCleanupJob(pageRepo, store, 24*time.Hour), "30 3 * * *"); err != nil {
		return fmt.Errorf("schedule photo cleanup job: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
