package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/content"
	"reelfactory/internal/daemon"
	"reelfactory/internal/events"
	"reelfactory/internal/ipc"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/services/circlo"
	"reelfactory/internal/services/gemini"
	"reelfactory/internal/services/llm"
	"reelfactory/internal/storage"
	"reelfactory/internal/video"
	"reelfactory/internal/workflow"
)

// PIDFileName is written under paths.data_dir while the daemon runs.
const PIDFileName = "reelfactory.pid"

// Run starts the reelfactory daemon and blocks until SIGINT, SIGTERM or an
// IPC shutdown request.
func Run(cmdCtx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logPath := logging.LogFilePath(cfg.Paths.LogDir, time.Now())
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	pipelines, prompter, err := buildPipelines(signalCtx, cfg, store, logger)
	if err != nil {
		return err
	}
	manager := workflow.NewManager(cfg, store, events.NewHub(cfg.Workflow.SubscriberBuffer), logger, pipelines...)
	manager.SetPrompter(prompter)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.SocketPath, d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration, directory permissions and the job database"),
			logging.String(logging.FieldImpact, "no jobs can run"),
		)
		return err
	}
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("reelfactory daemon shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace()+5*time.Second)
	defer stopCancel()
	d.Stop(stopCtx)
	return nil
}

func buildPipelines(ctx context.Context, cfg *config.Config, store *jobs.Store, logger *slog.Logger) ([]workflow.Pipeline, workflow.Prompter, error) {
	media, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open media storage: %w", err)
	}
	text := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	generator := gemini.NewClient(gemini.Config{
		APIKey:       cfg.Gemini.APIKey,
		ImageModel:   cfg.Gemini.ImageModel,
		VideoModel:   cfg.Gemini.VideoModel,
		AspectRatio:  cfg.Gemini.AspectRatio,
		PollInterval: cfg.PollInterval(),
		PollAttempts: cfg.Gemini.PollMaxAttempts,
	})
	publisher := circlo.NewClient(circlo.Config{
		BaseURL:           cfg.Publisher.BaseURL,
		Token:             cfg.Publisher.Token,
		Profile:           cfg.Publisher.Profile,
		TimeoutSeconds:    cfg.Publisher.TimeoutSeconds,
		RequestsPerMinute: cfg.Publisher.RequestsPerMinute,
	})

	return []workflow.Pipeline{
		content.NewPipeline(cfg, content.Deps{
			LLM:       text,
			Images:    generator,
			Media:     media,
			Publisher: publisher,
			Store:     store,
		}),
		video.NewPipeline(cfg, video.Deps{
			LLM:      text,
			Renderer: generator,
			Media:    media,
			Store:    store,
		}),
	}, video.NewPrompter(text, cfg.Video.MaxSceneCount, logger), nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded in dataDir, or 0 when none is recorded.
func ReadPID(dataDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, PIDFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_model", cfg.LLM.Model),
		logging.Bool("gemini_key_present", strings.TrimSpace(cfg.Gemini.APIKey) != ""),
		logging.String("image_model", cfg.Gemini.ImageModel),
		logging.String("video_model", cfg.Gemini.VideoModel),
		logging.Bool("publisher_configured", strings.TrimSpace(cfg.Publisher.BaseURL) != "" && strings.TrimSpace(cfg.Publisher.Token) != ""),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("content_cron", cfg.Schedule.ContentCron),
	)
}
