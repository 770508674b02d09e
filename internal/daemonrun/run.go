package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/anime/anilist"
	"github.com/nexelor/media-collector/internal/anime/jikan"
	"github.com/nexelor/media-collector/internal/anime/mal"
	"github.com/nexelor/media-collector/internal/config"
	"github.com/nexelor/media-collector/internal/daemon"
	"github.com/nexelor/media-collector/internal/httpclient"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/notifications"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/ratelimit"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
	"github.com/nexelor/media-collector/internal/tracing"
)

// staleDownloadAge expires temp files left by picture downloads that were
// interrupted mid-write.
const staleDownloadAge = 24 * time.Hour

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the media-collector daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("media-collector-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		RunID:            runID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logSourceSnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update media-collector.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "media-collector-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.PictureDir, Pattern: ".*.tmp", MaxAge: staleDownloadAge},
	)

	pidPath := cfg.PIDPath()
	if err := daemon.WritePID(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	shutdownTracing, err := tracing.Init(signalCtx, cfg.Tracing)
	if err != nil {
		logging.WarnWithContext(logger, "tracing disabled", "tracing_init_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check tracing.endpoint"),
			logging.String(logging.FieldImpact, "task spans are not exported"),
		)
	} else {
		defer func() {
			ctx, cancelTracing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelTracing()
			_ = shutdownTracing(ctx)
		}()
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open document store", logging.Error(err))
		return err
	}

	notifier, closeNotifier, err := notifications.NewService(cfg)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("init notifications: %w", err)
	}
	defer closeNotifier()

	comps, err := assemble(cfg, st, notifier, logger)
	if err != nil {
		_ = st.Close()
		return err
	}

	d, err := daemon.New(cfg, logger, comps)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check api.bind and the lock file in data_dir"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("media-collector daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"),
	)
	d.Stop()
	return nil
}

// assemble builds the queues, collectors, and workers for the enabled
// modules. Each enabled module gets its own queue and worker.
func assemble(cfg *config.Config, st *store.Store, notifier notifications.Service, logger *slog.Logger) (daemon.Components, error) {
	clients, err := httpclient.NewClients(cfg, ratelimit.NewRegistry(), logger)
	if err != nil {
		return daemon.Components{}, fmt.Errorf("init http clients: %w", err)
	}

	registry := scheduler.NewRegistry()
	dispatcher := scheduler.NewDispatcher()
	comps := daemon.Components{Store: st, Dispatcher: dispatcher}

	if cfg.Pictures.Enabled {
		comps.Pictures, err = picture.NewFetcher(clients.Pictures, cfg.Paths.PictureDir)
		if err != nil {
			return daemon.Components{}, err
		}
		picture.Register(registry, comps.Pictures)
		dispatcher.Add(scheduler.NewQueue(picture.Queue, cfg.Scheduler.InboxCapacity))
	}
	if cfg.Sources.MAL.Enabled {
		var jikanClient *jikan.Client
		if cfg.Sources.Jikan.Enabled {
			jikanClient = jikan.NewClient(clients.Jikan, cfg.Sources.Jikan.BaseURL)
		}
		comps.MAL = mal.NewCollector(mal.NewClient(clients.MAL, cfg.Sources.MAL.BaseURL), jikanClient, comps.Pictures)
		mal.Register(registry, comps.MAL)
		dispatcher.Add(scheduler.NewQueue(anime.QueueMAL, cfg.Scheduler.InboxCapacity))
	}
	if cfg.Sources.AniList.Enabled {
		comps.AniList = anilist.NewCollector(anilist.NewClient(clients.AniList, cfg.Sources.AniList.BaseURL), comps.Pictures)
		anilist.Register(registry, comps.AniList)
		dispatcher.Add(scheduler.NewQueue(anime.QueueAniList, cfg.Scheduler.InboxCapacity))
	}
	if len(dispatcher.Names()) == 0 {
		return daemon.Components{}, errors.New("no collector modules are enabled")
	}

	listener := notifications.NewListener(notifier,
		cfg.Notifications.TaskFailures,
		cfg.Notifications.TaskCompletions,
		time.Duration(cfg.Notifications.RequestTimeout)*time.Second,
		logger,
	)
	resources := scheduler.Resources{
		Documents: st,
		HTTP:      clients.Transport,
		Submitter: dispatcher,
		Logger:    logger,
	}
	for _, name := range dispatcher.Names() {
		queue, _ := dispatcher.Queue(name)
		opts := []scheduler.WorkerOption{
			scheduler.WithListener(listener),
			scheduler.WithAdmitWindow(cfg.Scheduler.AdmitWindow()),
			scheduler.WithLogger(logger),
		}
		if cfg.Scheduler.ReplayPending {
			opts = append(opts, scheduler.WithRegistry(registry))
		}
		comps.Workers = append(comps.Workers, scheduler.NewWorker(queue, st, resources, opts...))
	}
	return comps, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "media-collector.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logSourceSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("source snapshot",
		logging.String(logging.FieldEventType, "source_snapshot"),
		logging.Bool("mal_enabled", cfg.Sources.MAL.Enabled),
		logging.Bool("mal_key_present", strings.TrimSpace(cfg.Sources.MAL.APIKey) != ""),
		logging.Float64("mal_rate", cfg.Sources.MAL.RateLimit),
		logging.Bool("jikan_enabled", cfg.Sources.Jikan.Enabled),
		logging.Float64("jikan_rate", cfg.Sources.Jikan.RateLimit),
		logging.Bool("anilist_enabled", cfg.Sources.AniList.Enabled),
		logging.Float64("anilist_rate", cfg.Sources.AniList.RateLimit),
		logging.Bool("pictures_enabled", cfg.Pictures.Enabled),
		logging.String("picture_dir", cfg.Paths.PictureDir),
		logging.Bool("replay_pending", cfg.Scheduler.ReplayPending),
		logging.Bool("notifications", cfg.Notifications.NtfyTopic != "" || cfg.Notifications.RedisURL != ""),
		logging.Bool("tracing", cfg.Tracing.Enabled),
	)
}
