package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/nexelor/media-collector/internal/anime/anilist"
	"github.com/nexelor/media-collector/internal/anime/mal"
	"github.com/nexelor/media-collector/internal/config"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

// shutdownTimeout bounds how long Stop waits for workers to drain.
const shutdownTimeout = 30 * time.Second

// Components are the pieces daemonrun assembles. Nil collectors mark
// disabled modules.
type Components struct {
	Store      *store.Store
	Dispatcher *scheduler.Dispatcher
	Workers    []*scheduler.Worker
	MAL        *mal.Collector
	AniList    *anilist.Collector
	Pictures   *picture.Fetcher
}

// Daemon runs the scheduler workers and REST listener and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  Components
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	APIAddress   string
	DatabasePath string
	LockFilePath string
	Queues       []string
	Inbox        map[string]int
}

// New constructs a daemon around assembled components.
func New(cfg *config.Config, logger *slog.Logger, comps Components) (*Daemon, error) {
	if cfg == nil || comps.Store == nil || comps.Dispatcher == nil {
		return nil, errors.New("daemon requires config, store, and dispatcher")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		comps:    comps,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg.API.Bind, cfg.API.Token, apiDeps{
		store:     comps.Store,
		submitter: comps.Dispatcher,
		inbox:     d.inbox,
		mal:       comps.MAL,
		anilist:   comps.AniList,
		pictures:  comps.Pictures,
	}, logger)
	return d, nil
}

// Start acquires the lock, launches one goroutine per worker, and starts
// the REST listener.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another media-collector daemon instance is already running")
	}

	// Workers outlive ctx: Stop sends the queue stop signal first and only
	// cancels them once shutdownTimeout has passed.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(runCtx)
	for _, worker := range d.comps.Workers {
		group.Go(func() error {
			if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = group.Wait()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.group = group
	d.running.Store(true)
	d.logger.Info("media-collector daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Int("workers", len(d.comps.Workers)),
	)
	return nil
}

// Stop halts admission, lets workers finish what is already in their
// inboxes, then releases the lock. Tasks admitted but not executed keep
// their Pending records.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.api.stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := d.comps.Dispatcher.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(d.logger, "queue shutdown incomplete", "queue_shutdown_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "workers cancelled before draining"),
		)
		d.cancel()
	}

	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			d.logger.Error("worker exited with error", logging.Error(err))
		}
	case <-shutdownCtx.Done():
		d.cancel()
		<-done
	}
	d.cancel()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.cancel = nil
	d.group = nil
	d.running.Store(false)
	d.logger.Info("media-collector daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.comps.Store.Close()
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) inbox() map[string]int {
	out := make(map[string]int)
	for _, name := range d.comps.Dispatcher.Names() {
		if q, ok := d.comps.Dispatcher.Queue(name); ok {
			out[name] = q.Pending()
		}
	}
	return out
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		APIAddress:   d.api.addr(),
		DatabasePath: d.comps.Store.Path(),
		LockFilePath: d.lockPath,
		Queues:       d.comps.Dispatcher.Names(),
		Inbox:        d.inbox(),
	}
}

// ReadPID returns the PID recorded at path, or 0 when absent.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

// WritePID records the current process id at path.
func WritePID(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// LockHeld reports whether another process holds the daemon lock at path.
func LockHeld(path string) (bool, error) {
	probe := flock.New(path)
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
