package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"

	"github.com/hylla/shopfloor/internal/app"
)

// filePrefix starts every backup file name.
const filePrefix = "shopfloor-"

// fileTimeLayout orders backup file names chronologically.
const fileTimeLayout = "20060102T150405.000Z"

// DefaultKeep is the retention used when none is configured.
const DefaultKeep = 14

// SnapshotSource exports the current application state.
type SnapshotSource interface {
	ExportSnapshot(ctx context.Context, includeArchived bool) (app.Snapshot, error)
}

// WriterConfig configures backup file output.
type WriterConfig struct {
	Dir    string
	Keep   int
	Format Format
}

// Writer writes snapshot files and prunes old ones.
type Writer struct {
	source SnapshotSource
	cfg    WriterConfig
	clock  func() time.Time
	logger *log.Logger
}

// NewWriter constructs a backup writer. A nil logger discards output.
func NewWriter(source SnapshotSource, cfg WriterConfig, clock func() time.Time, logger *log.Logger) (*Writer, error) {
	if source == nil {
		return nil, fmt.Errorf("snapshot source is required")
	}
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup dir is required")
	}
	if cfg.Keep <= 0 {
		cfg.Keep = DefaultKeep
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Writer{source: source, cfg: cfg, clock: clock, logger: logger}, nil
}

// WriteOnce exports a full snapshot, archived orders included, and returns the written path.
func (w *Writer) WriteOnce(ctx context.Context) (string, error) {
	snap, err := w.source.ExportSnapshot(ctx, true)
	if err != nil {
		return "", fmt.Errorf("export snapshot: %w", err)
	}
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, snap, w.cfg.Format); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := filePrefix + w.clock().UTC().Format(fileTimeLayout) + w.cfg.Format.Ext()
	path := filepath.Join(w.cfg.Dir, name)
	tmp, err := os.CreateTemp(w.cfg.Dir, ".tmp-"+filePrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create temp backup: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("publish backup: %w", err)
	}

	removed, err := w.prune()
	if err != nil {
		return path, err
	}
	w.logger.Info("snapshot backup written", "path", path, "runs", len(snap.Runs), "orders", len(snap.Orders), "pruned", removed)
	return path, nil
}

// Files lists backup files oldest first.
func (w *Writer) Files() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) {
			continue
		}
		if ext := filepath.Ext(name); ext != ".json" && ext != ".yaml" {
			continue
		}
		out = append(out, filepath.Join(w.cfg.Dir, name))
	}
	slices.Sort(out)
	return out, nil
}

// prune removes the oldest files beyond the retention count.
func (w *Writer) prune() (int, error) {
	files, err := w.Files()
	if err != nil {
		return 0, err
	}
	excess := len(files) - w.cfg.Keep
	for i := 0; i < excess; i++ {
		if err := os.Remove(files[i]); err != nil && !os.IsNotExist(err) {
			return i, fmt.Errorf("prune backup %s: %w", files[i], err)
		}
	}
	return max(excess, 0), nil
}

// Scheduler runs a Writer on a fixed interval.
type Scheduler struct {
	scheduler gocron.Scheduler
	writer    *Writer
	interval  time.Duration
}

// NewScheduler creates a scheduler for writer. Interval must be positive.
func NewScheduler(writer *Writer, interval time.Duration) (*Scheduler, error) {
	if writer == nil {
		return nil, fmt.Errorf("backup writer is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("backup interval must be positive")
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create backup scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, writer: writer, interval: interval}, nil
}

// Run schedules periodic backups and blocks until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if _, err := s.writer.WriteOnce(ctx); err != nil {
				s.writer.logger.Error("snapshot backup failed", "err", err)
			}
		}),
		gocron.WithName("snapshot-backup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.scheduler.Shutdown()
		return fmt.Errorf("schedule snapshot backup: %w", err)
	}
	s.writer.logger.Info("backup scheduler started", "interval", s.interval, "dir", s.writer.cfg.Dir, "keep", s.writer.cfg.Keep)
	s.scheduler.Start()

	<-ctx.Done()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("stop backup scheduler: %w", err)
	}
	return nil
}
