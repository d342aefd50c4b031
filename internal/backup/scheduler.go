package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	autoPrefix     = "backup_auto_"
	fileTimeLayout = "20060102_150405"
)

// Backuper produces a full backup archive.
type Backuper interface {
	Backup(ctx context.Context) ([]byte, error)
}

// Scheduler writes automatic backups into Dir whenever the newest one is
// older than Interval, keeping at most Retention files.
type Scheduler struct {
	Backuper  Backuper
	Dir       string
	Interval  time.Duration
	Retention int
	Log       *zap.Logger

	now func() time.Time
}

// StartAutoBackup checks immediately and then on every interval whether a
// backup is due, until ctx is cancelled.
func StartAutoBackup(
	ctx context.Context,
	b Backuper,
	dir string,
	interval time.Duration,
	retention int,
	log *zap.Logger,
) *Scheduler {
	s := &Scheduler{Backuper: b, Dir: dir, Interval: interval, Retention: retention, Log: log}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
	return s
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.Due()
	if err != nil {
		s.Log.Error("failed to inspect backup directory", zap.String("dir", s.Dir), zap.Error(err))
		return
	}
	if !due {
		return
	}
	path, err := s.RunOnce(ctx)
	if err != nil {
		s.Log.Error("automatic backup failed", zap.Error(err))
		return
	}
	s.Log.Info("automatic backup created", zap.String("path", path))
}

// Due reports whether the newest automatic backup is older than Interval.
func (s *Scheduler) Due() (bool, error) {
	files, err := s.list()
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return true, nil
	}
	info, err := os.Stat(filepath.Join(s.Dir, files[0]))
	if err != nil {
		return false, err
	}
	return s.clock().Sub(info.ModTime()) >= s.Interval, nil
}

// RunOnce writes one backup_auto_<timestamp>.zip file, prunes the old
// ones and returns the path written.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	data, err := s.Backuper.Backup(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := autoPrefix + s.clock().Format(fileTimeLayout) + ".zip"
	path := filepath.Join(s.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename backup: %w", err)
	}

	s.prune()
	return path, nil
}

// prune removes automatic backups beyond Retention, oldest first.
func (s *Scheduler) prune() {
	if s.Retention <= 0 {
		return
	}
	files, err := s.list()
	if err != nil {
		s.Log.Error("failed to list backups for cleanup", zap.Error(err))
		return
	}
	for _, name := range files[min(len(files), s.Retention):] {
		if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
			s.Log.Error("failed to remove old backup", zap.String("file", name), zap.Error(err))
			continue
		}
		s.Log.Info("removed old backup", zap.String("file", name))
	}
}

// list returns automatic backup file names, newest first.
func (s *Scheduler) list() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), autoPrefix) || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *Scheduler) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
