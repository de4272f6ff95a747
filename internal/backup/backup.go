// Package backup takes periodic on-disk snapshots of the document store and
// prunes old ones.
package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shopfront/internal/docstore"
)

const timestampLayout = "2006-01-02_15-04-05"

// Manager handles backup operations.
type Manager struct {
	db        *docstore.DB
	dir       string
	interval  time.Duration
	retention time.Duration

	mu       sync.RWMutex
	lastRun  time.Time
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a backup manager writing timestamped snapshot
// directories under dir.
func NewManager(db *docstore.DB, dir string, interval, retention time.Duration) *Manager {
	return &Manager{
		db:        db,
		dir:       dir,
		interval:  interval,
		retention: retention,
		stopChan:  make(chan struct{}),
	}
}

// Start initiates the periodic backup service.
func (m *Manager) Start() {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		slog.Error("Failed to create backup directory", "path", m.dir, "error", err)
		return
	}
	slog.Info("Backup manager starting...", "interval", m.interval.String(), "retention", m.retention.String())
	m.wg.Add(1)
	go m.runPeriodicBackups()
}

// Stop terminates the backup service.
func (m *Manager) Stop() {
	close(m.stopChan)
	m.wg.Wait()
}

func (m *Manager) runPeriodicBackups() {
	defer m.wg.Done()

	slog.Info("Performing initial backup on startup...")
	if err := m.Perform(); err != nil {
		slog.Error("Error in initial backup", "error", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Info("Performing periodic backup...")
			if err := m.Perform(); err != nil {
				slog.Error("Error in periodic backup", "error", err)
			}
		case <-m.stopChan:
			slog.Info("Backup manager received stop signal. Stopping.")
			return
		}
	}
}

// Perform takes one full snapshot of the store.
func (m *Manager) Perform() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		slog.Warn("Backup skipped: another backup is already in progress.")
		return fmt.Errorf("backup already in progress")
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	backupPath := filepath.Join(m.dir, time.Now().Format(timestampLayout))
	slog.Info("Starting new backup", "path", backupPath)

	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	if err := m.db.Snapshot(backupPath); err != nil {
		os.RemoveAll(backupPath)
		return fmt.Errorf("snapshot failed: %w", err)
	}

	m.cleanOldBackups()

	m.mu.Lock()
	m.lastRun = time.Now()
	m.mu.Unlock()
	slog.Info("Backup completed successfully", "path", backupPath)
	return nil
}

// cleanOldBackups removes snapshot directories older than the retention
// period. Age comes from the directory name, not the filesystem, so copied
// backup trees still prune correctly. A retention of zero keeps everything.
func (m *Manager) cleanOldBackups() {
	if m.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-m.retention)
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		slog.Error("Failed to read backup directory for cleanup", "error", err)
		return
	}

	cleaned := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stamp, err := time.ParseInLocation(timestampLayout, entry.Name(), time.Local)
		if err != nil {
			continue
		}
		if stamp.Before(cutoff) {
			path := filepath.Join(m.dir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				slog.Error("Failed to delete old backup", "path", path, "error", err)
			} else {
				slog.Info("Old backup deleted", "path", path)
				cleaned++
			}
		}
	}
	if cleaned > 0 {
		slog.Info("Backup cleanup finished", "deleted_count", cleaned)
	}
}

// LastRun returns the time of the last successful backup.
func (m *Manager) LastRun() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun
}

// Status describes the backup system for operators.
func (m *Manager) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.running {
		return "Backup in progress"
	}
	if m.lastRun.IsZero() {
		return "A backup has never been performed"
	}
	return fmt.Sprintf("Last successful backup: %s", m.lastRun.Format(time.RFC1123))
}
