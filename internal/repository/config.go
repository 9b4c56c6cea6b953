package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"xrayctl/internal/constants"
	xerrors "xrayctl/internal/errors"
	"xrayctl/internal/models"
)

// Repository is the sole owner of the on-disk config document's lifecycle:
// load, mutate, persist, back up and restore. The live proxy process reads
// the same file, so every mutating path funnels through Mutate.
type Repository struct {
	path   string
	logger *logrus.Logger
}

// New creates a new config repository for the given file path
func New(path string, logger *logrus.Logger) *Repository {
	return &Repository{
		path:   path,
		logger: logger,
	}
}

// Path returns the location of the live config file
func (r *Repository) Path() string {
	return r.path
}

// Load reads and parses the configuration document
func (r *Repository) Load() (map[string]interface{}, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, &xerrors.NotFoundError{Kind: "config file", Name: r.path}
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &xerrors.MalformedConfigError{Path: r.path, Reason: err.Error()}
	}

	return doc, nil
}

// Save serializes and writes the configuration document, creating parent
// directories as needed. This overwrites the file the live proxy reads.
func (r *Repository) Save(doc map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Mutate runs fn with exclusive ownership of the config document: it takes
// a blocking flock on the sibling lock file, backs up the current config,
// loads the document, and saves it only when fn returns nil. The lock is
// released on every exit path. A stuck holder blocks callers indefinitely;
// no timeout is applied.
//
// If fn fails, the in-memory mutation is discarded but the backup already
// taken is retained.
func (r *Repository) Mutate(fn func(doc map[string]interface{}) error) error {
	lockFile, err := os.OpenFile(r.lockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	// Losing a backup must never block a user-facing mutation.
	if err := r.backup(); err != nil {
		r.logger.Warnf("Failed to create backup: %v", err)
	}

	doc, err := r.Load()
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		return err
	}

	return r.Save(doc)
}

// Backups returns the available backups, newest first
func (r *Repository) Backups() ([]models.Backup, error) {
	entries, err := os.ReadDir(r.backupDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []models.Backup
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "config.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, "config."), ".json")
		createdAt, err := time.ParseInLocation(constants.BackupTimeFormat, stamp, time.Local)
		if err != nil {
			continue
		}
		backups = append(backups, models.Backup{
			Path:      filepath.Join(r.backupDir(), name),
			Name:      name,
			CreatedAt: createdAt,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].Name > backups[j].Name
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Restore copies a chosen backup over the live config file, verbatim. It
// does not reload the proxy process; the caller triggers a restart.
func (r *Repository) Restore(backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if os.IsNotExist(err) {
		return &xerrors.NotFoundError{Kind: "backup", Name: backupPath}
	}
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	r.logger.Infof("Restored config from %s", filepath.Base(backupPath))
	return nil
}

// lockPath is the config path with its extension replaced by .lock. Being
// filesystem-based, it serializes mutations across separate tool invocations.
func (r *Repository) lockPath() string {
	return strings.TrimSuffix(r.path, filepath.Ext(r.path)) + ".lock"
}

func (r *Repository) backupDir() string {
	return filepath.Join(filepath.Dir(r.path), constants.BackupDirName)
}

// backup snapshots the current live file into the backup directory and
// evicts the oldest entries beyond the retention limit. A missing live file
// is not an error; there is simply nothing to back up yet.
func (r *Repository) backup() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := os.MkdirAll(r.backupDir(), 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("config.%s.json", time.Now().Format(constants.BackupTimeFormat))
	if err := os.WriteFile(filepath.Join(r.backupDir(), name), data, 0644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	r.logger.Debugf("Created backup %s", name)

	r.evictOldBackups()
	return nil
}

// evictOldBackups deletes the oldest backups while more than MaxBackups
// remain. Eviction failures are logged and swallowed.
func (r *Repository) evictOldBackups() {
	backups, err := r.Backups()
	if err != nil {
		r.logger.Warnf("Failed to list backups for eviction: %v", err)
		return
	}

	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			r.logger.Warnf("Failed to remove old backup %s: %v", backups[i].Name, err)
		} else {
			r.logger.Debugf("Evicted old backup %s", backups[i].Name)
		}
	}
}
