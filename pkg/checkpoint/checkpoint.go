package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"profilesync/pkg/logger"
)

const currentVersion = 1

// Totals are the running counters of a sync run
type Totals struct {
	Inserted     int   `json:"inserted"`
	Updated      int   `json:"updated"`
	Unchanged    int   `json:"unchanged"`
	Completed    int   `json:"completed"`
	Failed       int   `json:"failed"`
	Skipped      int   `json:"skipped"`
	BatchErrors  int   `json:"batch_errors"`
	CommitErrors int   `json:"commit_errors"`
	APICalls     int64 `json:"api_calls"`
}

// Run is the journal of one sync run against one workbook
type Run struct {
	Target      string     `json:"target"`
	Batches     int        `json:"batches"`
	Totals      Totals     `json:"totals"`
	Uncommitted []string   `json:"uncommitted,omitempty"`
	Interrupted bool       `json:"interrupted"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Version     int        `json:"version"`
}

// Finished reports whether the run reached its end, interrupted or not
func (r *Run) Finished() bool {
	return r.FinishedAt != nil
}

// Manager handles journal operations for one target
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a manager storing its journal in the platform data directory
func NewManager(target string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerIn(filepath.Join(dataDir, "checkpoints"), target)
}

// NewManagerIn creates a manager storing its journal under dir
func NewManagerIn(dir, target string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &Manager{
		path:   filepath.Join(dir, fileName(target)+".checkpoint.json"),
		logger: logger.GetLogger().WithField("component", "checkpoint"),
	}, nil
}

// Path returns the journal file location
func (m *Manager) Path() string { return m.path }

// Start creates and saves a fresh journal, replacing any previous one
func (m *Manager) Start(target string) (*Run, error) {
	now := time.Now()
	run := &Run{
		Target:    target,
		StartedAt: now,
		UpdatedAt: now,
		Version:   currentVersion,
	}
	if err := m.Save(run); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"target": target,
		"path":   m.path,
	})
	return run, nil
}

// Load reads the journal; it returns nil, nil when none exists
func (m *Manager) Load() (*Run, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if run.Version > currentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", run.Version, currentVersion)
	}
	return &run, nil
}

// Save writes the journal to disk atomically
func (m *Manager) Save(run *Run) error {
	run.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"target":  run.Target,
		"batches": run.Batches,
	})
	return nil
}

// RecordBatch stores the totals after a batch
func (m *Manager) RecordBatch(run *Run, totals Totals, uncommitted []string) error {
	run.Batches++
	run.Totals = totals
	run.Uncommitted = append([]string(nil), uncommitted...)
	return m.Save(run)
}

// Finish marks the run as ended
func (m *Manager) Finish(run *Run, totals Totals, uncommitted []string, interrupted bool) error {
	now := time.Now()
	run.Totals = totals
	run.Uncommitted = append([]string(nil), uncommitted...)
	run.Interrupted = interrupted
	run.FinishedAt = &now
	return m.Save(run)
}

// Delete removes the journal file
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a journal file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// fileName maps a target (spreadsheet id or database path) to a safe file name
func fileName(target string) string {
	var b strings.Builder
	for _, r := range target {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "profilesync")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "profilesync")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "profilesync")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "profilesync")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
