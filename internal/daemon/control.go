package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// File names in the data directory.
const (
	PIDFileName    = "nocview.pid"
	StatusFileName = "status.json"
)

// CheckRunning checks if a watcher is already running.
func CheckRunning(dataDir string) (bool, int) {
	data, err := os.ReadFile(filepath.Join(dataDir, PIDFileName))
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0
	}

	// Signal 0 only checks that the process exists. EPERM means it exists
	// but belongs to someone else.
	if err := unix.Kill(pid, 0); err != nil && err != unix.EPERM {
		return false, 0
	}
	return true, pid
}

// SendStop asks the running watcher to stop.
func SendStop(dataDir string) error {
	running, pid := CheckRunning(dataDir)
	if !running {
		return fmt.Errorf("watcher is not running")
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("failed to send signal: %w", err)
	}
	return nil
}

// RoleSummary is the last poll outcome of one watched role.
type RoleSummary struct {
	Role      string    `json:"role"`
	Period    string    `json:"period"`
	FetchedAt time.Time `json:"fetched_at"`
	Alerts    int       `json:"alerts"`
	Critical  int       `json:"critical"`
	Failed    []string  `json:"failed,omitempty"`
}

// StatusFile holds serialized watcher status.
type StatusFile struct {
	Running   bool          `json:"running"`
	PID       int           `json:"pid"`
	StartTime time.Time     `json:"start_time"`
	Uptime    string        `json:"uptime"`
	Roles     []RoleSummary `json:"roles"`
	Jobs      []JobStatus   `json:"jobs"`
}

// WriteStatusFile writes the watcher status next to the database. The file
// is replaced atomically so readers never see a partial write.
func WriteStatusFile(dataDir string, sf *StatusFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dataDir, StatusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadStatusFile reads the watcher status.
func ReadStatusFile(dataDir string) (*StatusFile, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, StatusFileName))
	if err != nil {
		return nil, err
	}

	var sf StatusFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, err
	}
	return &sf, nil
}
