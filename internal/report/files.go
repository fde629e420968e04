package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/util"
)

// SaveFile writes data to dir/name through a temporary file that is renamed
// into place, so a failed write never leaves a partial report behind.
func SaveFile(dir, name string, data []byte) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}
	return path, nil
}

// AlertHeader is the column layout of alert CSV exports.
var AlertHeader = []string{"id", "severity", "status", "timestamp", "device", "device_ip", "title", "ai_summary", "confidence"}

// WriteAlertsCSV writes alerts as CSV.
func WriteAlertsCSV(w io.Writer, alerts []model.Alert) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AlertHeader); err != nil {
		return err
	}
	for _, a := range alerts {
		row := []string{
			a.ID,
			a.Severity,
			a.Status,
			a.Timestamp.Display,
			a.Device.Name,
			a.Device.IP,
			a.DisplayTitle(),
			a.AISummary,
			strconv.Itoa(a.Confidence),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTicketsCSV writes tickets as CSV.
func WriteTicketsCSV(w io.Writer, tickets []model.Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"number", "title", "priority", "status", "assignee", "device", "alert_id", "created_at"}); err != nil {
		return err
	}
	for _, t := range tickets {
		if err := cw.Write([]string{t.Number, t.Title, t.Priority, t.Status, t.Assignee, t.DeviceName, t.AlertID, t.CreatedAt.Display}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDevicesCSV writes devices as CSV.
func WriteDevicesCSV(w io.Writer, devices []model.Device) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "ip", "type", "status", "health_score", "recent_alerts", "last_seen"}); err != nil {
		return err
	}
	for _, d := range devices {
		row := []string{d.Name, d.IP, d.Type, d.Status, strconv.Itoa(d.HealthScore), strconv.Itoa(d.RecentAlerts), d.LastSeen.Display}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveAlertsCSV renders alerts as CSV and saves them in dir.
func SaveAlertsCSV(dir, name string, alerts []model.Alert) (string, error) {
	var buf bytes.Buffer
	if err := WriteAlertsCSV(&buf, alerts); err != nil {
		return "", fmt.Errorf("failed to render csv: %w", err)
	}
	return SaveFile(dir, name, buf.Bytes())
}
