package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/nocview/internal/client"
	"github.com/user/nocview/internal/metrics"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/report"
	"github.com/user/nocview/internal/util"
)

// ErrMissingField is returned by form validation before any request is made.
var ErrMissingField = errors.New("missing required field")

// Action names as recorded in the journal and metrics.
const (
	ActionAcknowledge    = "acknowledge"
	ActionCreateTicket   = "create_ticket"
	ActionResolveTicket  = "resolve_ticket"
	ActionReassignTicket = "reassign_ticket"
	ActionCreateUser     = "create_user"
	ActionUpdateUser     = "update_user"
	ActionDeleteUser     = "delete_user"
	ActionResetPassword  = "reset_password"
	ActionToggleUser     = "toggle_user"
	ActionExport         = "export"
	ActionExportLocal    = "export_local"
)

// Mutator is the write side of the backend.
type Mutator interface {
	Acknowledge(ctx context.Context, id string) error
	CreateTicket(ctx context.Context, in model.TicketInput) (model.Ticket, error)
	UpdateTicket(ctx context.Context, id string, upd model.TicketUpdate) (model.Ticket, error)
	CreateUser(ctx context.Context, in model.UserInput) (model.User, error)
	UpdateUser(ctx context.Context, id string, in model.UserInput) (model.User, error)
	DeleteUser(ctx context.Context, id string) error
	ResetPassword(ctx context.Context, id string) error
	ToggleUserStatus(ctx context.Context, id string) error
	ExportReport(ctx context.Context, format string) (*client.Export, error)
}

// Journal records action outcomes.
type Journal interface {
	Save(entry *model.JournalEntry) error
}

// Actions performs mutations. Every action returns a Notice instead of an
// error; on success the affected data is re-fetched, never patched locally,
// and on failure nothing local changes.
type Actions struct {
	backend   Mutator
	journal   Journal
	metrics   *metrics.Metrics
	exportDir string
	refresh   func()
}

// NewActions creates an action set. journal, m and refresh may be nil.
func NewActions(backend Mutator, journal Journal, m *metrics.Metrics, exportDir string, refresh func()) *Actions {
	return &Actions{
		backend:   backend,
		journal:   journal,
		metrics:   m,
		exportDir: exportDir,
		refresh:   refresh,
	}
}

// ValidateTicket checks the ticket form.
func ValidateTicket(in model.TicketInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title", ErrMissingField)
	case strings.TrimSpace(in.Priority) == "":
		return fmt.Errorf("%w: priority", ErrMissingField)
	}
	return nil
}

// ValidateUser checks the user form. A password is required on create only.
func ValidateUser(in model.UserInput, create bool) error {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return fmt.Errorf("%w: username", ErrMissingField)
	case strings.TrimSpace(in.Email) == "":
		return fmt.Errorf("%w: email", ErrMissingField)
	case strings.TrimSpace(in.Role) == "":
		return fmt.Errorf("%w: role", ErrMissingField)
	case create && in.Password == "":
		return fmt.Errorf("%w: password", ErrMissingField)
	}
	return nil
}

// TicketFromAlert prefills a ticket form from an alert.
func TicketFromAlert(a model.Alert, assignee string) model.TicketInput {
	desc := a.AISummary
	if desc == "" {
		desc = fmt.Sprintf("%s alert on %s at %s", a.Severity, a.Device.Name, a.Timestamp.Display)
	}
	return model.TicketInput{
		Title:       a.DisplayTitle(),
		Description: desc,
		Priority:    PriorityForSeverity(a.Severity),
		AlertID:     a.ID,
		DeviceName:  a.Device.Name,
		Assignee:    assignee,
	}
}

// PriorityForSeverity maps an alert severity onto a ticket priority.
func PriorityForSeverity(sev string) string {
	switch sev {
	case model.SeverityCritical:
		return model.PriorityCritical
	case model.SeverityMajor:
		return model.PriorityHigh
	case model.SeverityMinor:
		return model.PriorityMedium
	}
	return model.PriorityLow
}

// Acknowledge acknowledges an alert.
func (a *Actions) Acknowledge(ctx context.Context, id string) model.Notice {
	if strings.TrimSpace(id) == "" {
		return a.invalid(ActionAcknowledge, id, fmt.Errorf("%w: alert id", ErrMissingField))
	}
	err := a.backend.Acknowledge(ctx, id)
	return a.finish(ActionAcknowledge, id, err, fmt.Sprintf("Alert %s acknowledged", id))
}

// CreateTicket validates and submits the ticket form.
func (a *Actions) CreateTicket(ctx context.Context, in model.TicketInput) model.Notice {
	if err := ValidateTicket(in); err != nil {
		return a.invalid(ActionCreateTicket, in.AlertID, err)
	}
	t, err := a.backend.CreateTicket(ctx, in)
	target := in.AlertID
	if target == "" {
		target = in.Title
	}
	ref := t.Number
	if ref == "" {
		ref = fmt.Sprintf("%q", in.Title)
	}
	return a.finish(ActionCreateTicket, target, err, fmt.Sprintf("Ticket %s created", ref))
}

// ResolveTicket marks a ticket resolved.
func (a *Actions) ResolveTicket(ctx context.Context, id string) model.Notice {
	if strings.TrimSpace(id) == "" {
		return a.invalid(ActionResolveTicket, id, fmt.Errorf("%w: ticket id", ErrMissingField))
	}
	_, err := a.backend.UpdateTicket(ctx, id, model.TicketUpdate{Status: model.TicketResolved})
	return a.finish(ActionResolveTicket, id, err, fmt.Sprintf("Ticket %s resolved", id))
}

// ReassignTicket hands a ticket to another assignee.
func (a *Actions) ReassignTicket(ctx context.Context, id, assignee string) model.Notice {
	switch {
	case strings.TrimSpace(id) == "":
		return a.invalid(ActionReassignTicket, id, fmt.Errorf("%w: ticket id", ErrMissingField))
	case strings.TrimSpace(assignee) == "":
		return a.invalid(ActionReassignTicket, id, fmt.Errorf("%w: assignee", ErrMissingField))
	}
	_, err := a.backend.UpdateTicket(ctx, id, model.TicketUpdate{Assignee: strings.TrimSpace(assignee)})
	return a.finish(ActionReassignTicket, id, err, fmt.Sprintf("Ticket %s reassigned to %s", id, assignee))
}

// CreateUser validates and submits the new-user form.
func (a *Actions) CreateUser(ctx context.Context, in model.UserInput) model.Notice {
	if err := ValidateUser(in, true); err != nil {
		return a.invalid(ActionCreateUser, in.Username, err)
	}
	_, err := a.backend.CreateUser(ctx, in)
	return a.finish(ActionCreateUser, in.Username, err, fmt.Sprintf("User %s created", in.Username))
}

// UpdateUser validates and submits the edit-user form.
func (a *Actions) UpdateUser(ctx context.Context, id string, in model.UserInput) model.Notice {
	if strings.TrimSpace(id) == "" {
		return a.invalid(ActionUpdateUser, id, fmt.Errorf("%w: user id", ErrMissingField))
	}
	if err := ValidateUser(in, false); err != nil {
		return a.invalid(ActionUpdateUser, id, err)
	}
	_, err := a.backend.UpdateUser(ctx, id, in)
	return a.finish(ActionUpdateUser, id, err, fmt.Sprintf("User %s updated", in.Username))
}

// DeleteUser removes a user.
func (a *Actions) DeleteUser(ctx context.Context, id string) model.Notice {
	if strings.TrimSpace(id) == "" {
		return a.invalid(ActionDeleteUser, id, fmt.Errorf("%w: user id", ErrMissingField))
	}
	err := a.backend.DeleteUser(ctx, id)
	return a.finish(ActionDeleteUser, id, err, fmt.Sprintf("User %s deleted", id))
}

// ResetPassword resets a user's password.
func (a *Actions) ResetPassword(ctx context.Context, id string) model.Notice {
	if strings.TrimSpace(id) == "" {
		return a.invalid(ActionResetPassword, id, fmt.Errorf("%w: user id", ErrMissingField))
	}
	err := a.backend.ResetPassword(ctx, id)
	return a.finish(ActionResetPassword, id, err, fmt.Sprintf("Password reset for %s", id))
}

// ToggleUserStatus activates or deactivates a user.
func (a *Actions) ToggleUserStatus(ctx context.Context, id string) model.Notice {
	if strings.TrimSpace(id) == "" {
		return a.invalid(ActionToggleUser, id, fmt.Errorf("%w: user id", ErrMissingField))
	}
	err := a.backend.ToggleUserStatus(ctx, id)
	return a.finish(ActionToggleUser, id, err, fmt.Sprintf("Status toggled for %s", id))
}

// Export downloads the backend report and saves it in the export
// directory. On failure no file is produced.
func (a *Actions) Export(ctx context.Context, format string) model.Notice {
	exp, err := a.backend.ExportReport(ctx, format)
	if err != nil {
		return a.record(ActionExport, format, err, "")
	}
	path, err := report.SaveFile(a.exportDir, exp.Filename, exp.Data)
	if err != nil {
		return a.record(ActionExport, format, err, "")
	}
	return a.record(ActionExport, format, nil, "Report saved to "+path)
}

// ExportLocal writes the given alerts (typically the filtered table) to a
// CSV file without contacting the backend.
func (a *Actions) ExportLocal(alerts []model.Alert) model.Notice {
	name := fmt.Sprintf("alerts-%s.csv", time.Now().Format("20060102-150405"))
	path, err := report.SaveAlertsCSV(a.exportDir, name, alerts)
	if err != nil {
		return a.record(ActionExportLocal, name, err, "")
	}
	return a.record(ActionExportLocal, name, nil, fmt.Sprintf("%d alerts written to %s", len(alerts), path))
}

// finish records the outcome and re-fetches on success.
func (a *Actions) finish(action, target string, err error, okMsg string) model.Notice {
	n := a.record(action, target, err, okMsg)
	if err == nil && a.refresh != nil {
		a.refresh()
	}
	return n
}

func (a *Actions) invalid(action, target string, err error) model.Notice {
	util.Debug("Rejected %s on %q: %v", action, target, err)
	return model.Notice{Level: model.NoticeError, Message: capitalize(err.Error()), At: time.Now()}
}

func (a *Actions) record(action, target string, err error, okMsg string) model.Notice {
	n := model.Notice{Level: model.NoticeSuccess, Message: okMsg, At: time.Now()}
	if err != nil {
		util.Error("Action %s on %q failed: %v", action, target, err)
		n.Level = model.NoticeError
		n.Message = fmt.Sprintf("%s failed: %v", humanAction(action), err)
	} else {
		util.Info("Action %s on %q: %s", action, target, okMsg)
	}

	a.metrics.Action(action, err == nil)
	if a.journal != nil {
		entry := &model.JournalEntry{Action: action, Target: target, OK: err == nil, Message: n.Message, Timestamp: n.At}
		if jerr := a.journal.Save(entry); jerr != nil {
			util.Warn("Failed to journal %s: %v", action, jerr)
		}
	}
	return n
}

func humanAction(action string) string {
	return capitalize(strings.ReplaceAll(action, "_", " "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
