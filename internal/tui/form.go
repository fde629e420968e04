package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldAssignee
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Description", "Priority", "Assignee"}

// ticketForm is the create-ticket form. The alert and device it refers
// to are carried over from the selected alert, if any.
type ticketForm struct {
	inputs  [fieldCount]textinput.Model
	focus   int
	alertID string
	device  string
}

func newTicketForm(in model.TicketInput) ticketForm {
	f := ticketForm{alertID: in.AlertID, device: in.DeviceName}
	values := [fieldCount]string{in.Title, in.Description, in.Priority, in.Assignee}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 200
		ti.Width = 50
		ti.SetValue(values[i])
		f.inputs[i] = ti
	}
	f.inputs[fieldPriority].Placeholder = strings.Join(model.Priorities, "|")
	f.inputs[fieldPriority].CharLimit = 10
	f.inputs[fieldTitle].Focus()
	return f
}

func (f ticketForm) input() model.TicketInput {
	return model.TicketInput{
		Title:       strings.TrimSpace(f.inputs[fieldTitle].Value()),
		Description: strings.TrimSpace(f.inputs[fieldDescription].Value()),
		Priority:    strings.ToLower(strings.TrimSpace(f.inputs[fieldPriority].Value())),
		Assignee:    strings.TrimSpace(f.inputs[fieldAssignee].Value()),
		AlertID:     f.alertID,
		DeviceName:  f.device,
	}
}

// valid reports whether the form may be submitted.
func (f ticketForm) valid() error {
	return dashboard.ValidateTicket(f.input())
}

func (f ticketForm) move(delta int) ticketForm {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
	return f
}

func (f ticketForm) update(msg tea.Msg) (ticketForm, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f ticketForm) view() string {
	var sb strings.Builder
	sb.WriteString(SectionTitleStyle.Render("New ticket"))
	if f.alertID != "" {
		sb.WriteString(DimStyle.Render("  from alert " + f.alertID))
	}
	sb.WriteString("\n\n")
	for i, in := range f.inputs {
		label := fieldLabels[i]
		if i == fieldTitle || i == fieldPriority {
			label += "*"
		}
		cursor := "  "
		if i == f.focus {
			cursor = "> "
		}
		sb.WriteString(cursor + LabelStyle.Copy().Width(14).Render(label) + in.View() + "\n")
	}
	sb.WriteString("\n")
	if err := f.valid(); err != nil {
		sb.WriteString(DimStyle.Render("submit disabled: " + err.Error()))
	} else {
		sb.WriteString(SuccessStyle.Render("enter to submit"))
	}
	sb.WriteString(DimStyle.Render("  •  tab next field  •  esc cancel"))
	return FormStyle.Render(sb.String())
}
