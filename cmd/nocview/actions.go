package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
)

// withActions runs fn with the action set of the selected role. Nothing is
// fetched up front.
func withActions(fn func(ctx context.Context, a *app.App, actions *dashboard.Actions) model.Notice) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	role, err := a.Role(roleName)
	if err != nil {
		return err
	}
	_, actions := a.NewDashboard(role)

	ctx, stop := signalContext()
	defer stop()
	return printNotice(fn(ctx, a, actions))
}

// printNotice prints a notice and turns an error notice into a failing exit.
func printNotice(n model.Notice) error {
	if n.Level == model.NoticeError {
		return errors.New(n.Message)
	}
	fmt.Println(n.Message)
	return nil
}

var ackCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
			return actions.Acknowledge(ctx, args[0])
		})
	},
}

var (
	ticketIn  model.TicketInput
	fromAlert string
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Create, resolve and reassign tickets",
}

var ticketCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a ticket",
	Long: `Create a ticket from flags, or prefilled from an alert with --from-alert.
Flags given explicitly override the prefilled values.

Examples:
  nocview ticket create --title "Core link down" --priority high
  nocview ticket create --from-alert a1 --assignee jdoe`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fromAlert == "" {
			if err := dashboard.ValidateTicket(ticketIn); err != nil {
				return err
			}
		}
		return withActions(func(ctx context.Context, a *app.App, actions *dashboard.Actions) model.Notice {
			in := ticketIn
			if fromAlert != "" {
				prefilled, err := prefillTicket(ctx, a, cmd)
				if err != nil {
					return model.Notice{Level: model.NoticeError, Message: err.Error()}
				}
				in = prefilled
			}
			return actions.CreateTicket(ctx, in)
		})
	},
}

// prefillTicket builds the ticket input from the --from-alert alert.
func prefillTicket(ctx context.Context, a *app.App, cmd *cobra.Command) (model.TicketInput, error) {
	d, _, err := loadPanels(ctx, a, dashboard.PanelAlerts)
	if err != nil {
		return model.TicketInput{}, err
	}
	var alert *model.Alert
	for _, al := range d.Snapshot().Alerts {
		if al.ID == fromAlert {
			al := al
			alert = &al
			break
		}
	}
	if alert == nil {
		return model.TicketInput{}, fmt.Errorf("alert %q not found in the last %s", fromAlert, d.Period())
	}

	in := dashboard.TicketFromAlert(*alert, a.Config.Operator)
	flags := cmd.Flags()
	if flags.Changed("title") {
		in.Title = ticketIn.Title
	}
	if flags.Changed("description") {
		in.Description = ticketIn.Description
	}
	if flags.Changed("priority") {
		in.Priority = ticketIn.Priority
	}
	if flags.Changed("device") {
		in.DeviceName = ticketIn.DeviceName
	}
	if flags.Changed("assignee") {
		in.Assignee = ticketIn.Assignee
	}
	return in, nil
}

var ticketResolveCmd = &cobra.Command{
	Use:   "resolve <ticket-id>",
	Short: "Resolve a ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
			return actions.ResolveTicket(ctx, args[0])
		})
	},
}

var ticketReassignCmd = &cobra.Command{
	Use:   "reassign <ticket-id> <assignee>",
	Short: "Reassign a ticket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
			return actions.ReassignTicket(ctx, args[0], args[1])
		})
	},
}

var userIn model.UserInput

func userFlags(cmd *cobra.Command, withPassword bool) {
	cmd.Flags().StringVar(&userIn.Username, "username", "", "login name")
	cmd.Flags().StringVar(&userIn.Name, "name", "", "display name")
	cmd.Flags().StringVar(&userIn.Email, "email", "", "email address")
	cmd.Flags().StringVar(&userIn.Role, "user-role", "", "dashboard role of the user")
	if withPassword {
		cmd.Flags().StringVar(&userIn.Password, "password", "", "initial password")
	}
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dashboard.ValidateUser(userIn, true); err != nil {
			return err
		}
		return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
			return actions.CreateUser(ctx, userIn)
		})
	},
}

var userUpdateCmd = &cobra.Command{
	Use:   "update <user-id>",
	Short: "Update a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dashboard.ValidateUser(userIn, false); err != nil {
			return err
		}
		return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
			return actions.UpdateUser(ctx, args[0], userIn)
		})
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
			return actions.DeleteUser(ctx, args[0])
		})
	},
}

var userResetCmd = &cobra.Command{
	Use:   "reset-password <user-id>",
	Short: "Reset a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
			return actions.ResetPassword(ctx, args[0])
		})
	},
}

var userToggleCmd = &cobra.Command{
	Use:   "toggle <user-id>",
	Short: "Activate or deactivate a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
			return actions.ToggleUserStatus(ctx, args[0])
		})
	},
}

func init() {
	f := ticketCreateCmd.Flags()
	f.StringVar(&ticketIn.Title, "title", "", "ticket title")
	f.StringVar(&ticketIn.Description, "description", "", "ticket description")
	f.StringVar(&ticketIn.Priority, "priority", "", "critical, high, medium or low")
	f.StringVar(&ticketIn.DeviceName, "device", "", "affected device")
	f.StringVar(&ticketIn.Assignee, "assignee", "", "assignee")
	f.StringVar(&fromAlert, "from-alert", "", "prefill from this alert id")

	ticketCmd.AddCommand(ticketCreateCmd, ticketResolveCmd, ticketReassignCmd)

	userFlags(userCreateCmd, true)
	userFlags(userUpdateCmd, false)
	usersCmd.AddCommand(userCreateCmd, userUpdateCmd, userDeleteCmd, userResetCmd, userToggleCmd)
}
