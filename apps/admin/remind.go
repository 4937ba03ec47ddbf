package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nihongowithmoeno/moeno/core/dispatch"
	"github.com/nihongowithmoeno/moeno/core/schedule"
)

const reminderTemplate = "lesson_reminder"

func (cli *commandLine) remindCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Email a student a reminder of their next scheduled class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.remind(email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The student's email (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// remind sends lesson_reminder for the student's soonest upcoming class.
func (cli *commandLine) remind(email string) error {
	ctx := context.Background()
	st, err := cli.students.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	cls, ok := schedule.NextClass(st, nowFunc())
	if !ok {
		return errors.Wrapf(errNoUpcomingClass, "reminding %s", st.Email)
	}

	res, err := cli.dispatcher.Send(ctx, reminderTemplate, schedule.ReminderParams(st, cls), dispatch.Recipient{})
	if err != nil {
		return err
	}
	cli.logger.Infow("reminder sent", "student", st.ID, "class", cls.Date)
	fmt.Fprintf(cli.out, "%s: %s on %s\n", res.Message, res.Recipient, schedule.FormatDateTime(cls.Date, st.Timezone))
	return nil
}
