package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nihongowithmoeno/moeno/core/dispatch"
	"github.com/nihongowithmoeno/moeno/core/waitlist"
)

func (cli *commandLine) contactWaitlistCmd() *cobra.Command {
	var id, message string
	cmd := &cobra.Command{
		Use:   "contact-waitlist",
		Short: "Email a waitlist entry and mark it Contacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.contactWaitlist(id, message)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "The waitlist record id (required)")
	cmd.Flags().StringVar(&message, "message", "", "Free text for the email")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// contactWaitlist sends waitlist_contact; the status only moves once the email is out.
func (cli *commandLine) contactWaitlist(id, message string) error {
	ctx := context.Background()
	entry, err := cli.waitlist.Get(ctx, id)
	if err != nil {
		return err
	}

	res, err := cli.dispatcher.Send(ctx, waitlist.ContactTemplate, waitlist.ContactParams(entry, message), dispatch.Recipient{})
	if err != nil {
		return err
	}
	if entry, err = cli.waitlist.MarkContacted(ctx, entry); err != nil {
		return err
	}
	cli.logger.Infow("waitlist entry contacted", "entry", entry.ID, "status", entry.Fields.Status)
	fmt.Fprintf(cli.out, "%s: %s (%s)\n", res.Message, res.Recipient, entry.Fields.Status)
	return nil
}
