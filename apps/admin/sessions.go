package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nihongowithmoeno/moeno/apps/shared"
)

func (cli *commandLine) purgeSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Drop expired sessions from the session database",
		Args:  cobra.NoArgs,
		// sessions need neither the Airtable token nor a mailer
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.purgeSessions(cmd.Context())
		},
	}
}

func (cli *commandLine) purgeSessions(ctx context.Context) error {
	store := cli.sessions
	if store == nil {
		s, closer, err := shared.NewSessionStore(ctx, cli.conf)
		if err != nil {
			return err
		}
		defer closer.Close()
		store = s
	}

	n, ok, err := shared.PurgeSessions(store)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cli.out, "Session store expires sessions on its own")
		return nil
	}
	fmt.Fprintf(cli.out, "Purged %d expired sessions\n", n)
	return nil
}
