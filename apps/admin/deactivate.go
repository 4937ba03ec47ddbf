package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nihongowithmoeno/moeno/core/student"
)

func (cli *commandLine) deactivateCmd() *cobra.Command {
	var (
		email, id string
		hard      bool
	)
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate a student, or delete the record with --hard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.deactivate(email, id, hard)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The student's email")
	cmd.Flags().StringVar(&id, "id", "", "The student's record id")
	cmd.Flags().BoolVar(&hard, "hard", false, "Delete the record instead of clearing Active Student")
	cmd.MarkFlagsOneRequired("email", "id")
	cmd.MarkFlagsMutuallyExclusive("email", "id")
	return cmd
}

func (cli *commandLine) deactivate(email, id string, hard bool) error {
	ctx := context.Background()
	var (
		st  student.Student
		err error
	)
	if id != "" {
		st, err = cli.students.Get(ctx, id)
	} else {
		st, err = cli.students.GetByEmail(ctx, email)
	}
	if err != nil {
		return err
	}
	if _, err := cli.students.Delete(ctx, st.ID, !hard); err != nil {
		return err
	}
	if hard {
		fmt.Fprintf(cli.out, "Deleted %s (%s)\n", st.Name, st.ID)
	} else {
		fmt.Fprintf(cli.out, "Deactivated %s (%s)\n", st.Name, st.ID)
	}
	return nil
}
