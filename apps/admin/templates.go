package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (cli *commandLine) templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the email templates available to the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tID\tNAME\tREQUIRED")
			for _, tmpl := range cli.dispatcher.Templates() {
				id := tmpl.ID
				if id == "" {
					id = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tmpl.Key, id, tmpl.Name, strings.Join(tmpl.RequiredParams, ","))
			}
			return w.Flush()
		},
	}
}

func (cli *commandLine) testEmailCmd() *cobra.Command {
	var (
		templateID string
		params     map[string]string
	)
	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send raw params to a remote template id, bypassing the registry",
		Example: `  admin test-email --template-id template_draft \
    --param to_email=moeno@nihongowithmoeno.com --param to_name=Moeno`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cli.dispatcher.TestSend(context.Background(), templateID, params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "Test email sent to %s: %s\n", templateID, resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&templateID, "template-id", "", "The remote template id (required)")
	cmd.Flags().StringToStringVar(&params, "param", nil, "Template param as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("template-id")
	return cmd
}
