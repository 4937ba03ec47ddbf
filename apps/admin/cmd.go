package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/nihongowithmoeno/moeno/apps/shared"
	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/access"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
	"github.com/nihongowithmoeno/moeno/core/student"
	"github.com/nihongowithmoeno/moeno/core/waitlist"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	nowFunc          = time.Now          // mockable

	errHelp            = errors.New("help provided")
	errTokenRequired   = errors.New("an Airtable access token is required")
	errNoUpcomingClass = errors.New("no upcoming class scheduled")
)

type commandLine struct {
	conf   *core.Config
	logger *zap.SugaredLogger
	out    io.Writer

	students   *student.Service
	waitlist   *waitlist.Service
	dispatcher *dispatch.Dispatcher
	sessions   access.SessionStore
}

// prepare builds the services the commands need, prompting for the Airtable token when none is configured.
// Services already set are kept.
func (cli *commandLine) prepare() error {
	if cli.students == nil || cli.waitlist == nil {
		if cli.conf.Airtable.AccessToken == "" && !cli.conf.Debug {
			fmt.Fprint(cli.out, "Enter Airtable access token:")
			token, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if strings.TrimSpace(string(token)) == "" {
				return errTokenRequired
			}
			cli.conf.Airtable.AccessToken = strings.TrimSpace(string(token))
		}
		store := shared.NewRecordStore(cli.conf, zapLogger{cli.logger})
		if cli.students == nil {
			validate, translator := shared.NewValidator()
			cli.students = student.NewService(store, validate, translator)
		}
		if cli.waitlist == nil {
			cli.waitlist = waitlist.NewService(store)
		}
	}

	if cli.dispatcher == nil {
		provider, err := shared.NewProvider(cli.conf)
		if err != nil {
			return err
		}
		if cli.dispatcher, err = shared.NewDispatcher(cli.conf, provider, dispatch.ServerSide, zapLogger{cli.logger}); err != nil {
			return err
		}
	}
	return nil
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "NihongoWithMoeno administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.HasParent() || cmd.Name() == "help" {
				return nil
			}
			return cli.prepare()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.templatesCmd(),
		cli.testEmailCmd(),
		cli.deactivateCmd(),
		cli.remindCmd(),
		cli.contactWaitlistCmd(),
		cli.purgeSessionsCmd(),
	)
	return root
}

// run executes the command named by args; args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	if cli.out == nil {
		cli.out = os.Stdout
	}
	if cli.logger == nil {
		cli.logger = zap.NewNop().Sugar()
	}
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

// zapLogger adapts the CLI's zap logger to core.Logger.
type zapLogger struct {
	l *zap.SugaredLogger
}

var _ core.Logger = zapLogger{}

func (z zapLogger) Debug(msg string, args ...interface{}) { z.l.Debugw(msg, kv(args)...) }
func (z zapLogger) Info(msg string, args ...interface{})  { z.l.Infow(msg, kv(args)...) }
func (z zapLogger) Warn(msg string, args ...interface{})  { z.l.Warnw(msg, kv(args)...) }
func (z zapLogger) Error(msg string, args ...interface{}) { z.l.Errorw(msg, kv(args)...) }
func (z zapLogger) Fatal(msg string, args ...interface{}) { z.l.Fatalw(msg, kv(args)...) }

func kv(args []interface{}) []interface{} {
	res := make([]interface{}, 0, 2*len(args))
	for i, arg := range args {
		res = append(res, fmt.Sprintf("arg%d", i), arg)
	}
	return res
}
