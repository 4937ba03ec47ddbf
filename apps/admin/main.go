package main

import (
	"fmt"
	"os"

	"github.com/nihongowithmoeno/moeno/core"
	logsvc "github.com/nihongowithmoeno/moeno/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewConsole(conf.Debug).Named("admin").Sugar()
	defer func() { _ = logger.Sync() }()

	cli := commandLine{
		conf:   conf,
		logger: logger,
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		_ = logger.Sync()
		os.Exit(1)
	}
}
