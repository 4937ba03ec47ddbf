package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/nihongowithmoeno/moeno/apps/api/echo"
	"github.com/nihongowithmoeno/moeno/apps/shared"
	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/access"
	"github.com/nihongowithmoeno/moeno/core/blog"
	"github.com/nihongowithmoeno/moeno/core/contact"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
	"github.com/nihongowithmoeno/moeno/core/student"
	"github.com/nihongowithmoeno/moeno/core/waitlist"
	identitysvc "github.com/nihongowithmoeno/moeno/services/identity"
	logsvc "github.com/nihongowithmoeno/moeno/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	validate, translator := shared.NewValidator()
	core.ParseEmailTemplates(logger)

	store := shared.NewRecordStore(conf, logger)
	studentSvc := student.NewService(store, validate, translator)

	provider, err := shared.NewProvider(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email provider: %v", err), err)
	}
	dispatcher, err := shared.NewDispatcher(conf, provider, dispatch.ServerSide, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email dispatcher: %v", err), err)
	}

	sessions, closer, err := shared.NewSessionStore(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up session store: %v", err), err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing session store: %v", err), err)
		}
	}()
	if n, ok, err := shared.PurgeSessions(sessions); err != nil {
		logger.Error(fmt.Sprintf("purging sessions: %v", err), err)
	} else if ok {
		logger.Info(fmt.Sprintf("Purged %d expired sessions", n))
	}

	accessSvc := access.NewService(
		access.NewGate(conf.AdminEmails, studentSvc),
		identitysvc.NewClient(conf),
		sessions,
		access.Options{TTL: conf.Session.TTL, RevalidateAfter: conf.Session.RevalidateAfter},
		logger,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("emailProvider").Set(conf.Email.Provider)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Server.Address,
		AppName:        conf.AppName,
		Build:          conf.Build,
		SecretKey:      conf.SecretKey,
		Debug:          conf.Debug,
		TestMode:       conf.TestMode,
		DisableReqLogs: conf.Server.DisableReqLogs,
		Logger:         logger,
		Translator:     translator,
		SignalShutdown: func() {
			select {
			case shutdown <- syscall.SIGTERM:
			default:
			}
		},
		StudentSvc:  studentSvc,
		WaitlistSvc: waitlist.NewService(store),
		BlogSvc:     blog.NewService(store, validate, translator),
		ContactSvc:  contact.NewService(shared.NewMailer(conf), conf.ContactEmail, validate, translator),
		AccessSvc:   accessSvc,
		Dispatcher:  dispatcher,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
