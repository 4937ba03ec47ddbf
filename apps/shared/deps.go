// Package shared builds the dependencies both the API and the admin CLI run on.
package shared

import (
	"context"
	"io"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/access"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
	emailsvc "github.com/nihongowithmoeno/moeno/services/email"
	"github.com/nihongowithmoeno/moeno/storage/airtable"
	"github.com/nihongowithmoeno/moeno/storage/inmem"
	"github.com/nihongowithmoeno/moeno/storage/session"
)

const (
	ProviderEmailJS  = "emailjs"
	ProviderSendgrid = "sendgrid"
	ProviderConsole  = "console"
)

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return validate, translator
}

// NewRecordStore talks to Airtable when it is configured. In debug mode an in-memory store stands in
// for missing credentials; otherwise calls fail with "Airtable is not configured".
func NewRecordStore(conf *core.Config, logger core.Logger) core.RecordStore {
	client := airtable.NewClient(conf)
	if client.Configured() || !conf.Debug {
		return client
	}
	logger.Warn("Airtable is not configured: using an in-memory record store")
	return inmem.NewStore()
}

// NewProvider picks the template provider named by EMAIL_PROVIDER.
func NewProvider(conf *core.Config) (dispatch.Provider, error) {
	switch conf.Email.Provider {
	case "", ProviderEmailJS:
		return emailsvc.NewEmailJS(conf), nil
	case ProviderSendgrid:
		return emailsvc.NewSendgrid(conf), nil
	case ProviderConsole:
		return emailsvc.NewConsole(conf), nil
	default:
		return nil, errors.Errorf("unknown email provider %q", conf.Email.Provider)
	}
}

// NewMailer returns the plain message mailer: SendGrid when a key is set outside debug mode.
func NewMailer(conf *core.Config) core.EmailService {
	if conf.Email.SendgridAPIKey != "" && !conf.Debug {
		return emailsvc.NewSendgrid(conf)
	}
	return emailsvc.NewConsole(conf)
}

func NewDispatcher(conf *core.Config, provider dispatch.Provider, side dispatch.Side, logger core.Logger) (*dispatch.Dispatcher, error) {
	registry, err := dispatch.NewRegistry(conf.Email.TemplateIDs)
	if err != nil {
		return nil, errors.Wrap(err, "loading template registry")
	}
	defaults := dispatch.Defaults{ReplyTo: conf.ReplyToEmail}
	return dispatch.NewDispatcher(registry, provider, side, defaults, logger), nil
}

// NewSessionStore prefers redis, then a bolt file, then memory. The returned closer is never nil.
func NewSessionStore(ctx context.Context, conf *core.Config) (access.SessionStore, io.Closer, error) {
	switch {
	case conf.Session.RedisURL != "":
		store, err := session.NewRedisStore(ctx, conf.Session.RedisURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening redis session store")
		}
		return store, store, nil
	case conf.Session.DBPath != "":
		store, err := session.NewBoltStore(conf.Session.DBPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening bolt session store")
		}
		return store, store, nil
	default:
		return session.NewMemoryStore(), nopCloser{}, nil
	}
}

type purger interface {
	Purge() (int, error)
}

// PurgeSessions drops expired sessions from a store that keeps them around.
// ok is false for stores that expire sessions on their own.
func PurgeSessions(store access.SessionStore) (n int, ok bool, err error) {
	p, ok := store.(purger)
	if !ok {
		return 0, false, nil
	}
	n, err = p.Purge()
	return n, true, errors.Wrap(err, "purging sessions")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
