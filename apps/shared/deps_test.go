package shared

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
	emailsvc "github.com/nihongowithmoeno/moeno/services/email"
	"github.com/nihongowithmoeno/moeno/storage/airtable"
	"github.com/nihongowithmoeno/moeno/storage/inmem"
	"github.com/nihongowithmoeno/moeno/storage/session"
)

func TestNewRecordStore(t *testing.T) {
	conf := &core.Config{Debug: true}
	_, ok := NewRecordStore(conf, core.NopLogger{}).(*inmem.Store)
	assert.True(t, ok, "debug without credentials")

	conf.Debug = false
	_, ok = NewRecordStore(conf, core.NopLogger{}).(*airtable.Client)
	assert.True(t, ok, "production without credentials fails at call time")

	conf.Debug = true
	conf.Airtable.BaseID = "app123"
	conf.Airtable.AccessToken = "pat"
	_, ok = NewRecordStore(conf, core.NopLogger{}).(*airtable.Client)
	assert.True(t, ok, "configured")
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     interface{}
		wantErr  bool
	}{
		{provider: "", want: &emailsvc.EmailJS{}},
		{provider: ProviderEmailJS, want: &emailsvc.EmailJS{}},
		{provider: ProviderSendgrid, want: &emailsvc.Sendgrid{}},
		{provider: ProviderConsole, want: &emailsvc.Console{}},
		{provider: "carrier-pigeon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			conf := &core.Config{}
			conf.Email.Provider = tt.provider
			got, err := NewProvider(conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestNewDispatcher(t *testing.T) {
	conf := &core.Config{ReplyToEmail: "hello@nihongowithmoeno.com"}
	conf.Email.TemplateIDs = map[string]string{"waitlist_contact": "template_wl"}

	d, err := NewDispatcher(conf, emailsvc.NewConsoleMock(), dispatch.ClientSide, nil)
	require.NoError(t, err)

	tmpl, err := d.Template("waitlist_contact")
	require.NoError(t, err)
	assert.Equal(t, "template_wl", tmpl.ID)

	_, err = d.Template("lesson_reminder")
	assert.True(t, core.IsNotFound(err), "server side only")
}

func TestNewSessionStore(t *testing.T) {
	ctx := context.Background()

	store, closer, err := NewSessionStore(ctx, &core.Config{})
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, store)
	_, ok, err := PurgeSessions(store)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, closer.Close())

	conf := &core.Config{}
	conf.Session.DBPath = filepath.Join(t.TempDir(), "sessions.db")
	store, closer, err = NewSessionStore(ctx, conf)
	require.NoError(t, err)
	assert.IsType(t, &session.BoltStore{}, store)
	n, ok, err := PurgeSessions(store)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, n)
	assert.NoError(t, closer.Close())

	conf.Session.RedisURL = "not a url"
	_, _, err = NewSessionStore(ctx, conf)
	assert.Error(t, err)
}
