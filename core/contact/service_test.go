package contact

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihongowithmoeno/moeno/core"
	emailsvc "github.com/nihongowithmoeno/moeno/services/email"
)

func TestService_Submit(t *testing.T) {
	core.ParseEmailTemplates(core.NopLogger{})
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	mailer := emailsvc.NewConsoleMock()
	svc := NewService(mailer, "school@nihongowithmoeno.com", validate, translator)
	ctx := context.Background()

	tests := []struct {
		name       string
		sub        Submission
		wantErrStr string
	}{
		{name: "missing name", sub: Submission{Email: "a@b.co", Message: "hi"}, wantErrStr: "Missing required field: name"},
		{name: "invalid email", sub: Submission{Name: "Aiko", Email: "nope", Message: "hi"}, wantErrStr: "Invalid email format"},
		{name: "missing message", sub: Submission{Name: "Aiko", Email: "a@b.co", Message: "  "}, wantErrStr: "Missing required field: message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Submit(ctx, tt.sub)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.Equal(t, tt.wantErrStr, err.Error())
		})
	}

	require.NoError(t, svc.Submit(ctx, Submission{Name: " Aiko ", Email: "aiko@example.com", Message: "When is the next trial lesson?"}))

	sent := mailer.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "Contact Form Submission from Aiko", msg.Subject)
	assert.Equal(t, "school@nihongowithmoeno.com", msg.To[0].Address)
	assert.Equal(t, "aiko@example.com", msg.ReplyTo.Address)
	assert.Contains(t, msg.TextContent, "Name: Aiko")
	assert.Contains(t, msg.TextContent, "When is the next trial lesson?")
	assert.Contains(t, msg.HTMLContent, "When is the next trial lesson?")
}
