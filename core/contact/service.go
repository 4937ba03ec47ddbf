// Package contact turns public contact-form submissions into an e-mail to the school.
package contact

import (
	"context"
	"net/mail"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
)

const SentMessage = "Email sent successfully"

type Submission struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,emailaddr"`
	Message string `json:"message" validate:"required"`
}

func (s *Submission) clean() {
	s.Name = core.CleanString(s.Name)
	s.Email = core.CleanString(s.Email)
	s.Message = core.CleanString(s.Message)
}

type Service struct {
	mailer     core.EmailService
	to         mail.Address
	validate   *validator.Validate
	translator ut.Translator
}

func NewService(mailer core.EmailService, to string, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		mailer:     mailer,
		to:         mail.Address{Address: to},
		validate:   validate,
		translator: translator,
	}
}

// Submit mails the submission to the contact inbox; replies go to the sender.
func (svc *Service) Submit(ctx context.Context, sub Submission) error {
	sub.clean()
	if err := svc.validate.Struct(sub); err != nil {
		return core.TranslateValidation(err, svc.translator)
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{svc.to},
		ReplyTo:      &mail.Address{Name: sub.Name, Address: sub.Email},
		Subject:      "Contact Form Submission from " + sub.Name,
		TemplateName: "contact",
		TemplateData: sub,
	}
	return errors.Wrap(svc.mailer.Send(ctx, msg), "sending contact email")
}
