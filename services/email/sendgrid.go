package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/metrics"
)

const sendgridService = "sendgrid"

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// Sendgrid delivers both plain messages (core.EmailService) and dynamic templates (dispatch.Provider).
type Sendgrid struct {
	key        string
	host       string
	from       *sgmail.Email
	replyTo    *sgmail.Email
	subjPrefix string
}

var _ core.EmailService = (*Sendgrid)(nil)

func NewSendgrid(conf *core.Config) *Sendgrid {
	return &Sendgrid{
		key:        conf.Email.SendgridAPIKey,
		host:       host,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		replyTo:    sgmail.NewEmail("", conf.ReplyToEmail),
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc *Sendgrid) Send(ctx context.Context, msg *core.EmailMessage) error {
	if err := msg.Render(); err != nil {
		return fmt.Errorf("rendering email: %w", err)
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}
	return svc.send(ctx, svc.prepare(*msg))
}

// SendTemplate sends a SendGrid dynamic template; to_email / to_name / reply_to steer the envelope,
// every param is exposed to the template.
func (svc *Sendgrid) SendTemplate(ctx context.Context, templateID string, params map[string]string) (string, error) {
	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail(params["to_name"], params["to_email"]))
	for k, v := range params {
		p.SetDynamicTemplateData(k, v)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.SetTemplateID(templateID)
	m.AddPersonalizations(p)
	if replyTo := params["reply_to"]; replyTo != "" {
		m.SetReplyTo(sgmail.NewEmail("", replyTo))
	} else {
		m.SetReplyTo(svc.replyTo)
	}

	if err := svc.send(ctx, m); err != nil {
		return "", err
	}
	return "OK", nil
}

func (svc *Sendgrid) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(svc.getSGEmail(to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	if msg.ReplyTo != nil {
		m.SetReplyTo(svc.getSGEmail(*msg.ReplyTo))
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func (svc *Sendgrid) getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc *Sendgrid) send(ctx context.Context, m *sgmail.SGMailV3) error {
	if svc.key == "" {
		return &core.UpstreamError{Service: sendgridService, Message: "SendGrid is not configured"}
	}

	req := sendgrid.GetRequest(svc.key, endpoint, svc.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	started := time.Now()
	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		metrics.ObserveUpstream(sendgridService, 0, started)
		return &core.UpstreamError{Service: sendgridService, Message: fmt.Sprintf("sending email: %v", err)}
	}
	metrics.ObserveUpstream(sendgridService, res.StatusCode, started)

	if res.StatusCode >= http.StatusBadRequest {
		return &core.UpstreamError{
			Service:    sendgridService,
			StatusCode: res.StatusCode,
			Message:    fmt.Sprintf("SendGrid API Error: %d - %s", res.StatusCode, res.Body),
			Body:       res.Body,
		}
	}
	return nil
}
