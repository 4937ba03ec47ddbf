package emailsvc

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
)

// SentTemplate is a template send captured by the console provider.
type SentTemplate struct {
	TemplateID string
	Params     map[string]string
}

// Console prints messages instead of delivering them and keeps a copy of everything it "sent".
type Console struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool

	mu        sync.Mutex
	messages  []core.EmailMessage
	templates []SentTemplate
}

var _ core.EmailService = (*Console)(nil)

func NewConsole(conf *core.Config) *Console {
	return &Console{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
	}
}

// NewConsoleMock is a silent Console, for tests.
func NewConsoleMock() *Console {
	return &Console{
		defaultFromEmail: mail.Address{Name: "NihongoWithMoeno", Address: "noreply@nihongowithmoeno.com"},
		subjPrefix:       "[NihongoWithMoeno] ",
		disableOutput:    true,
	}
}

func (svc *Console) Send(_ context.Context, msg *core.EmailMessage) error {
	if err := msg.Render(); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}
	if err := svc.print(*msg); err != nil {
		return err
	}

	svc.mu.Lock()
	svc.messages = append(svc.messages, *msg)
	svc.mu.Unlock()
	return nil
}

func (svc *Console) SendTemplate(_ context.Context, templateID string, params map[string]string) (string, error) {
	cp := make(map[string]string, len(params))
	for k, v := range params {
		cp[k] = v
	}

	if !svc.disableOutput {
		keys := make([]string, 0, len(cp))
		for k := range cp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		body := new(strings.Builder)
		_, _ = fmt.Fprintf(body, "Template: %s\r\n", templateID)
		for _, k := range keys {
			_, _ = fmt.Fprintf(body, "%s: %s\r\n", k, cp[k])
		}
		log.Println(body.String())
	}

	svc.mu.Lock()
	svc.templates = append(svc.templates, SentTemplate{TemplateID: templateID, Params: cp})
	svc.mu.Unlock()
	return "OK", nil
}

func (svc *Console) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.messages...)
}

func (svc *Console) SentTemplates() []SentTemplate {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]SentTemplate(nil), svc.templates...)
}

func (svc *Console) print(msg core.EmailMessage) error {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.defaultFromEmail.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", svc.joinAddresses(msg.To))
	if msg.ReplyTo != nil {
		_, _ = fmt.Fprintf(body, "Reply-To: %s\r\n", msg.ReplyTo.String())
	}

	altW := multipart.NewWriter(body)
	defer altW.Close()
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative\r\n")
	_, _ = fmt.Fprintf(body, "Content-Type: boundary=%s\r\n", altW.Boundary())
	_, _ = fmt.Fprint(body, "\r\n")

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain"}})
	if err != nil {
		return errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html"}})
		if err != nil {
			return errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}

	if !svc.disableOutput {
		log.Println(body.String())
	}
	return nil
}

func (svc *Console) joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
