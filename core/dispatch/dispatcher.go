package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/metrics"
)

const (
	DefaultFromName = "Moeno"
	DefaultReplyTo  = "moeno@nihongowithmoeno.com"

	paramToEmail  = "to_email"
	paramToName   = "to_name"
	paramFromName = "from_name"
	paramReplyTo  = "reply_to"
)

var (
	ErrTemplateRequired   = core.NewValidationError(errors.New("Template type is required"))
	ErrParamsRequired     = core.NewValidationError(errors.New("Template parameters are required"))
	ErrTemplateIDRequired = core.NewValidationError(errors.New("Template type and testTemplateId are required"))
)

// Provider delivers a remote template; it returns the provider's raw answer.
type Provider interface {
	SendTemplate(ctx context.Context, templateID string, params map[string]string) (string, error)
}

// Recipient may stand in for the to_email / to_name params.
type Recipient struct {
	Email string `json:"recipientEmail"`
	Name  string `json:"recipientName"`
}

type Defaults struct {
	FromName string
	ReplyTo  string
}

type Result struct {
	Template         string `json:"template"`
	TemplateName     string `json:"templateName"`
	Recipient        string `json:"recipient"`
	Message          string `json:"message"`
	ProviderResponse string `json:"providerResponse,omitempty"`
}

// Dispatcher is the Email Dispatch Gateway. It holds no state between sends.
type Dispatcher struct {
	registry *Registry
	provider Provider
	side     Side
	defaults Defaults
	logger   core.Logger
}

func NewDispatcher(registry *Registry, provider Provider, side Side, defaults Defaults, logger core.Logger) *Dispatcher {
	if defaults.FromName == "" {
		defaults.FromName = DefaultFromName
	}
	if defaults.ReplyTo == "" {
		defaults.ReplyTo = DefaultReplyTo
	}
	return &Dispatcher{
		registry: registry,
		provider: provider,
		side:     side,
		defaults: defaults,
		logger:   logger,
	}
}

func (d *Dispatcher) Templates() []Template {
	return d.registry.Templates(d.side)
}

// Template returns a single template, or a NotFoundError.
func (d *Dispatcher) Template(key string) (Template, error) {
	tmpl, ok := d.registry.Lookup(core.CleanString(key), d.side)
	if !ok {
		return Template{}, core.NewNotFoundError(fmt.Sprintf("Template %q not found", key))
	}
	return tmpl, nil
}

// Send validates params against the template, merges defaults and hands the result to the provider.
// A nil params map is rejected, an empty one is not.
func (d *Dispatcher) Send(ctx context.Context, key string, params map[string]string, to Recipient) (Result, error) {
	key = core.CleanString(key)
	if key == "" {
		return Result{}, ErrTemplateRequired
	}
	if params == nil {
		return Result{}, ErrParamsRequired
	}

	tmpl, ok := d.registry.Lookup(key, d.side)
	if !ok {
		return Result{}, d.templateNotFound(key)
	}

	to.Email = core.CleanString(to.Email)
	to.Name = core.CleanString(to.Name)
	if missing := missingParams(tmpl, params, to); len(missing) > 0 {
		return Result{}, core.NewValidationError(
			fmt.Errorf("Missing required fields: %s", strings.Join(missing, ", ")),
			core.FieldError{Field: "requiredFields", Error: strings.Join(tmpl.RequiredParams, ", ")},
			core.FieldError{Field: "optionalFields", Error: strings.Join(tmpl.OptionalParams, ", ")},
		)
	}

	final := d.finalParams(params, to)
	if tmpl.ID == "" {
		d.record(key, false)
		return Result{}, &core.UpstreamError{Service: "email", Message: fmt.Sprintf("Template %q is not configured", key)}
	}

	resp, err := d.provider.SendTemplate(ctx, tmpl.ID, final)
	if err != nil {
		d.record(key, false)
		return Result{}, pkgerrors.Wrapf(err, "sending %s", key)
	}
	d.record(key, true)
	if d.logger != nil {
		d.logger.Info(fmt.Sprintf("email sent: template=%s to=%s", key, final[paramToEmail]))
	}

	return Result{
		Template:         key,
		TemplateName:     tmpl.Name,
		Recipient:        final[paramToEmail],
		Message:          tmpl.Name + " sent successfully",
		ProviderResponse: resp,
	}, nil
}

// TestSend bypasses the registry: the params go as-is to an arbitrary remote template id.
func (d *Dispatcher) TestSend(ctx context.Context, templateID string, params map[string]string) (string, error) {
	templateID = core.CleanString(templateID)
	if templateID == "" {
		return "", ErrTemplateIDRequired
	}
	if params == nil {
		params = map[string]string{}
	}
	resp, err := d.provider.SendTemplate(ctx, templateID, params)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "test sending %s", templateID)
	}
	return resp, nil
}

func (d *Dispatcher) templateNotFound(key string) error {
	msg := fmt.Errorf("Template %q not found", key)
	if hint := d.registry.Suggest(key, d.side); hint != "" {
		return core.NewValidationError(msg, core.FieldError{Field: "template", Error: fmt.Sprintf("Did you mean %q?", hint)})
	}
	return core.NewValidationError(msg)
}

func (d *Dispatcher) finalParams(params map[string]string, to Recipient) map[string]string {
	final := make(map[string]string, len(params)+4)
	for k, v := range params {
		final[k] = v
	}
	final[paramToEmail] = firstNonBlank(params[paramToEmail], to.Email)
	final[paramToName] = firstNonBlank(params[paramToName], to.Name)
	final[paramFromName] = firstNonBlank(params[paramFromName], d.defaults.FromName)
	final[paramReplyTo] = firstNonBlank(params[paramReplyTo], d.defaults.ReplyTo)
	return final
}

func (d *Dispatcher) record(key string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	metrics.EmailsSentTotal.WithLabelValues(key, result).Inc()
}

// missingParams lists absent required params; to_email and to_name may come from the recipient instead.
func missingParams(tmpl Template, params map[string]string, to Recipient) []string {
	var missing []string
	for _, p := range tmpl.RequiredParams {
		if p == paramToEmail || p == paramToName {
			continue
		}
		if core.CleanString(params[p]) == "" {
			missing = append(missing, p)
		}
	}
	if core.CleanString(params[paramToEmail]) == "" && to.Email == "" {
		missing = append(missing, "to_email (or recipientEmail)")
	}
	if core.CleanString(params[paramToName]) == "" && to.Name == "" {
		missing = append(missing, "to_name (or recipientName)")
	}
	return missing
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
