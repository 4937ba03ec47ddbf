package assets

import "embed"

// EmailTemplates holds the plain (non provider-templated) e-mail bodies.
//
//go:embed templates/email
var EmailTemplates embed.FS
