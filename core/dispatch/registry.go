package dispatch

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Side selects which entry point a registry serves.
type Side int

const (
	ServerSide Side = iota
	ClientSide // browser-initiated sends, reduced surface
)

func (s Side) String() string {
	if s == ClientSide {
		return "client"
	}
	return "server"
}

// suggestions below this similarity are not worth showing
const suggestCutoff = 0.6

type Template struct {
	Key            string   `yaml:"key" json:"type"`
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Description    string   `yaml:"description" json:"description"`
	RequiredParams []string `yaml:"requiredParams" json:"requiredFields"`
	OptionalParams []string `yaml:"optionalParams" json:"optionalFields"`
	ServerSide     bool     `yaml:"serverSide" json:"-"`
	ClientSide     bool     `yaml:"clientSide" json:"-"`
}

func (t Template) availableOn(side Side) bool {
	if side == ClientSide {
		return t.ClientSide
	}
	return t.ServerSide
}

// Registry is the fixed template-key -> template mapping, shared by both entry points.
type Registry struct {
	templates []Template
	byKey     map[string]int
}

// NewRegistry loads the embedded registry, replacing remote ids with the non-blank overrides.
func NewRegistry(overrides map[string]string) (*Registry, error) {
	var templates []Template
	if err := yaml.Unmarshal(templatesYAML, &templates); err != nil {
		return nil, errors.Wrap(err, "parsing templates.yaml")
	}

	reg := &Registry{templates: templates, byKey: make(map[string]int, len(templates))}
	for i, tmpl := range templates {
		if _, dup := reg.byKey[tmpl.Key]; dup {
			return nil, fmt.Errorf("duplicate template key %q", tmpl.Key)
		}
		if id := strings.TrimSpace(overrides[tmpl.Key]); id != "" {
			reg.templates[i].ID = id
		}
		reg.byKey[tmpl.Key] = i
	}
	return reg, nil
}

// MustNewRegistry is like NewRegistry but panics on a malformed registry.
func MustNewRegistry(overrides map[string]string) *Registry {
	reg, err := NewRegistry(overrides)
	if err != nil {
		panic(err)
	}
	return reg
}

func (r *Registry) Lookup(key string, side Side) (Template, bool) {
	i, ok := r.byKey[key]
	if !ok || !r.templates[i].availableOn(side) {
		return Template{}, false
	}
	return r.templates[i], true
}

// Templates lists the templates available on side, in registry order.
func (r *Registry) Templates(side Side) []Template {
	res := make([]Template, 0, len(r.templates))
	for _, tmpl := range r.templates {
		if tmpl.availableOn(side) {
			res = append(res, tmpl)
		}
	}
	return res
}

func (r *Registry) Keys(side Side) []string {
	tmpls := r.Templates(side)
	keys := make([]string, 0, len(tmpls))
	for _, tmpl := range tmpls {
		keys = append(keys, tmpl.Key)
	}
	return keys
}

// Suggest returns the closest known key to key, or "" when nothing is close enough.
func (r *Registry) Suggest(key string, side Side) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}

	type candidate struct {
		key   string
		ratio float64
	}
	var candidates []candidate
	for _, k := range r.Keys(side) {
		ratio := difflib.NewMatcher(strings.Split(key, ""), strings.Split(k, "")).Ratio()
		if ratio >= suggestCutoff {
			candidates = append(candidates, candidate{k, ratio})
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ratio > candidates[j].ratio })
	return candidates[0].key
}
