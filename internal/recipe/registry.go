package recipe

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-yaml"
)

//go:embed adapters.yaml
var adaptersYAML []byte

// Adapter holds the CSS selectors used to locate recipe fields on one
// site. Title, Ingredients and Steps are required; the rest are optional
// and extraction falls back to defaults when they are empty or unmatched.
type Adapter struct {
	Host        string `yaml:"host"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Ingredients string `yaml:"ingredients"`
	Steps       string `yaml:"steps"`
	Image       string `yaml:"image"`
	Time        string `yaml:"time"`
	Difficulty  string `yaml:"difficulty"`
	Servings    string `yaml:"servings"`
}

// Registry maps hostnames to site adapters. Immutable after load.
type Registry struct {
	adapters []Adapter
}

type adapterFile struct {
	Adapters []Adapter `yaml:"adapters"`
}

// NewRegistry loads the built-in adapter set.
func NewRegistry() (*Registry, error) {
	return loadRegistry(adaptersYAML)
}

func loadRegistry(raw []byte) (*Registry, error) {
	var file adapterFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse adapter config: %w", err)
	}
	for _, a := range file.Adapters {
		if a.Host == "" || a.Title == "" {
			return nil, fmt.Errorf("adapter missing host or title selector: %+v", a)
		}
	}
	return &Registry{adapters: file.Adapters}, nil
}

// Match returns the first adapter whose host key is a substring of the
// given hostname, or false when the site is unsupported.
func (r *Registry) Match(hostname string) (Adapter, bool) {
	for _, a := range r.adapters {
		if strings.Contains(hostname, a.Host) {
			return a, true
		}
	}
	return Adapter{}, false
}

// Hosts returns the host keys of all registered adapters, in match order.
func (r *Registry) Hosts() []string {
	hosts := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		hosts = append(hosts, a.Host)
	}
	return hosts
}

// IsRecipePage reports whether the document looks like a recipe page:
// an adapter matches the hostname and its title selector resolves to at
// least one element.
func (r *Registry) IsRecipePage(doc *goquery.Document, hostname string) bool {
	adapter, ok := r.Match(hostname)
	if !ok {
		return false
	}
	return doc.Find(adapter.Title).Length() > 0
}
