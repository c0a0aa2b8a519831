// Package catalog holds the fixed table of course catalogs the bot can point users to.
// A Registry is immutable after construction and safe for concurrent use.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Key identifies a catalog topic.
type Key string

const (
	KeySociosanitario Key = "sociosanitario"
	KeyAdministrativo Key = "administrativo"
	KeyEnfermeria     Key = "enfermeria"
	KeyCajero         Key = "cajero"
	KeyGeneral        Key = "general"
)

// Keys lists the closed set of topic keys every registry must define.
var Keys = []Key{KeySociosanitario, KeyAdministrativo, KeyEnfermeria, KeyCajero, KeyGeneral}

// ErrUnknownTopic is returned for keys outside the fixed topic set.
var ErrUnknownTopic = errors.New("catalog: unknown topic")

//go:embed catalog.yaml
var defaultDocument []byte

// Topic is a single catalog entry together with the keywords that select it.
type Topic struct {
	Key      Key
	Title    string
	Label    string
	Shortcut string
	URL      string
	Message  string
	Keywords []string
}

// IsDocument reports whether the topic resource is a downloadable PDF.
func (t Topic) IsDocument() bool {
	return strings.HasSuffix(strings.ToLower(t.URL), ".pdf")
}

// Entry is the display content of a topic.
type Entry struct {
	Message string
	URL     string
}

type document struct {
	Menu struct {
		Header string `yaml:"header"`
	} `yaml:"menu"`
	Topics []topicDoc `yaml:"topics"`
}

type topicDoc struct {
	Key      string   `yaml:"key"`
	Title    string   `yaml:"title"`
	Label    string   `yaml:"label"`
	Shortcut string   `yaml:"shortcut"`
	URL      string   `yaml:"url"`
	Message  string   `yaml:"message"`
	Keywords []string `yaml:"keywords"`
}

// Registry maps topic keys to their content, preserving declaration order.
type Registry struct {
	topics    []Topic
	index     map[Key]int
	shortcuts map[string]Key
	menu      string
}

// Default builds the registry from the embedded catalog document.
func Default() (*Registry, error) {
	return Parse(defaultDocument)
}

// Load reads a catalog document from path, falling back to the embedded one when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document, renders message templates and validates the result.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	reg := &Registry{
		topics:    make([]Topic, 0, len(doc.Topics)),
		index:     make(map[Key]int, len(doc.Topics)),
		shortcuts: make(map[string]Key, len(doc.Topics)),
	}
	for _, td := range doc.Topics {
		t := Topic{
			Key:      Key(strings.TrimSpace(td.Key)),
			Title:    strings.TrimSpace(td.Title),
			Label:    strings.TrimSpace(td.Label),
			Shortcut: strings.TrimSpace(td.Shortcut),
			URL:      strings.TrimSpace(td.URL),
		}
		if t.Label == "" {
			t.Label = t.Title
		}
		for _, kw := range td.Keywords {
			t.Keywords = append(t.Keywords, strings.ToLower(strings.TrimSpace(kw)))
		}
		msg, err := render(td.Message, t)
		if err != nil {
			return nil, fmt.Errorf("catalog: topic %q: %w", t.Key, err)
		}
		t.Message = msg

		if _, dup := reg.index[t.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate topic %q", t.Key)
		}
		reg.index[t.Key] = len(reg.topics)
		reg.topics = append(reg.topics, t)
		if t.Shortcut != "" {
			if prev, dup := reg.shortcuts[t.Shortcut]; dup {
				return nil, fmt.Errorf("catalog: shortcut %q used by %q and %q", t.Shortcut, prev, t.Key)
			}
			reg.shortcuts[t.Shortcut] = t.Key
		}
	}
	reg.menu = buildMenu(strings.TrimSpace(doc.Menu.Header), reg.topics)

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func render(tmpl string, t Topic) (string, error) {
	tpl, err := template.New(string(t.Key)).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, t); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildMenu(header string, topics []Topic) string {
	var b strings.Builder
	b.WriteString(header)
	for _, t := range topics {
		b.WriteString("\n• ")
		b.WriteString(t.Label)
	}
	return b.String()
}

// Validate checks the registry covers exactly the fixed key set with usable content.
func (r *Registry) Validate() error {
	if len(r.topics) != len(Keys) {
		return fmt.Errorf("catalog: expected %d topics, got %d", len(Keys), len(r.topics))
	}
	for _, k := range Keys {
		i, ok := r.index[k]
		if !ok {
			return fmt.Errorf("catalog: missing topic %q", k)
		}
		t := r.topics[i]
		switch {
		case t.Title == "":
			return fmt.Errorf("catalog: topic %q has no title", k)
		case t.URL == "":
			return fmt.Errorf("catalog: topic %q has no url", k)
		case strings.TrimSpace(t.Message) == "":
			return fmt.Errorf("catalog: topic %q has no message", k)
		case len(t.Keywords) == 0:
			return fmt.Errorf("catalog: topic %q has no keywords", k)
		}
		for _, kw := range t.Keywords {
			if kw == "" {
				return fmt.Errorf("catalog: topic %q has an empty keyword", k)
			}
		}
	}
	return nil
}

// Get returns the full topic for key.
func (r *Registry) Get(key Key) (Topic, error) {
	i, ok := r.index[key]
	if !ok {
		return Topic{}, fmt.Errorf("%w: %q", ErrUnknownTopic, key)
	}
	t := r.topics[i]
	t.Keywords = append([]string(nil), t.Keywords...)
	return t, nil
}

// Lookup returns the display message and resource URL for key.
func (r *Registry) Lookup(key Key) (Entry, error) {
	i, ok := r.index[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownTopic, key)
	}
	return Entry{Message: r.topics[i].Message, URL: r.topics[i].URL}, nil
}

// Has reports whether key is a known topic.
func (r *Registry) Has(key Key) bool {
	_, ok := r.index[key]
	return ok
}

// Topics returns the topics in declaration order.
func (r *Registry) Topics() []Topic {
	out := make([]Topic, len(r.topics))
	for i, t := range r.topics {
		t.Keywords = append([]string(nil), t.Keywords...)
		out[i] = t
	}
	return out
}

// ByShortcut resolves a legacy numeric shortcut such as "3".
func (r *Registry) ByShortcut(s string) (Key, bool) {
	k, ok := r.shortcuts[strings.TrimSpace(s)]
	return k, ok
}

// StartMenu returns the start greeting listing every topic.
func (r *Registry) StartMenu() string {
	return r.menu
}
