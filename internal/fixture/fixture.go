// Package fixture holds the scripted call timelines the monitor plays back.
package fixture

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/capitalize-ai/call-monitor/internal/model"
)

//go:embed scripts/*.yaml
var builtin embed.FS

// DefaultScript is the script played when none is configured.
const DefaultScript = "clinic-intake"

// ErrUnknownScript is returned when a script name is not registered.
var ErrUnknownScript = errors.New("unknown script")

// MaxNameLength bounds script names.
const MaxNameLength = 64

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateName checks that name can be selected over the API: lowercase
// letters, digits, '-' and '_', starting with a letter or digit.
func ValidateName(name string) error {
	if len(name) == 0 {
		return errors.New("script name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return errors.New("script name exceeds maximum length")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("script name %q must be lowercase letters, digits, '-' or '_'", name)
	}
	return nil
}

// Script is one complete set of timelines for a simulated call. Scripts are
// shared between sessions and must not be modified after loading.
type Script struct {
	Name         string                                  `yaml:"name"`
	Description  string                                  `yaml:"description"`
	Caller       model.CallerInfo                        `yaml:"caller"`
	Conversation model.Timeline[model.ConversationTurn]  `yaml:"conversation"`
	Reasoning    model.Timeline[model.ReasoningStep]     `yaml:"reasoning"`
	Diagnostics  model.Timeline[model.DiagnosticFinding] `yaml:"diagnostics"`
}

// Parse decodes and validates a YAML script.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every timeline and payload.
func (s *Script) Validate() error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if err := s.Conversation.Validate(); err != nil {
		return fmt.Errorf("script %s: conversation: %w", s.Name, err)
	}
	for i, ev := range s.Conversation {
		if ev.DurationMs <= 0 {
			return fmt.Errorf("script %s: conversation event %d: duration is required", s.Name, i)
		}
		if err := ev.Payload.Validate(); err != nil {
			return fmt.Errorf("script %s: conversation event %d: %w", s.Name, i, err)
		}
	}
	if err := s.Reasoning.Validate(); err != nil {
		return fmt.Errorf("script %s: reasoning: %w", s.Name, err)
	}
	for i, ev := range s.Reasoning {
		if err := ev.Payload.Validate(); err != nil {
			return fmt.Errorf("script %s: reasoning event %d: %w", s.Name, i, err)
		}
	}
	if err := s.Diagnostics.Validate(); err != nil {
		return fmt.Errorf("script %s: diagnostics: %w", s.Name, err)
	}
	for i, ev := range s.Diagnostics {
		if err := ev.Payload.Validate(); err != nil {
			return fmt.Errorf("script %s: diagnostics event %d: %w", s.Name, i, err)
		}
	}
	return nil
}

// Duration returns the instant the last scripted event ends.
func (s *Script) Duration() time.Duration {
	return max(s.Conversation.End(), s.Reasoning.End(), s.Diagnostics.End())
}

// Summary describes the script for listings.
func (s *Script) Summary() model.ScriptSummary {
	return model.ScriptSummary{
		Name:        s.Name,
		Description: s.Description,
		DurationMs:  s.Duration().Milliseconds(),
	}
}

// Registry resolves scripts by name.
type Registry struct {
	scripts map[string]*Script
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]*Script)}
}

// Builtin returns a registry holding the embedded scripts.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	if err := r.loadFS(builtin, "scripts"); err != nil {
		return nil, err
	}
	return r, nil
}

// Add registers s, replacing any script with the same name.
func (r *Registry) Add(s *Script) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.scripts[s.Name] = s
	return nil
}

// LoadDir registers every .yaml/.yml script in dir.
func (r *Registry) LoadDir(dir string) error {
	return r.loadFS(os.DirFS(dir), ".")
}

func (r *Registry) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read scripts: %w", err)
	}
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		s, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		r.scripts[s.Name] = s
	}
	return nil
}

// Lookup returns the named script.
func (r *Registry) Lookup(name string) (*Script, error) {
	s, ok := r.scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	return s, nil
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summaries describes every registered script.
func (r *Registry) Summaries() []model.ScriptSummary {
	names := r.Names()
	out := make([]model.ScriptSummary, len(names))
	for i, name := range names {
		out[i] = r.scripts[name].Summary()
	}
	return out
}
