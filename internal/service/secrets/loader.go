// Package secrets resolves credential references to values.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when no source holds the credential.
var ErrNotFound = errors.New("credential not found")

// Loader looks a credential up in the environment first, then in an optional file holding
// NAME=value lines or the bare value.
type Loader struct {
	getenv func(string) string
	file   string
}

type Option func(*Loader)

// WithFile sets the fallback credential file.
func WithFile(path string) Option {
	return func(l *Loader) { l.file = path }
}

// WithGetenv replaces the environment lookup.
func WithGetenv(fn func(string) string) Option {
	return func(l *Loader) { l.getenv = fn }
}

func New(opts ...Option) *Loader {
	l := &Loader{getenv: os.Getenv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Load(_ context.Context, name string) (string, error) {
	if v := strings.TrimSpace(l.getenv(name)); v != "" {
		return v, nil
	}
	if l.file == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	b, err := os.ReadFile(l.file)
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}
	if v, ok := fromFile(string(b), name); ok {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// fromFile reads either NAME=value lines (blank lines and # comments ignored) or, when no
// line has that form, a bare value on the first non-blank line.
func fromFile(content, name string) (string, bool) {
	var bare string
	assignments := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			if bare == "" {
				bare = line
			}
			continue
		}
		assignments = true
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if key == name {
			value = strings.Trim(strings.TrimSpace(value), `"'`)
			return value, value != ""
		}
	}
	if assignments {
		return "", false
	}
	return bare, bare != ""
}

// Static always returns the same value. Useful for tests and local runs.
type Static string

func (s Static) Load(context.Context, string) (string, error) { return string(s), nil }
