// Package config is the typed, scoped settings accessor (C12): a YAML
// agent-configuration file organized into named sections
// (ObserverManagerConfiguration, <ObserverName>Configuration,
// AzureStorageUploadObserverConfiguration) plus a JSON AppObserver
// target-list file. Both are watched with fsnotify and reloaded when the
// watcher sees the file change, rather than requiring a restart.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/latticeco/resobserver/pkg/metrics"
	"gopkg.in/yaml.v3"
)

// Section is one named block of scoped key/value settings.
type Section map[string]string

// Document is the parsed shape of the agent configuration file: a set of
// named sections, each holding string-valued parameters.
type Document map[string]Section

// Accessor provides typed, defaulted reads of `<Section>.<Parameter>`
// settings and reloads its backing file when it changes on disk.
type Accessor struct {
	mu   sync.RWMutex
	path string
	doc  Document
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Accessor, error) {
	a := &Accessor{path: path}
	if err := a.reload(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Accessor) reload() error {
	data, err := os.ReadFile(a.path)
	if err != nil {
		metrics.ConfigReloadsTotal.WithLabelValues(a.path, "error").Inc()
		return fmt.Errorf("config: read %s: %w", a.path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		metrics.ConfigReloadsTotal.WithLabelValues(a.path, "error").Inc()
		return fmt.Errorf("config: parse %s: %w", a.path, err)
	}

	a.mu.Lock()
	a.doc = doc
	a.mu.Unlock()
	metrics.ConfigReloadsTotal.WithLabelValues(a.path, "ok").Inc()
	return nil
}

// Reload re-reads the configuration file in place, used by the fsnotify
// watcher when the file changes.
func (a *Accessor) Reload() error { return a.reload() }

func (a *Accessor) raw(section, parameter string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sec, ok := a.doc[section]
	if !ok {
		return "", false
	}
	v, ok := sec[parameter]
	return v, ok
}

// String reads a string-valued setting, or def if absent.
func (a *Accessor) String(section, parameter, def string) string {
	if v, ok := a.raw(section, parameter); ok {
		return v
	}
	return def
}

// Bool reads a bool-valued setting ("true"/"1" are true; any other
// present value is false; absence gives def).
func (a *Accessor) Bool(section, parameter string, def bool) bool {
	v, ok := a.raw(section, parameter)
	if !ok {
		return def
	}
	return v == "true" || v == "1"
}

// Int reads an int-valued setting, or def if absent or unparseable.
func (a *Accessor) Int(section, parameter string, def int) int {
	v, ok := a.raw(section, parameter)
	if !ok {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}

// Float64 reads a float-valued setting, or def if absent or unparseable.
func (a *Accessor) Float64(section, parameter string, def float64) float64 {
	v, ok := a.raw(section, parameter)
	if !ok {
		return def
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
		return def
	}
	return f
}

// Duration reads a duration-valued setting (Go duration syntax, e.g.
// "30s"), or def if absent or unparseable.
func (a *Accessor) Duration(section, parameter string, def time.Duration) time.Duration {
	v, ok := a.raw(section, parameter)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
