/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"

	"github.com/tschaefer/wren/internal/request"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Trace holds the function trace settings.
type Trace struct {
	OutputDir     string `json:"output_dir"`
	OutputName    string `json:"output_name"`
	Format        int    `json:"format"`
	Append        bool   `json:"append"`
	Enable        bool   `json:"enable"`
	EnableTrigger bool   `json:"enable_trigger"`
	TriggerName   string `json:"trigger_name"`
}

// Profile holds the profiler settings.
type Profile struct {
	OutputDir     string `json:"output_dir"`
	OutputName    string `json:"output_name"`
	Append        bool   `json:"append"`
	Enable        bool   `json:"enable"`
	EnableTrigger bool   `json:"enable_trigger"`
	TriggerName   string `json:"trigger_name"`
}

type Data struct {
	Enable        bool              `json:"enable"`
	CollectMemory bool              `json:"collect_memory"`
	CollectTime   bool              `json:"collect_time"`
	Trace         Trace             `json:"trace"`
	Profiler      Profile           `json:"profiler"`
	SessionName   string            `json:"session_name"`
	Dump          map[string]string `json:"dump"`

	Database    string      `json:"database"`
	Hostname    string      `json:"hostname"`
	Secret      string      `json:"secret"`
	Monitor     string      `json:"monitor"`
	Credentials Credentials `json:"credentials"`
}

// Config is the process-wide settings store. All fields are fixed after
// load except the two collection toggles, which may be flipped at runtime
// and propagate to the currently attached sessions through explicitly
// registered callbacks.
type Config struct {
	data    *Data
	library string

	mu              sync.RWMutex
	onCollectMemory func(bool)
	onCollectTime   func(bool)
}

func Read(file string) (*Config, error) {
	slog.Debug("Reading configuration file", "file", file)

	if !path.IsAbs(file) {
		return nil, fmt.Errorf("configuration file path must be absolute: %s", file)
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %v", file, err)
	}

	return Parse(string(raw), path.Dir(file))
}

func Parse(jsonString string, library string) (*Config, error) {
	slog.Debug("Parsing configuration from string")

	var data Data
	if err := json.Unmarshal([]byte(jsonString), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration file: %v", err)
	}

	applyDefaults(&data)

	if err := valid(&data); err != nil {
		return nil, err
	}

	slog.Debug("Configuration data", "data", filterSecrets(&data))

	return &Config{
		data:    &data,
		library: library,
	}, nil
}

func NewFromData(data *Data, library string) *Config {
	slog.Debug("Creating configuration from data", "data", filterSecrets(data), "library", library)

	applyDefaults(data)

	return &Config{
		data:    data,
		library: library,
	}
}

func (c *Config) Enabled() bool {
	return c.data.Enable
}

func (c *Config) Trace() Trace {
	return c.data.Trace
}

func (c *Config) Profiler() Profile {
	return c.data.Profiler
}

func (c *Config) SessionName() string {
	return c.data.SessionName
}

func (c *Config) Dump() map[string]string {
	return c.data.Dump
}

func (c *Config) Database() string {
	return c.data.Database
}

func (c *Config) Hostname() string {
	return c.data.Hostname
}

func (c *Config) Secret() string {
	return c.data.Secret
}

func (c *Config) Monitor() string {
	return c.data.Monitor
}

func (c *Config) Credentials() (string, string) {
	return c.data.Credentials.Username, c.data.Credentials.Password
}

func (c *Config) Library() string {
	return c.library
}

func (c *Config) CollectMemory() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.CollectMemory
}

func (c *Config) CollectTime() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.CollectTime
}

// SetCollectMemory flips the memory collection toggle and invokes the
// registered callback with the new value.
func (c *Config) SetCollectMemory(value bool) {
	c.mu.Lock()
	c.data.CollectMemory = value
	callback := c.onCollectMemory
	c.mu.Unlock()

	slog.Debug("Runtime setting changed", "option", "collect_memory", "value", value)

	if callback != nil {
		callback(value)
	}
}

// SetCollectTime flips the time collection toggle and invokes the
// registered callback with the new value.
func (c *Config) SetCollectTime(value bool) {
	c.mu.Lock()
	c.data.CollectTime = value
	callback := c.onCollectTime
	c.mu.Unlock()

	slog.Debug("Runtime setting changed", "option", "collect_time", "value", value)

	if callback != nil {
		callback(value)
	}
}

// OnCollectMemory registers the single callback invoked on toggle writes.
// There is no implicit registration; the owner of the attached sessions
// wires this once at startup.
func (c *Config) OnCollectMemory(callback func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCollectMemory = callback
}

// OnCollectTime registers the single callback invoked on toggle writes.
func (c *Config) OnCollectTime(callback func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCollectTime = callback
}

// ProfilingNeeded reports whether the request should be profiled, either
// unconditionally or because the profiler trigger is set on the request.
func (c *Config) ProfilingNeeded(ctx *request.Context) bool {
	if !c.data.Enable {
		return false
	}
	if c.data.Profiler.Enable {
		return true
	}
	return c.data.Profiler.EnableTrigger && ctx.TriggerSet(c.data.Profiler.TriggerName)
}

// TracingNeeded reports whether the request should be traced.
func (c *Config) TracingNeeded(ctx *request.Context) bool {
	if !c.data.Enable {
		return false
	}
	if c.data.Trace.Enable {
		return true
	}
	return c.data.Trace.EnableTrigger && ctx.TriggerSet(c.data.Trace.TriggerName)
}

// InstrumentationNeeded reports whether any collection is wanted for the
// request. The lifecycle manager only consumes this boolean; the formula
// is owned here.
func (c *Config) InstrumentationNeeded(ctx *request.Context) bool {
	return c.ProfilingNeeded(ctx) || c.TracingNeeded(ctx)
}

func valid(data *Data) error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"Database", data.Database},
		{"Hostname", data.Hostname},
		{"Secret", data.Secret},
		{"Credentials.Username", data.Credentials.Username},
		{"Credentials.Password", data.Credentials.Password},
	} {
		if field.value == "" {
			return fmt.Errorf("invalid configuration data, missing field: %s", field.name)
		}
	}

	if data.Trace.Format < 0 || data.Trace.Format > 2 {
		return fmt.Errorf("invalid configuration data, trace format out of range: %d", data.Trace.Format)
	}

	return nil
}

func filterSecrets(data *Data) map[string]string {
	return map[string]string{
		"Enable":      fmt.Sprintf("%v", data.Enable),
		"Trace":       fmt.Sprintf("%+v", data.Trace),
		"Profiler":    fmt.Sprintf("%+v", data.Profiler),
		"Database":    data.Database,
		"Hostname":    data.Hostname,
		"Monitor":     data.Monitor,
		"Secret":      "REDACTED",
		"Credentials": "REDACTED",
	}
}
