/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package config

// Option describes a single recognized instrumentation setting. The table
// is the authoritative enumeration of options, their types and defaults;
// no reflection or code generation involved.
type Option struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"default"`
}

var options = []Option{
	{"enable", "bool", false},
	{"collect_memory", "bool", false},
	{"collect_time", "bool", false},
	{"trace.output_dir", "string", "/tmp"},
	{"trace.output_name", "string", "trace.%c"},
	{"trace.format", "int", 0},
	{"trace.append", "bool", false},
	{"trace.enable", "bool", false},
	{"trace.enable_trigger", "bool", false},
	{"trace.trigger_name", "string", "WREN_TRACE"},
	{"profiler.output_dir", "string", "/tmp"},
	{"profiler.output_name", "string", "cachegrind.out.%p"},
	{"profiler.append", "bool", false},
	{"profiler.enable", "bool", false},
	{"profiler.enable_trigger", "bool", false},
	{"profiler.trigger_name", "string", "WREN_PROFILE"},
	{"session_name", "string", ""},
	{"dump.COOKIE", "string", ""},
	{"dump.FILES", "string", ""},
	{"dump.GET", "string", ""},
	{"dump.POST", "string", ""},
	{"dump.REQUEST", "string", ""},
	{"dump.SERVER", "string", ""},
	{"dump.SESSION", "string", ""},
}

// Options returns the table of recognized instrumentation settings.
func Options() []Option {
	table := make([]Option, len(options))
	copy(table, options)
	return table
}

func stringDefault(name string) string {
	for _, option := range options {
		if option.Name == name {
			value, _ := option.Default.(string)
			return value
		}
	}
	return ""
}

func applyDefaults(data *Data) {
	if data.Trace.OutputDir == "" {
		data.Trace.OutputDir = stringDefault("trace.output_dir")
	}
	if data.Trace.OutputName == "" {
		data.Trace.OutputName = stringDefault("trace.output_name")
	}
	if data.Trace.TriggerName == "" {
		data.Trace.TriggerName = stringDefault("trace.trigger_name")
	}
	if data.Profiler.OutputDir == "" {
		data.Profiler.OutputDir = stringDefault("profiler.output_dir")
	}
	if data.Profiler.OutputName == "" {
		data.Profiler.OutputName = stringDefault("profiler.output_name")
	}
	if data.Profiler.TriggerName == "" {
		data.Profiler.TriggerName = stringDefault("profiler.trigger_name")
	}
	if data.Dump == nil {
		data.Dump = map[string]string{}
	}
}

// Settings reports the live value of every recognized option, keyed by
// option name. Used by the control API settings endpoint.
func (c *Config) Settings() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	settings := map[string]any{
		"enable":                   c.data.Enable,
		"collect_memory":           c.data.CollectMemory,
		"collect_time":             c.data.CollectTime,
		"trace.output_dir":         c.data.Trace.OutputDir,
		"trace.output_name":        c.data.Trace.OutputName,
		"trace.format":             c.data.Trace.Format,
		"trace.append":             c.data.Trace.Append,
		"trace.enable":             c.data.Trace.Enable,
		"trace.enable_trigger":     c.data.Trace.EnableTrigger,
		"trace.trigger_name":       c.data.Trace.TriggerName,
		"profiler.output_dir":      c.data.Profiler.OutputDir,
		"profiler.output_name":     c.data.Profiler.OutputName,
		"profiler.append":          c.data.Profiler.Append,
		"profiler.enable":          c.data.Profiler.Enable,
		"profiler.enable_trigger":  c.data.Profiler.EnableTrigger,
		"profiler.trigger_name":    c.data.Profiler.TriggerName,
		"session_name":             c.data.SessionName,
	}
	for key, value := range c.data.Dump {
		settings["dump."+key] = value
	}
	return settings
}
