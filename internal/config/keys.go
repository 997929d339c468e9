package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// key binds a dotted config key to a field.
type key struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringKey(field func(*Config) *string) key {
	return key{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(*Config) *int) key {
	return key{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return &ConfigurationError{Field: name, Value: v, Reason: "must be a whole number"}
			}
			*field(c) = n
			return nil
		},
	}
}

func boolKey(name string, field func(*Config) *bool) key {
	return key{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return &ConfigurationError{Field: name, Value: v, Reason: "must be true or false"}
			}
			*field(c) = b
			return nil
		},
	}
}

var keys = map[string]key{
	"version_pattern": stringKey(func(c *Config) *string { return &c.VersionPattern }),
	"version_scheme":  stringKey(func(c *Config) *string { return &c.VersionScheme }),
	"env_var":         stringKey(func(c *Config) *string { return &c.EnvVar }),
	"root_folder":     stringKey(func(c *Config) *string { return &c.RootFolder }),
	"scene":           stringKey(func(c *Config) *string { return &c.Scene }),
	"history_path":    stringKey(func(c *Config) *string { return &c.HistoryPath }),

	"scan.workers":        intKey("scan.workers", func(c *Config) *int { return &c.Scan.Workers }),
	"scan.progress_every": intKey("scan.progress_every", func(c *Config) *int { return &c.Scan.ProgressEvery }),
	"scan.progress_interval": {
		get: func(c *Config) string { return c.Scan.ProgressInterval.String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return &ConfigurationError{Field: "scan.progress_interval", Value: v, Reason: "must be a duration like 100ms"}
			}
			c.Scan.ProgressInterval = Duration{d}
			return nil
		},
	},

	"filter.extensions": {
		get: func(c *Config) string { return strings.Join(c.Filter.Extensions, ",") },
		set: func(c *Config, v string) error {
			var exts []string
			for e := range strings.SplitSeq(v, ",") {
				if e = strings.TrimSpace(e); e != "" {
					exts = append(exts, e)
				}
			}
			c.Filter.Extensions = exts
			return nil
		},
	},
	"filter.show_malformed": boolKey("filter.show_malformed", func(c *Config) *bool { return &c.Filter.ShowMalformed }),

	"theme.name":     stringKey(func(c *Config) *string { return &c.Theme.Name }),
	"theme.mode":     stringKey(func(c *Config) *string { return &c.Theme.Mode }),
	"theme.nerdfont": boolKey("theme.nerdfont", func(c *Config) *bool { return &c.Theme.Nerdfont }),

	"log.level": stringKey(func(c *Config) *string { return &c.Log.Level }),
	"log.dir":   stringKey(func(c *Config) *string { return &c.Log.Dir }),
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func lookup(name string) (key, error) {
	k, ok := keys[name]
	if !ok {
		return key{}, fmt.Errorf("unknown config key %q (see 'cachemgr config keys')", name)
	}
	return k, nil
}

// Get returns the value of a dotted key.
func (c *Config) Get(name string) (string, error) {
	k, err := lookup(name)
	if err != nil {
		return "", err
	}
	return k.get(c), nil
}

// Set assigns value to a dotted key. The result is validated as a whole;
// on error c is left unchanged.
func (c *Config) Set(name, value string) error {
	k, err := lookup(name)
	if err != nil {
		return err
	}
	next := *c
	next.Filter.Extensions = slices.Clone(c.Filter.Extensions)
	if err := k.set(&next, value); err != nil {
		return err
	}
	if err := Validate(&next); err != nil {
		return err
	}
	*c = next
	return nil
}

// Reset restores one key to its default. No name restores everything.
func (c *Config) Reset(name string) error {
	def := Default()
	if name == "" {
		unknown := c.Unknown
		*c = def
		c.Unknown = unknown
		return nil
	}
	k, err := lookup(name)
	if err != nil {
		return err
	}
	return k.set(c, k.get(&def))
}
