package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// OptionType is the expected type of an option value.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeDuration OptionType = "duration" // time.ParseDuration syntax
	TypeLevel    OptionType = "level"    // debug, info, warn or error
)

// Option declares one configuration option.
type Option struct {
	// Key is the option name as written in the file.
	Key  string
	Type OptionType
	// Default is the value used when neither the environment nor the file
	// sets one.
	Default     string
	Description string
	// Section is "" for global options.
	Section string
	// EnvVar, if set, overrides the file.
	EnvVar string
}

// Schema is the set of known options.
type Schema struct {
	options   []*Option
	byKey     map[string]*Option
	bySection map[string]map[string]*Option
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{
		byKey:     make(map[string]*Option),
		bySection: make(map[string]map[string]*Option),
	}
}

// Register adds opt. A later registration of the same key and section wins.
func (s *Schema) Register(opts ...Option) {
	for _, opt := range opts {
		ref := new(Option)
		*ref = opt
		s.options = append(s.options, ref)
		if opt.Section == "" {
			s.byKey[opt.Key] = ref
			continue
		}
		if s.bySection[opt.Section] == nil {
			s.bySection[opt.Section] = make(map[string]*Option)
		}
		s.bySection[opt.Section][opt.Key] = ref
	}
}

// Lookup returns the option for key in section ("" for global), or nil.
func (s *Schema) Lookup(section, key string) *Option {
	if section == "" {
		return s.byKey[key]
	}
	return s.bySection[section][key]
}

// Options returns the options registered for section, in registration order.
func (s *Schema) Options(section string) []Option {
	var out []Option
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted names of sections with registered options.
func (s *Schema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	slices.Sort(out)
	return out
}

// Resolve returns the effective value of key in section: the option's
// environment variable if set, else the file (sections fall back to global
// options of the same key), else the schema default.
func (s *Schema) Resolve(c *Config, section, key string) string {
	opt := s.Lookup(section, key)
	if opt == nil && section != "" {
		opt = s.Lookup("", key)
	}
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		if v, ok := c.GetSectionOption(section, key); ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveBool is Resolve parsed as a bool.
func (s *Schema) ResolveBool(c *Config, section, key string) (bool, error) {
	v := s.Resolve(c, section, key)
	if v == "" {
		return false, nil
	}
	b, err := parseBool(v)
	if err != nil {
		return false, fmt.Errorf("option %q: %w", key, err)
	}
	return b, nil
}

// ResolveInt is Resolve parsed as an int.
func (s *Schema) ResolveInt(c *Config, section, key string) (int, error) {
	v := s.Resolve(c, section, key)
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return i, nil
}

// ResolveDuration is Resolve parsed as a time.Duration.
func (s *Schema) ResolveDuration(c *Config, section, key string) (time.Duration, error) {
	v := s.Resolve(c, section, key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return d, nil
}

// ValidateConfig returns the sorted list of problems in c: unknown options
// and values that do not parse as their declared type.
func ValidateConfig(c *Config, s *Schema) []string {
	var issues []string
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}
	for section, opts := range c.Sections {
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option in [%s]: %q (value: %q)", section, key, value))
				continue
			}
			if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}
	slices.Sort(issues)
	return issues
}

func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeLevel:
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("expected log level, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// FormatHelp renders every option, global first, then by section.
func (s *Schema) FormatHelp() string {
	var b strings.Builder
	if globals := s.Options(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range s.Options(sec) {
			writeOptionHelp(&b, o)
		}
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o Option) {
	fmt.Fprintf(b, "  %-28s %s", o.Key, o.Description)
	var parts []string
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, "type: "+string(o.Type))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteByte('\n')
}

// Option keys understood by the engine and the CLI.
const (
	KeyLogLevel          = "log.level"
	KeyLogBufferSize     = "log.buffer-size"
	KeySyncTimeout       = "engine.sync-timeout"
	KeyStrictProperties  = "engine.strict-properties"
	KeyConfinementChecks = "engine.confinement-checks"
	KeyMainRealm         = "engine.main-realm"
	KeyConsole           = "engine.console"
	KeyMaxArrayLength    = "engine.max-array-length"

	SectionEval = "eval"
	KeyModule   = "module"
	KeyRealm    = "realm"
)

// DefaultSchema returns every option known to jsadapt.
func DefaultSchema() *Schema {
	s := NewSchema()
	s.Register(
		Option{Key: KeyLogLevel, Type: TypeLevel, Default: "info", Description: "Minimum log level: debug, info, warn, error", EnvVar: "JSADAPT_LOG_LEVEL"},
		Option{Key: KeyLogBufferSize, Type: TypeInt, Default: "1000", Description: "In-memory log buffer size (entries)"},
		Option{Key: KeySyncTimeout, Type: TypeDuration, Default: "5s", Description: "Wait limit for synchronous engine calls (0 disables)", EnvVar: "JSADAPT_SYNC_TIMEOUT"},
		Option{Key: KeyStrictProperties, Type: TypeBool, Default: "false", Description: "Fail property reads of missing keys instead of yielding undefined"},
		Option{Key: KeyConfinementChecks, Type: TypeBool, Default: "false", Description: "Panic when a realm is used off its engine goroutine"},
		Option{Key: KeyMainRealm, Type: TypeString, Default: "main", Description: "Identifier of the main realm"},
		Option{Key: KeyConsole, Type: TypeBool, Default: "true", Description: "Expose console, routed to the log"},
		Option{Key: KeyMaxArrayLength, Type: TypeInt, Default: "1048576", Description: "Longest array converted or traversed (0 disables the bound)"},

		Option{Key: KeyModule, Section: SectionEval, Type: TypeBool, Default: "false", Description: "Evaluate input as a CommonJS module"},
		Option{Key: KeyRealm, Section: SectionEval, Type: TypeString, Default: "", Description: "Evaluate in a new realm with this id"},
	)
	return s
}
