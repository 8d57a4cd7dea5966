package command

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joeycumines/jsadapter/internal/config"
)

// HelpCommand lists the commands, or describes one of them.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

func (c *HelpCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "jsadapt - evaluate JavaScript through the engine adapter layer")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: jsadapt <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'jsadapt help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: jsadapt %s\n", cmd.Usage())

	// list flags through a throwaway FlagSet
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	var buf bytes.Buffer
	fs.SetOutput(&buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand prints the program version.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

func (c *VersionCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "jsadapt version %s\n", c.version)
	return nil
}

// ConfigCommand inspects the loaded configuration. It never writes the file.
type ConfigCommand struct {
	*BaseCommand
	config  *config.Config
	schema  *config.Schema
	section string
}

// NewConfigCommand creates a new config command over cfg.
func NewConfigCommand(cfg *config.Config) *ConfigCommand {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Inspect configuration settings",
			"config [-section name] [key | show | validate | schema]",
		),
		config: cfg,
		schema: config.DefaultSchema(),
	}
}

func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.section, "section", "", "Resolve keys within this section (e.g. eval)")
}

func (c *ConfigCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration inspection:")
		_, _ = fmt.Fprintln(stdout, "  config <key>          - Show the effective value of a key")
		_, _ = fmt.Fprintln(stdout, "  config show           - Show every known option and its effective value")
		_, _ = fmt.Fprintln(stdout, "  config validate       - Validate the configuration file")
		_, _ = fmt.Fprintln(stdout, "  config schema         - Show the configuration schema")
		return nil
	}
	if len(args) > 1 {
		_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
		return fmt.Errorf("invalid arguments")
	}

	switch args[0] {
	case "show":
		c.executeShow(stdout)
		return nil
	case "validate":
		return c.executeValidate(stdout)
	case "schema":
		_, _ = fmt.Fprint(stdout, c.schema.FormatHelp())
		return nil
	}

	key := args[0]
	if c.schema.Lookup(c.section, key) == nil && c.schema.Lookup("", key) == nil {
		if _, ok := c.config.GetSectionOption(c.section, key); !ok {
			_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
			return nil
		}
	}
	_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, c.schema.Resolve(c.config, c.section, key))
	return nil
}

func (c *ConfigCommand) executeShow(stdout io.Writer) {
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, o := range c.schema.Options("") {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", o.Key, c.schema.Resolve(c.config, "", o.Key))
	}
	for _, sec := range c.schema.Sections() {
		_, _ = fmt.Fprintf(w, "[%s]\t\n", sec)
		for _, o := range c.schema.Options(sec) {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", o.Key, c.schema.Resolve(c.config, sec, o.Key))
		}
	}
	_ = w.Flush()
}

func (c *ConfigCommand) executeValidate(stdout io.Writer) error {
	issues := config.ValidateConfig(c.config, c.schema)
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return nil
}
