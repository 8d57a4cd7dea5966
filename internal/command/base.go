package command

import (
	"context"
	"flag"
	"io"
)

// Command is one jsadapt sub-command.
type Command interface {
	// Name is the word used to select the command on the command line.
	Name() string

	// Description is a one-line summary shown by help.
	Description() string

	// Usage returns the usage string, without the program name.
	Usage() string

	// SetupFlags registers the command's flags on fs. It is called once
	// before parsing, and again by help to list them.
	SetupFlags(fs *flag.FlagSet)

	// Execute runs the command with the positional arguments left over
	// after flag parsing. Cancelling ctx aborts long running work.
	Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// BaseCommand carries the descriptive fields shared by every command.
type BaseCommand struct {
	name        string
	description string
	usage       string
}

// NewBaseCommand creates a new BaseCommand.
func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{
		name:        name,
		description: description,
		usage:       usage,
	}
}

func (c *BaseCommand) Name() string        { return c.name }
func (c *BaseCommand) Description() string { return c.description }
func (c *BaseCommand) Usage() string       { return c.usage }

// SetupFlags registers nothing.
func (c *BaseCommand) SetupFlags(fs *flag.FlagSet) {}
