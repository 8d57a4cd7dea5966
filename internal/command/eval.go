package command

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dop251/goja"

	"github.com/joeycumines/jsadapter/internal/adapter"
	"github.com/joeycumines/jsadapter/internal/config"
	"github.com/joeycumines/jsadapter/internal/facade"
	"github.com/joeycumines/jsadapter/internal/gojs"
	"github.com/joeycumines/jsadapter/internal/logging"
)

// stdinPath names a script read from standard input.
const stdinPath = "<stdin>"

// EvalCommand evaluates one script and prints its completion value as JSON.
// A promise result is awaited first.
type EvalCommand struct {
	*BaseCommand
	config *config.Config
	stdin  io.Reader

	module   bool
	realm    string
	strict   bool
	logs     bool
	logsGrep string
	logsTail int
	logLevel string
}

// NewEvalCommand creates a new eval command. stdin is read when the script
// argument is "-".
func NewEvalCommand(cfg *config.Config, stdin io.Reader) *EvalCommand {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &EvalCommand{
		BaseCommand: NewBaseCommand(
			"eval",
			"Evaluate a script and print its result as JSON",
			"eval [options] <file|->",
		),
		config: cfg,
		stdin:  stdin,
	}
}

func (c *EvalCommand) SetupFlags(fs *flag.FlagSet) {
	s := config.DefaultSchema()
	module, _ := s.ResolveBool(c.config, config.SectionEval, config.KeyModule)
	fs.BoolVar(&c.module, "module", module, "Evaluate as a CommonJS module; the result is module.exports")
	fs.StringVar(&c.realm, "realm", s.Resolve(c.config, config.SectionEval, config.KeyRealm), "Evaluate in a new realm with this id instead of the main realm")
	fs.BoolVar(&c.strict, "strict", false, "Fail reads of missing properties")
	fs.BoolVar(&c.logs, "logs", false, "Write the captured log entries to stdout as JSON lines after the result")
	fs.StringVar(&c.logsGrep, "logs-grep", "", "Only write captured entries matching this text (implies -logs)")
	fs.IntVar(&c.logsTail, "logs-tail", 0, "Only write the newest n captured entries (implies -logs)")
	fs.StringVar(&c.logLevel, "log-level", "", "Override the configured log level")
}

func (c *EvalCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: jsadapt %s\n", c.Usage())
		return fmt.Errorf("expected exactly one script argument, got %d", len(args))
	}

	script, err := c.readScript(args[0])
	if err != nil {
		return err
	}

	logger, buf, err := c.newLogger(stderr)
	if err != nil {
		return err
	}

	opts, err := gojs.OptionsFromConfig(c.config, logger)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.strict {
		opts = append(opts, gojs.WithStrictProperties(true))
	}

	rt, err := gojs.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer rt.Close()
	if buf != nil {
		// startup noise
		buf.Clear()
	}

	result, evalErr := c.evaluate(ctx, rt, script)
	if evalErr == nil {
		b, err := facade.MarshalJSON(result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "%s\n", b)
	}

	if buf != nil {
		enc := json.NewEncoder(stdout)
		for _, e := range c.capturedEntries(buf) {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("failed to encode log entry: %w", err)
			}
		}
	}
	return evalErr
}

func (c *EvalCommand) readScript(arg string) (adapter.Script, error) {
	if arg == "-" {
		if c.stdin == nil {
			return adapter.Script{}, fmt.Errorf("no standard input available")
		}
		b, err := io.ReadAll(c.stdin)
		if err != nil {
			return adapter.Script{}, fmt.Errorf("failed to read standard input: %w", err)
		}
		return adapter.Script{Path: stdinPath, Code: string(b)}, nil
	}
	b, err := os.ReadFile(arg)
	if err != nil {
		return adapter.Script{}, fmt.Errorf("failed to read script: %w", err)
	}
	return adapter.Script{Path: arg, Code: string(b)}, nil
}

// newLogger logs to stderr at the effective level, additionally capturing
// into a buffer when -logs is set.
func (c *EvalCommand) newLogger(stderr io.Writer) (*slog.Logger, *logging.BufferHandler, error) {
	s := config.DefaultSchema()
	name := c.logLevel
	if name == "" {
		name = s.Resolve(c.config, "", config.KeyLogLevel)
	}
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, nil, err
	}

	var handler slog.Handler = slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	if !c.logs && c.logsGrep == "" && c.logsTail <= 0 {
		return slog.New(handler), nil, nil
	}
	size, err := s.ResolveInt(c.config, "", config.KeyLogBufferSize)
	if err != nil {
		return nil, nil, err
	}
	buf := logging.NewBufferHandler(size, level)
	return slog.New(logging.Fanout{handler, buf}), buf, nil
}

func (c *EvalCommand) capturedEntries(buf *logging.BufferHandler) []logging.Entry {
	switch {
	case c.logsGrep != "":
		entries := buf.Search(c.logsGrep)
		if c.logsTail > 0 && len(entries) > c.logsTail {
			entries = entries[len(entries)-c.logsTail:]
		}
		return entries
	case c.logsTail > 0:
		return buf.Recent(c.logsTail)
	default:
		return buf.Entries()
	}
}

func (c *EvalCommand) evaluate(ctx context.Context, rt *gojs.Runtime, script adapter.Script) (facade.Value, error) {
	var out facade.Value
	err := rt.RunOnLoopSyncContext(ctx, func(*goja.Runtime) error {
		realm := rt.Main()
		if c.realm != "" {
			r, err := rt.NewRealm(c.realm)
			if err != nil {
				return err
			}
			realm = r
		}

		var (
			v   adapter.Value
			err error
		)
		if c.module {
			v, err = realm.EvalModule(script)
		} else {
			v, err = realm.Eval(script)
		}
		if err != nil {
			return err
		}
		out, err = realm.ToFacade(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	if p, ok := out.(*facade.Promise); ok {
		return p.Wait(ctx)
	}
	return out, nil
}
