package gojs

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/joeycumines/jsadapter/internal/config"
)

// DefaultSyncTimeout bounds RunOnLoopSync when no timeout is configured.
const DefaultSyncTimeout = 5 * time.Second

// DefaultMaxArrayLength bounds the arrays ToFacade copies and ArrayTraverse
// visits unless configured.
const DefaultMaxArrayLength = 1 << 20

// DefaultMainRealmID is the id of the main realm unless configured.
const DefaultMainRealmID = "main"

type options struct {
	logger            *slog.Logger
	timeout           time.Duration
	strictProperties  bool
	confinementChecks bool
	mainRealmID       string
	console           bool
	maxArrayLength    uint32
	modules           map[string]string
}

func defaultOptions() options {
	return options{
		logger:         slog.Default(),
		timeout:        DefaultSyncTimeout,
		mainRealmID:    DefaultMainRealmID,
		console:        true,
		maxArrayLength: DefaultMaxArrayLength,
	}
}

// Option configures a Runtime.
type Option func(*options)

// WithLogger sets the logger for engine diagnostics and script console
// output. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSyncTimeout bounds how long RunOnLoopSync waits. Zero waits forever.
func WithSyncTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithStrictProperties makes ObjectGetProperty fail with
// adapter.KindPropertyNotFound for missing keys. By default a missing key
// reads as undefined, as in JavaScript.
func WithStrictProperties(strict bool) Option {
	return func(o *options) { o.strictProperties = strict }
}

// WithConfinementChecks makes every realm operation verify that it runs on
// the engine goroutine, panicking with adapter.ErrContractViolation if not.
// Builds with the debug tag always check.
func WithConfinementChecks(enabled bool) Option {
	return func(o *options) { o.confinementChecks = enabled }
}

// WithMainRealmID sets the id of the main realm.
func WithMainRealmID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.mainRealmID = id
		}
	}
}

// WithConsole controls whether realms get a console global, printing to the
// logger.
func WithConsole(enabled bool) Option {
	return func(o *options) { o.console = enabled }
}

// WithMaxArrayLength bounds the length of arrays that ToFacade copies and
// ArrayTraverse visits; longer arrays fail with adapter.KindUnsupported.
// Zero removes the bound.
func WithMaxArrayLength(n uint32) Option {
	return func(o *options) { o.maxArrayLength = n }
}

// WithModule registers module source under path, making it available to
// require from every realm. Sources passed to Realm.EvalModule take
// precedence within that realm.
func WithModule(path, source string) Option {
	return func(o *options) {
		if o.modules == nil {
			o.modules = make(map[string]string)
		}
		o.modules[modulePath(path)] = source
	}
}

// OptionsFromConfig maps the engine options of c onto Runtime options.
func OptionsFromConfig(c *config.Config, logger *slog.Logger) ([]Option, error) {
	s := config.DefaultSchema()

	timeout, err := s.ResolveDuration(c, "", config.KeySyncTimeout)
	if err != nil {
		return nil, err
	}
	strict, err := s.ResolveBool(c, "", config.KeyStrictProperties)
	if err != nil {
		return nil, err
	}
	confine, err := s.ResolveBool(c, "", config.KeyConfinementChecks)
	if err != nil {
		return nil, err
	}
	console, err := s.ResolveBool(c, "", config.KeyConsole)
	if err != nil {
		return nil, err
	}
	maxArray, err := s.ResolveInt(c, "", config.KeyMaxArrayLength)
	if err != nil {
		return nil, err
	}
	if maxArray < 0 || uint64(maxArray) > math.MaxUint32 {
		return nil, fmt.Errorf("option %q: %d out of range", config.KeyMaxArrayLength, maxArray)
	}
	return []Option{
		WithLogger(logger),
		WithSyncTimeout(timeout),
		WithStrictProperties(strict),
		WithConfinementChecks(confine),
		WithMainRealmID(s.Resolve(c, "", config.KeyMainRealm)),
		WithConsole(console),
		WithMaxArrayLength(uint32(maxArray)),
	}, nil
}
