// Package resolve turns test case and suite definitions into flat lists of
// instruction strings: tag filtering, recursive step library inclusion with
// parameter scoping, placeholder substitution and conditional steps.
//
// An Engine is built once from an environment profile and a library table,
// both read-only afterwards. Every resolution returns fresh values, so one
// Engine may serve concurrent callers.
package resolve

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ormasoftchile/testbook/pkg/eval"
	"github.com/ormasoftchile/testbook/pkg/schema"
)

// Loader locates and reads test case files referenced from suites.
type Loader interface {
	// Locate maps a suite reference to a readable path. The error wraps
	// fs.ErrNotExist when nothing matches.
	Locate(ref string) (string, error)
	ReadFile(path string) ([]byte, error)
}

// Config holds what an Engine is built from.
type Config struct {
	Env       map[string]string
	Libraries map[string]*schema.StepLibrary
	Loader    Loader // required only for suites
	Logger    *zap.Logger

	// MaxIncludeDepth bounds nested includes; zero means schema.DefaultMaxIncludeDepth.
	MaxIncludeDepth int
}

// Engine resolves test cases and suites against one environment.
type Engine struct {
	env       map[string]string
	libraries map[string]*schema.StepLibrary
	loader    Loader
	logger    *zap.Logger
	expander  *Expander
}

// New builds an Engine. The maps in cfg must not be modified afterwards.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	env := cfg.Env
	if env == nil {
		env = map[string]string{}
	}
	libs := cfg.Libraries
	if libs == nil {
		libs = map[string]*schema.StepLibrary{}
	}
	depth := cfg.MaxIncludeDepth
	if depth <= 0 {
		depth = schema.DefaultMaxIncludeDepth
	}

	sub := eval.NewSubstituter(env, logger)
	return &Engine{
		env:       env,
		libraries: libs,
		loader:    cfg.Loader,
		logger:    logger,
		expander: &Expander{
			Libraries: libs,
			MaxDepth:  depth,
			sub:       sub,
			cond:      eval.NewEvaluator(sub),
			logger:    logger,
		},
	}
}

// Expander returns the engine's step library expander.
func (e *Engine) Expander() *Expander { return e.expander }

// Env returns the environment profile the engine resolves against.
func (e *Engine) Env() map[string]string { return e.env }

// Library returns a library by name.
func (e *Engine) Library(name string) (*schema.StepLibrary, bool) {
	lib, ok := e.libraries[name]
	return lib, ok
}

// LibraryNames returns the library table keys in sorted order.
func (e *Engine) LibraryNames() []string {
	names := make([]string, 0, len(e.libraries))
	for name := range e.libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
