// Package expr compiles the arithmetic and boolean expressions used for
// effect objectives and ingredient filters. Sources are checked once against
// a typed environment and the compiled program is reused for every
// evaluation.
package expr

import (
	"errors"
	"fmt"
	"strings"

	lang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

var (
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrSyntax            = errors.New("invalid expression")
	ErrType              = errors.New("expression type mismatch")
)

// Kind is the required result type of an expression.
type Kind int

const (
	Number Kind = iota
	Bool
)

func (k Kind) String() string {
	if k == Bool {
		return "bool"
	}
	return "number"
}

// Program is a compiled expression. It is immutable and safe to share.
type Program struct {
	src     string
	kind    Kind
	program *vm.Program
}

// Compile checks src against the identifiers of env, a struct or map
// prototype such as MixEnv{}, and requires a result of the given kind.
func Compile(src string, env any, kind Kind) (*Program, error) {
	if _, err := parser.Parse(src); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
	}
	if env == nil {
		env = map[string]float64{}
	}
	opts := append([]lang.Option{lang.Env(env)}, functions...)
	if kind == Bool {
		opts = append(opts, lang.AsBool())
	} else {
		opts = append(opts, lang.AsFloat64())
	}
	program, err := lang.Compile(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w: %v", src, classify(err), err)
	}
	return &Program{src: src, kind: kind, program: program}, nil
}

// MustCompile is Compile for sources fixed at build time.
func MustCompile(src string, env any, kind Kind) *Program {
	p, err := Compile(src, env, kind)
	if err != nil {
		panic(err)
	}
	return p
}

// classify maps a checker error onto the package sentinels. Parse errors are
// caught before the checker runs.
func classify(err error) error {
	if strings.Contains(err.Error(), "unknown name") {
		return ErrUnknownIdentifier
	}
	return ErrType
}

func (p *Program) String() string {
	return p.src
}

func (p *Program) Kind() Kind {
	return p.kind
}

// Eval runs a numeric program against env.
func (p *Program) Eval(env any) (float64, error) {
	if p.kind != Number {
		return 0, fmt.Errorf("%w: %q is %s", ErrType, p.src, p.kind)
	}
	out, err := lang.Run(p.program, env)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", p.src, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %q returned %T", ErrType, p.src, out)
	}
	return v, nil
}

// Truth runs a boolean program against env.
func (p *Program) Truth(env any) (bool, error) {
	if p.kind != Bool {
		return false, fmt.Errorf("%w: %q is %s", ErrType, p.src, p.kind)
	}
	out, err := lang.Run(p.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", p.src, err)
	}
	v, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrType, p.src, out)
	}
	return v, nil
}
