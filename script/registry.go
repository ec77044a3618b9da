package script

import (
	"context"

	"github.com/pkg/errors"
)

// Handler executes one statement. It runs on the interpreter goroutine and may block; long
// waits must go through Interpreter.Delay or honor ctx.
type Handler func(ctx context.Context, in *Interpreter, stmt Statement) error

// Opcode describes one script instruction.
type Opcode struct {
	Name    string
	MinArgs int
	// MaxArgs of -1 means unbounded.
	MaxArgs int
	// Check validates arguments without side effects. It runs before the pause wait and is
	// also used to lint scripts offline.
	Check   func(stmt Statement) error
	Handler Handler
	// Terminal ends the pass successfully after Handler runs.
	Terminal bool
}

// validate applies the arity rule and Check.
func (op Opcode) validate(stmt Statement) error {
	if len(stmt.Args) < op.MinArgs {
		return &MissingParameterError{Line: stmt.Line, Opcode: stmt.Opcode, Index: len(stmt.Args)}
	}
	if op.MaxArgs >= 0 && len(stmt.Args) > op.MaxArgs {
		return &ParseError{Line: stmt.Line, Token: stmt.Args[op.MaxArgs], Reason: "is an extra argument"}
	}
	if op.Check != nil {
		if err := op.Check(stmt); err != nil {
			return locate(err, stmt)
		}
	}
	return nil
}

// Registry maps opcode names to their definitions. Lookup is exact and case-sensitive.
type Registry struct {
	opcodes map[string]Opcode
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{opcodes: map[string]Opcode{}}
}

// Register adds op. Registering a name twice is an error.
func (r *Registry) Register(op Opcode) error {
	if op.Name == "" {
		return errors.New("opcode needs a name")
	}
	if op.Handler == nil {
		return errors.Errorf("opcode %s needs a handler", op.Name)
	}
	if _, ok := r.opcodes[op.Name]; ok {
		return errors.Errorf("opcode %s already registered", op.Name)
	}
	r.opcodes[op.Name] = op
	r.order = append(r.order, op.Name)
	return nil
}

// Lookup finds an opcode by its exact name.
func (r *Registry) Lookup(name string) (Opcode, bool) {
	op, ok := r.opcodes[name]
	return op, ok
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
