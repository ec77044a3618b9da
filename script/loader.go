package script

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultCapacity is how many lines a script may hold.
const DefaultCapacity = 64

// Script is a loaded script. Lines past the capacity are dropped.
type Script struct {
	Path      string
	Lines     []string
	Truncated bool
}

// Load reads up to capacity lines from path.
func Load(path string, capacity int) (*Script, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open script")
	}
	defer func() {
		_ = f.Close()
	}()
	s, err := Read(f, capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read script %s", path)
	}
	s.Path = path
	return s, nil
}

// Read reads up to capacity lines from r.
func Read(r io.Reader, capacity int) (*Script, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Script{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if len(s.Lines) == capacity {
			s.Truncated = true
			break
		}
		s.Lines = append(s.Lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Lint checks every statement of s against r without executing anything. The result holds
// one entry per non-blank, non-comment line.
func Lint(s *Script, r *Registry) []LineStatus {
	var out []LineStatus
	for i, text := range s.Lines {
		stmt, ok := Tokenize(text)
		if !ok {
			continue
		}
		stmt.Line = i + 1
		out = append(out, newLineStatus(stmt, checkStatement(r, stmt)))
	}
	return out
}

func checkStatement(r *Registry, stmt Statement) error {
	op, ok := r.Lookup(stmt.Opcode)
	if !ok {
		return &ParseError{Line: stmt.Line, Token: stmt.Opcode}
	}
	return op.validate(stmt)
}
