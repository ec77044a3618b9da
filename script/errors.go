package script

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// ErrModeExit ends a pass when the robot leaves autonomous mode.
var ErrModeExit = errors.New("autonomous mode exited")

// ParseError is an opcode that resolves to nothing, or an argument that is not a number.
type ParseError struct {
	Line   int
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("line %d: unknown opcode %q", e.Line, e.Token)
	}
	return fmt.Sprintf("line %d: %q %s", e.Line, e.Token, e.Reason)
}

// MissingParameterError is a statement with fewer arguments than its opcode needs. Index is
// the 0-based position of the first missing argument.
type MissingParameterError struct {
	Line   int
	Opcode string
	Index  int
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("line %d: %s missing parameter %d", e.Line, e.Opcode, e.Index+1)
}

// RangeError is an argument whose magnitude exceeds its limit. Out-of-range values are
// rejected, never clamped.
type RangeError struct {
	Line   int
	Opcode string
	Value  float64
	Limit  float64
	// Duration values must also be non-negative.
	Duration bool
}

func (e *RangeError) Error() string {
	if e.Duration {
		return fmt.Sprintf("line %d: %s duration %g is outside [0, %g] seconds", e.Line, e.Opcode, e.Value, e.Limit)
	}
	return fmt.Sprintf("line %d: %s value %g exceeds %g", e.Line, e.Opcode, e.Value, e.Limit)
}

// MaxSeconds is the longest duration a script may ask for.
const MaxSeconds = 3600.0

// CheckMagnitude returns a RangeError if |value| > limit or value is NaN.
func CheckMagnitude(value, limit float64) error {
	if math.IsNaN(value) || math.Abs(value) > limit {
		return &RangeError{Value: value, Limit: limit}
	}
	return nil
}

// CheckSeconds returns a RangeError unless value is a duration in [0, MaxSeconds].
func CheckSeconds(value float64) error {
	if math.IsNaN(value) || value < 0 || value > MaxSeconds {
		return &RangeError{Value: value, Limit: MaxSeconds, Duration: true}
	}
	return nil
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsMissingParameterError reports whether err is a MissingParameterError.
func IsMissingParameterError(err error) bool {
	var target *MissingParameterError
	return errors.As(err, &target)
}

// IsRangeError reports whether err is a RangeError.
func IsRangeError(err error) bool {
	var target *RangeError
	return errors.As(err, &target)
}

// IsLineError reports whether err is scoped to a single statement.
func IsLineError(err error) bool {
	return IsParseError(err) || IsMissingParameterError(err) || IsRangeError(err)
}

// locate fills in the line and opcode of statement errors raised without them.
func locate(err error, stmt Statement) error {
	var pe *ParseError
	var mpe *MissingParameterError
	var re *RangeError
	switch {
	case errors.As(err, &pe):
		if pe.Line == 0 {
			pe.Line = stmt.Line
		}
	case errors.As(err, &mpe):
		if mpe.Line == 0 {
			mpe.Line = stmt.Line
		}
		if mpe.Opcode == "" {
			mpe.Opcode = stmt.Opcode
		}
	case errors.As(err, &re):
		if re.Line == 0 {
			re.Line = stmt.Line
		}
		if re.Opcode == "" {
			re.Opcode = stmt.Opcode
		}
	}
	return err
}
