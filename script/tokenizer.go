package script

import (
	"strconv"
	"strings"
)

const (
	commentMarker = '#'
	delimiters    = " ,[]()\t\r\n"
)

// Statement is one script line split into an opcode and its arguments.
type Statement struct {
	// Line is 1-based.
	Line   int
	Text   string
	Opcode string
	Args   []string
}

func isDelimiter(r rune) bool {
	return strings.ContainsRune(delimiters, r)
}

// Tokenize splits text into a Statement. It returns false for blank lines and comments.
func Tokenize(text string) (Statement, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed[0] == commentMarker {
		return Statement{}, false
	}
	fields := strings.FieldsFunc(trimmed, isDelimiter)
	if len(fields) == 0 {
		return Statement{}, false
	}
	return Statement{Text: trimmed, Opcode: fields[0], Args: fields[1:]}, true
}

// Float parses argument i. Counts are parsed as floats too.
func (s Statement) Float(i int) (float64, error) {
	if i < 0 || i >= len(s.Args) {
		return 0, &MissingParameterError{Line: s.Line, Opcode: s.Opcode, Index: i}
	}
	v, err := strconv.ParseFloat(s.Args[i], 64)
	if err != nil {
		return 0, &ParseError{Line: s.Line, Token: s.Args[i], Reason: "not a number"}
	}
	return v, nil
}

// Int parses argument i as a float and truncates it.
func (s Statement) Int(i int) (int, error) {
	v, err := s.Float(i)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
