package dump

// tokenizer.go scans the VALUES clause of a bulk export into tuples.
//
// The grammar is the flat one mysqldump produces:
//
//	tuple  := '(' field (',' field)* ')'
//	field  := integer | decimal | quoted-string | NULL
//
// A tuple that breaks the grammar is dropped and scanning resumes right
// after the offending character. Nested parentheses are not tracked.

import (
	"regexp"
	"strconv"
	"strings"
)

// numericRegex accepts integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

type scanState int

const (
	stateOutside    scanState = iota // between tuples
	stateField                       // expecting the start of a field
	stateQuoted                      // inside '...'
	stateBare                        // inside a number or NULL
	stateAfterQuote                  // closing quote seen, expecting ',' or ')'
)

type scanner struct {
	src   string
	pos   int
	width int // capacity hint: expected fields per tuple
}

func newScanner(src string, width int) *scanner {
	return &scanner{src: src, width: width}
}

// next returns the next well-formed tuple, or false at end of input.
func (s *scanner) next() (Tuple, bool) {
	var (
		state     = stateOutside
		tuple     Tuple
		quoted    strings.Builder
		bareStart int
	)

	// abort drops the tuple in progress. A '(' that broke the previous
	// tuple is given back so it can open the next one.
	abort := func(c byte) {
		tuple = nil
		state = stateOutside
		if c == '(' {
			s.pos--
		}
	}

	for s.pos < len(s.src) {
		c := s.src[s.pos]
		s.pos++

		switch state {
		case stateOutside:
			if c == '(' {
				tuple = make(Tuple, 0, s.width)
				state = stateField
			}

		case stateField:
			switch {
			case isSpace(c):
			case c == '\'':
				quoted.Reset()
				state = stateQuoted
			case c == ',' || c == ')':
				abort(c)
			case c == '(':
				abort(c)
			default:
				bareStart = s.pos - 1
				state = stateBare
			}

		case stateQuoted:
			switch c {
			case '\\':
				// The escape is consumed, the escaped byte kept literally.
				if s.pos < len(s.src) {
					quoted.WriteByte(s.src[s.pos])
					s.pos++
				}
			case '\'':
				tuple = append(tuple, StringValue(quoted.String()))
				state = stateAfterQuote
			default:
				quoted.WriteByte(c)
			}

		case stateBare:
			switch c {
			case ',', ')':
				v, ok := classifyBare(s.src[bareStart : s.pos-1])
				if !ok {
					abort(c)
					continue
				}
				tuple = append(tuple, v)
				if c == ')' {
					return tuple, true
				}
				state = stateField
			case '(', '\'':
				abort(c)
			}

		case stateAfterQuote:
			switch {
			case isSpace(c):
			case c == ',':
				state = stateField
			case c == ')':
				return tuple, true
			default:
				abort(c)
			}
		}
	}

	return nil, false
}

// classifyBare types an unquoted field. Any literal decimal point makes the
// value a float; otherwise it is an integer, falling back to float when the
// token only parses as one (exponent without a point, or int64 overflow).
func classifyBare(raw string) (Value, bool) {
	token := strings.TrimSpace(raw)
	if strings.EqualFold(token, "NULL") {
		return NullValue(), true
	}
	if !numericRegex.MatchString(token) {
		return Value{}, false
	}

	if !strings.Contains(token, ".") {
		if i, err := strconv.ParseInt(token, 10, 64); err == nil {
			return IntValue(i), true
		}
	}

	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return Value{}, false
	}
	return FloatValue(f), true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
