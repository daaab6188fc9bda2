package querytrace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// QueryEvent describes a single completed database query.
//
// Durations are expressed in the caller's native time unit (see Unit). A nil or
// non-numeric duration counts as zero.
type QueryEvent struct {
	Query  QueryText
	Result Outcome

	QueueTime  any
	QueryTime  any
	DecodeTime any
}

// QueryText is the statement that was executed, either as literal text or as a
// function producing it on demand.
type QueryText interface {
	queryText() (string, bool)
}

// Literal is query text known up front.
type Literal string

func (l Literal) queryText() (string, bool) { return string(l), true }

// Thunk produces query text lazily. Returning false means no text is available.
type Thunk func() (string, bool)

func (t Thunk) queryText() (string, bool) {
	if t == nil {
		return "", false
	}

	return t()
}

// Once returns a Thunk that calls t at most once and replays its result to
// every later caller. Copies of the returned Thunk share that result.
func (t Thunk) Once() Thunk {
	if t == nil {
		return nil
	}

	var (
		once sync.Once
		text string
		ok   bool
	)

	return func() (string, bool) {
		once.Do(func() { text, ok = t() })

		return text, ok
	}
}

// Memoize returns a copy of e whose thunk, if any, is evaluated at most once
// across all hooks that receive the copy.
func (e QueryEvent) Memoize() QueryEvent {
	if t, ok := e.Query.(Thunk); ok {
		e.Query = t.Once()
	}

	return e
}

// Outcome is the result of a query: Success or Failure.
type Outcome interface {
	outcome()
}

// Success is a query that completed, with the number of rows it returned or affected.
type Success struct {
	NumRows int
}

// Failure is a query that returned an error.
type Failure struct {
	Err error
}

func (Success) outcome() {}
func (Failure) outcome() {}

var errUnknownFailure = errors.New("query failed")

// Text returns the unescaped query text of the event.
//
// A thunk is invoked once per call. Text never panics: a missing, unsupported or
// panicking representation yields the empty string.
func (e QueryEvent) Text() (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	switch q := e.Query.(type) {
	case Literal:
		return Unescape(string(q))
	case Thunk:
		s, ok := q.queryText()
		if !ok {
			return ""
		}

		return Unescape(s)
	default:
		return ""
	}
}

// Rows returns the row count of a successful query, 0 otherwise.
func (e QueryEvent) Rows() int {
	if s, ok := e.Result.(Success); ok {
		return s.NumRows
	}

	return 0
}

// Err returns the error of a failed query, or nil when the query succeeded.
func (e QueryEvent) Err() error {
	f, ok := e.Result.(Failure)
	if !ok {
		return nil
	}

	if f.Err == nil {
		return errUnknownFailure
	}

	return f.Err
}

// ErrorMessage renders the failure of the query as text.
func (e QueryEvent) ErrorMessage() string {
	err := e.Err()
	if err == nil {
		return ""
	}

	return fmt.Sprint(err)
}

// Unescape replaces backslash escape sequences (\n, \t, \", \\, \xNN, \uNNNN, ...)
// with the characters they denote. Invalid sequences are kept verbatim.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))

	for len(s) > 0 {
		i := strings.IndexByte(s, '\\')
		if i < 0 {
			sb.WriteString(s)

			break
		}

		if i > 0 {
			sb.WriteString(s[:i])
			s = s[i:]
		}

		if len(s) > 1 && (s[1] == '"' || s[1] == '\'') {
			sb.WriteByte(s[1])
			s = s[2:]

			continue
		}

		r, multibyte, tail, err := strconv.UnquoteChar(s, 0)
		if err != nil {
			sb.WriteByte('\\')
			s = s[1:]

			continue
		}

		if multibyte {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(byte(r))
		}

		s = tail
	}

	return sb.String()
}
