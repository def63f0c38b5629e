// Package verdict turns analysis results into pass/fail outcomes. A failed
// check returns a *Failure naming the check and the expected and actual
// values; infrastructure problems come back as ordinary errors.
package verdict

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// Failure is an assertion mismatch.
type Failure struct {
	Check    string
	Expected string
	Actual   string
	Detail   string
	Err      error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Check)
	b.WriteString(" failed")
	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}
	fmt.Fprintf(&b, " (expected %s, actual %s)", f.Expected, f.Actual)
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// IsFailure reports whether err is an assertion mismatch rather than an
// infrastructure error.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// Require stops the test if err is non-nil.
func Require(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
