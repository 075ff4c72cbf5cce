// Package operator implements the yes/no oracle that the checker consults
// before applying any repair. The three policies below reproduce the
// read-only, automatic, and interactive modes of a classic fsck prompt.
//
// The contract is uniform across all three: whenever Ask returns false,
// the caller is expected to raise its uncorrectable flag, exactly as the
// classic "ask() returning 0 always sets errors_uncorrected" rule did.
// Operator itself never touches that flag; pkg/fsck owns it.
package operator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Operator decides the answer to a repair prompt.
type Operator interface {
	// Ask poses question with default answer def, and returns the
	// answer to apply.
	Ask(question string, def bool) bool
}

// ReadOnly never repairs: every question is answered no, regardless of
// the caller's default. This is the policy for plain (-l / no flags) runs.
type ReadOnly struct{}

func (ReadOnly) Ask(question string, def bool) bool {
	return false
}

// Automatic applies the caller's default answer without prompting. This
// is the -a policy.
type Automatic struct{}

func (Automatic) Ask(question string, def bool) bool {
	return def
}

// Interactive prompts a human operator on w/r and reads a single-letter
// answer from r. Y/y answers yes, N/n answers no, space or newline
// accepts the offered default, and EOF also falls back to the default.
// This is the -r policy.
type Interactive struct {
	r *bufio.Reader
	w io.Writer
}

// NewInteractive wraps r (typically stdin) and w (typically stdout) for
// interactive prompting.
func NewInteractive(r io.Reader, w io.Writer) *Interactive {
	return &Interactive{r: bufio.NewReader(r), w: w}
}

func (op *Interactive) Ask(question string, def bool) bool {
	prompt := "(y/n)?"
	if !def {
		prompt = "(n/y)?"
	}
	fmt.Fprintf(op.w, "%s %s ", question, prompt)

	for {
		b, err := op.r.ReadByte()
		if err != nil {
			break
		}
		switch strings.ToUpper(string(b)) {
		case "Y":
			def = true
		case "N":
			def = false
		case " ", "\n":
		default:
			continue
		}
		break
	}

	if def {
		fmt.Fprintln(op.w, "y")
	} else {
		fmt.Fprintln(op.w, "n")
	}
	return def
}
