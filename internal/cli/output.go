package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/me/odmimport/pkg/model"
)

var (
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// reporter writes operator messages: successes to out, everything else to
// errOut.
type reporter struct {
	out    io.Writer
	errOut io.Writer
}

func newReporter(out, errOut io.Writer) *reporter {
	return &reporter{out: out, errOut: errOut}
}

func (r *reporter) Success(msg string) {
	successColor.Fprintln(r.out, msg)
}

func (r *reporter) Info(msg string) {
	infoColor.Fprintln(r.errOut, msg)
}

func (r *reporter) Warning(msg string) {
	warningColor.Fprintln(r.errOut, "warning: "+msg)
}

func (r *reporter) Failure(headline, diagnostic string) {
	errorColor.Fprintln(r.errOut, headline)
	if diagnostic != "" {
		fmt.Fprintln(r.errOut, diagnostic)
	}
}

// PrintError writes the final error of a run. Linking errors print their
// headline in red followed by the raw server diagnostic.
func PrintError(w io.Writer, err error) {
	var le *model.LinkingError
	if errors.As(err, &le) {
		diag := le.Diagnostic
		if diag == "" && le.Err != nil {
			diag = le.Err.Error()
		}
		newReporter(w, w).Failure(le.Headline(), diag)
		return
	}
	errorColor.Fprintln(w, err)
}
