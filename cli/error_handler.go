package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/coord/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     out,
	}
}

// Handle prints err with a hint for its error code and returns it.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	styles := NewStyles(h.Out)
	fmt.Fprintf(h.Out, "%s %v\n", styles.Error.Render("Error:"), err)

	var coordErr *errors.CoordError
	if ce, ok := err.(*errors.CoordError); ok {
		coordErr = ce
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintln(h.Out, "Create a coord.yml in the project root, or run without --config to use defaults.")
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintln(h.Out, "Run 'coord config schema' to see the accepted configuration.")
	case errors.ErrCodeSessionExists:
		fmt.Fprintln(h.Out, "Use --force to replace it, or 'coord session heartbeat' to keep it alive.")
	case errors.ErrCodeSessionNotFound:
		fmt.Fprintln(h.Out, "Run 'coord session register' to start a session.")
	case errors.ErrCodeNotARepository:
		fmt.Fprintln(h.Out, "Remote checks need a git work tree.")
	case errors.ErrCodeNoTrackingBranch:
		fmt.Fprintln(h.Out, "Set an upstream with 'git branch --set-upstream-to'.")
	case errors.ErrCodeStoreFailed:
		fmt.Fprintln(h.Out, "Check the registry directory permissions or the redis_url setting.")
	}

	if h.Verbose && coordErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", coordErr.ToJSON())
	}
	return err
}
