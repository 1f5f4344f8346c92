package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chainsafe/canton-cbtc/pkg/transfer"
)

// errItemsFailed makes the process exit non-zero when any item failed.
var errItemsFailed = errors.New("one or more items failed")

// printOutcome writes one line per result and a summary.
func printOutcome(w io.Writer, operation string, out *transfer.Outcome) error {
	if out == nil {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tRECEIVER\tAMOUNT\tSTATUS\tDETAIL")
	for _, r := range out.Results {
		status, detail := "ok", r.UpdateID
		switch {
		case r.StateUnknown:
			status, detail = "unknown", r.ErrMessage()
		case !r.Success:
			status, detail = "failed", r.ErrMessage()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Index, r.Receiver, r.Amount, status, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%s: %d succeeded, %d failed\n", operation, out.SuccessCount, out.FailCount)
	return err
}

// exitStatus maps a finished run to the command error.
func exitStatus(out *transfer.Outcome, err error) error {
	if err != nil {
		return err
	}
	if out != nil && out.FailCount > 0 {
		return errItemsFailed
	}
	return nil
}
