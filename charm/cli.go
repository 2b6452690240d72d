// ABOUTME: CLI commands for the Charm contract mirror
// ABOUTME: Status, manual sync, per-contract history and wipe

package charm

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
)

// StatusCommand prints mirror configuration and connection state.
func StatusCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("mirror status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := c.Config()
	fmt.Fprintln(out, "Contract Mirror Status")
	fmt.Fprintln(out, "──────────────────────")
	fmt.Fprintf(out, "Server:    %s\n", cfg.Host)
	fmt.Fprintf(out, "Auto-sync: %v\n", cfg.AutoSync)

	if id, err := c.ID(); err != nil {
		fmt.Fprintln(out, "Status:    Not connected")
	} else {
		fmt.Fprintf(out, "Status:    Connected (%s)\n", id)
	}

	ids, err := NewMirror(c).Contracts()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	fmt.Fprintf(out, "Contracts: %d\n", len(ids))
	return nil
}

// SyncCommand pushes and pulls snapshots immediately.
func SyncCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("mirror sync", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Fprintln(out, "✓ Synced")
	return nil
}

// HistoryCommand lists every mirrored revision of one contract.
func HistoryCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("mirror history", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: grainbroker mirror history <contract-id>")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid contract id: %w", err)
	}

	history, err := NewMirror(c).History(id)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(out, "No snapshots for this contract.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REVISION\tTAKEN\tSTATUS\tNUMBER\tDELETED")
	for _, s := range history {
		number := s.Contract.Number()
		if number == "" {
			number = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", s.Revision, s.TakenAt.Format("2006-01-02 15:04:05"), s.Contract.Status, number, s.Contract.IsDeleted)
	}
	return w.Flush()
}

// WipeCommand deletes every local snapshot. It needs --confirm.
func WipeCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("mirror wipe", flag.ContinueOnError)
	confirm := fs.Bool("confirm", false, "Confirm snapshot wipe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*confirm {
		fmt.Fprintln(out, "WARNING: This deletes every mirrored contract snapshot.")
		fmt.Fprintln(out, "The contract book itself is not touched.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To confirm, run:")
		fmt.Fprintln(out, "  grainbroker mirror wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset mirror: %w", err)
	}
	fmt.Fprintln(out, "✓ All snapshots wiped")
	return nil
}
