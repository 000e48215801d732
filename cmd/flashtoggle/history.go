package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "back",
		Short: "Activate the previous window in the activation history",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return runJump(cmd, false) },
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "forward",
		Short: "Activate the next window in the activation history",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return runJump(cmd, true) },
	})

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show or edit the activation history",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().Bool("clear", false, "Clear the history")
	historyCmd.Flags().String("remove", "", "Remove a window handle from the history")
	historyCmd.Flags().Int("jump", -1, "Activate the history entry at this index")
	rootCmd.AddCommand(historyCmd)
}

func runJump(cmd *cobra.Command, forward bool) error {
	client := newClient()
	var (
		moved bool
		err   error
	)
	if forward {
		moved, err = client.Forward()
	} else {
		moved, err = client.Back()
	}
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]bool{"moved": moved})
	}
	if !moved {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to jump to")
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	clearAll, _ := cmd.Flags().GetBool("clear")
	remove, _ := cmd.Flags().GetString("remove")
	jump, _ := cmd.Flags().GetInt("jump")
	client := newClient()

	switch {
	case clearAll:
		if err := client.ClearHistory(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
		return nil
	case remove != "":
		h, err := parseHandle(remove)
		if err != nil {
			return err
		}
		removed, err := client.RemoveHistory(h)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("window %s is not in the history", h)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", h)
		return nil
	case cmd.Flags().Changed("jump"):
		if jump < 0 {
			return errors.New("--jump requires a non-negative index")
		}
		ok, err := client.JumpToHistory(jump)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("could not activate history entry %d", jump)
		}
		return nil
	}

	data, err := client.History()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), data)
	}
	if len(data.Entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "history is empty")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tINDEX\tHANDLE\tPROCESS\tTITLE")
	for _, e := range data.Entries {
		mark := " "
		if e.Current {
			mark = ">"
		}
		title := truncate(e.Title, 60)
		if !e.Alive {
			title += " (closed)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", mark, e.Index, e.Handle, e.ProcessName, title)
	}
	return tw.Flush()
}
