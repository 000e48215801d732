package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flashtoggle/flashtoggle/internal/hotkeys"
	"github.com/flashtoggle/flashtoggle/internal/platform"
)

func init() {
	pinCmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage pinned windows",
	}

	pinCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pinned windows",
		Args:  cobra.NoArgs,
		RunE:  runPinList,
	})
	pinCmd.AddCommand(&cobra.Command{
		Use:   "capture",
		Short: "Pin the current foreground window",
		Args:  cobra.NoArgs,
		RunE:  runPinCapture,
	})
	pinCmd.AddCommand(&cobra.Command{
		Use:   "toggle <handle>",
		Short: "Show or hide a pinned window",
		Args:  cobra.ExactArgs(1),
		RunE:  runPinToggle,
	})
	pinCmd.AddCommand(&cobra.Command{
		Use:   "topmost [handle]",
		Short: "Toggle always-on-top for a window (default: the foreground window)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPinTopmost,
	})
	pinCmd.AddCommand(&cobra.Command{
		Use:   "hotkey <handle> <hotkey>",
		Short: "Bind a hotkey that toggles a pinned window; an empty hotkey unbinds",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPinHotkey,
	})
	pinCmd.AddCommand(&cobra.Command{
		Use:   "release <handle>",
		Short: "Unpin a window and show it again",
		Args:  cobra.ExactArgs(1),
		RunE:  runPinRelease,
	})

	rootCmd.AddCommand(pinCmd)
}

func runPinList(cmd *cobra.Command, _ []string) error {
	windows, err := newClient().PinList()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), windows)
	}
	if len(windows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no pinned windows")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tPROCESS\tHOTKEY\tSTATE\tTITLE")
	for _, w := range windows {
		state := "shown"
		if w.Hidden {
			state = "hidden"
		}
		if w.Topmost {
			state += ",topmost"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", w.Handle, w.Process, w.Hotkey, state, truncate(w.Title, 60))
	}
	return tw.Flush()
}

func runPinCapture(cmd *cobra.Command, _ []string) error {
	w, err := newClient().PinCapture()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), w)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pinned %s %q\n", w.Handle, w.Title)
	return nil
}

func runPinToggle(cmd *cobra.Command, args []string) error {
	h, err := parseHandle(args[0])
	if err != nil {
		return err
	}
	ok, err := newClient().PinToggle(h)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("window %s is not pinned", h)
	}
	return nil
}

func runPinTopmost(cmd *cobra.Command, args []string) error {
	var h platform.Handle
	if len(args) == 1 {
		var err error
		if h, err = parseHandle(args[0]); err != nil {
			return err
		}
	}
	data, err := newClient().PinTopmost(h)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), data)
	}
	state := "off"
	if data.State {
		state = "on"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "topmost %s for %s\n", state, data.Handle)
	return nil
}

func runPinHotkey(cmd *cobra.Command, args []string) error {
	h, err := parseHandle(args[0])
	if err != nil {
		return err
	}
	seq := ""
	if len(args) == 2 {
		seq = args[1]
	}
	if seq != "" {
		if _, err := hotkeys.Parse(seq); err != nil {
			return err
		}
	}
	if err := newClient().PinHotkey(h, seq); err != nil {
		return err
	}
	if seq == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "unbound hotkey of %s\n", h)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "bound %s to %s\n", seq, h)
	}
	return nil
}

func runPinRelease(cmd *cobra.Command, args []string) error {
	h, err := parseHandle(args[0])
	if err != nil {
		return err
	}
	released, err := newClient().PinRelease(h)
	if err != nil {
		return err
	}
	if !released {
		return fmt.Errorf("window %s is not pinned", h)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "released %s\n", h)
	return nil
}
