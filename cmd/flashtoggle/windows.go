package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/flashtoggle/flashtoggle/internal/config"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/tagstore"
	"github.com/flashtoggle/flashtoggle/internal/tui"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List indexed windows",
		Args:  cobra.NoArgs,
		RunE:  runList,
	})

	searchCmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Search windows; opens the interactive picker on a terminal",
		RunE:  runSearch,
	}
	searchCmd.Flags().IntP("limit", "n", 0, "Maximum results (default: max_results from config)")
	searchCmd.Flags().Bool("plain", false, "Print results instead of opening the picker")
	rootCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "activate <handle>",
		Short: "Bring a window to the foreground",
		Args:  cobra.ExactArgs(1),
		RunE:  runActivate,
	})

	tagCmd := &cobra.Command{
		Use:   "tag <handle> [tags...]",
		Short: "Set the search tags of a window",
		Long:  "Set the search tags of a window. Without tags a prompt is shown on a terminal; --clear removes all tags.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTag,
	}
	tagCmd.Flags().Bool("clear", false, "Remove all tags")
	rootCmd.AddCommand(tagCmd)

	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect stored tags (works without the daemon)",
	}
	tagsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored tags",
		Args:  cobra.NoArgs,
		RunE:  runTagsList,
	})
	tagsCmd.AddCommand(&cobra.Command{
		Use:   "forget <process> <title>",
		Short: "Delete stored tags for a process and title",
		Args:  cobra.ExactArgs(2),
		RunE:  runTagsForget,
	})
	rootCmd.AddCommand(tagsCmd)
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func runStatus(cmd *cobra.Command, _ []string) error {
	status, err := newClient().GetStatus()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, status)
	}
	fmt.Fprintf(out, "daemon_running: %v\n", status.DaemonRunning)
	fmt.Fprintf(out, "instance_id:    %s\n", status.InstanceID)
	fmt.Fprintf(out, "windows:        %d\n", status.WindowCount)
	fmt.Fprintf(out, "history:        %d (cursor %d)\n", status.HistoryLength, status.HistoryCursor)
	fmt.Fprintf(out, "pinned:         %d\n", status.PinnedCount)
	fmt.Fprintf(out, "desktop_bridge: %v\n", status.DesktopBridge)
	fmt.Fprintf(out, "hotkeys:        %s\n", strings.Join(status.Hotkeys, ", "))
	fmt.Fprintf(out, "uptime_seconds: %d\n", status.UptimeSeconds)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	records, err := newClient().List()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), records)
	}
	results := make([]search.Result, 0, len(records))
	for _, rec := range records {
		results = append(results, search.Result{Record: rec})
	}
	return writeWindowTable(cmd.OutOrStdout(), results, false)
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	plain, _ := cmd.Flags().GetBool("plain")
	query := strings.Join(args, " ")

	if !plain && !jsonOutput && isInteractive() {
		cfg := configOrDefaults()
		if limit <= 0 {
			limit = cfg.MaxResults
		}
		return tui.Run(newClient(), tui.Options{
			Delay:      cfg.SearchDebounce(),
			MaxResults: limit,
			Display:    cfg.Display,
		})
	}

	if len(search.ParseQuery(query)) == 0 {
		return errors.New("search requires at least one keyword when not interactive")
	}
	data, err := newClient().Search(query, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), data)
	}
	return writeWindowTable(cmd.OutOrStdout(), data.Results, true)
}

func runActivate(cmd *cobra.Command, args []string) error {
	h, err := parseHandle(args[0])
	if err != nil {
		return err
	}
	ok, err := newClient().Activate(h)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("could not activate window %s", h)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "activated %s\n", h)
	return nil
}

func runTag(cmd *cobra.Command, args []string) error {
	h, err := parseHandle(args[0])
	if err != nil {
		return err
	}
	clearTags, _ := cmd.Flags().GetBool("clear")
	tags := strings.Join(args[1:], " ")

	client := newClient()
	if !clearTags && tags == "" {
		if !isInteractive() {
			return errors.New("tags are required when not interactive (use --clear to remove)")
		}
		current := ""
		if records, err := client.List(); err == nil {
			for _, rec := range records {
				if rec.Handle == h {
					current = rec.Tags
				}
			}
		}
		tags = current
		err := huh.NewInput().
			Title(fmt.Sprintf("Tags for %s", h)).
			Description("Space-separated; leave empty to remove all tags").
			Value(&tags).
			Run()
		if err != nil {
			return err
		}
	}

	tags = strings.Join(strings.Fields(tags), " ")
	if err := client.SetTags(h, tags); err != nil {
		return err
	}
	if tags == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "cleared tags of %s\n", h)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "tagged %s: %s\n", h, tags)
	}
	return nil
}

func openConfiguredTagStore() (*tagstore.Store, error) {
	dbPath, err := configOrDefaults().TagDBPath()
	if err != nil {
		return nil, err
	}
	return tagstore.Open(dbPath)
}

func runTagsList(cmd *cobra.Command, _ []string) error {
	store, err := openConfiguredTagStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.All(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROCESS\tTITLE\tTAGS\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ProcessName, truncate(e.Title, 60), e.Tags, e.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runTagsForget(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredTagStore()
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.Delete(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("no stored tags for %s %q", args[0], args[1])
	}
	fmt.Fprintln(cmd.OutOrStdout(), "forgotten")
	return nil
}

func writeWindowTable(w io.Writer, results []search.Result, withScore bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if withScore {
		fmt.Fprintln(tw, "HANDLE\tMATCH\tPROCESS\tTITLE\tTAGS")
	} else {
		fmt.Fprintln(tw, "HANDLE\tPROCESS\tTITLE\tTAGS")
	}
	for _, r := range results {
		title := truncate(r.Title, 60)
		if r.IsMinimized {
			title += " (minimized)"
		}
		if withScore {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.Handle, r.MatchCount, r.ProcessName, title, r.Tags)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Handle, r.ProcessName, title, r.Tags)
		}
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// configOrDefaults loads the config, falling back to defaults when it is
// unreadable so read-only commands keep working.
func configOrDefaults() *config.Config {
	res, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (using defaults)\n", err)
		return config.DefaultConfig()
	}
	return res.Config
}
