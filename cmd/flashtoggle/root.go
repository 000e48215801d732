package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flashtoggle/flashtoggle/internal/config"
	"github.com/flashtoggle/flashtoggle/internal/ipc"
	"github.com/flashtoggle/flashtoggle/internal/platform"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "flashtoggle",
	Short:         "Keyboard-driven window switcher",
	Long:          "flashtoggle indexes top-level windows, finds them by title, tags or pinyin, and brings them to the foreground across virtual desktops.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: $FLASHTOGGLE_CONFIG_DIR/config.yaml or the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine-readable JSON")
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.LoadResult, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.LoadFromPath(path)
}

func newClient() *ipc.Client {
	return ipc.NewDefaultClient()
}

// parseHandle accepts decimal or 0x-prefixed hexadecimal handles.
func parseHandle(s string) (platform.Handle, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid window handle %q", s)
	}
	return platform.Handle(v), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		return "default"
	default:
		return string(src.Kind)
	}
}
