package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dp-go/internal/app"
	"dp-go/internal/config"
	"dp-go/internal/dp"
	"dp-go/internal/export"
	"dp-go/internal/render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates a DPApp. The caller must defer a.Close().
// operation names the CLI command being run (e.g. "scan", "delete").
func newApp(cmd *cobra.Command, operation string) (*app.DPApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewDPApp(cmd.Context(), cfg, operation,
		app.WithPasswords(passwordResolver(cmd, cfg)))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func passwordResolver(cmd *cobra.Command, cfg *config.Config) *app.PasswordResolver {
	var stdin io.Reader
	if fromStdin, _ := cmd.Flags().GetBool("password-stdin"); fromStdin {
		stdin = cmd.InOrStdin()
	}
	return app.NewPasswordResolver(stdin, cfg.Encryption.UseKeyring)
}

func newRenderer(cmd *cobra.Command) *render.Renderer {
	return render.NewRenderer(cmd.OutOrStdout(), nil)
}

// progressSink redraws a single status line on stderr when it is a terminal.
func progressSink() dp.ProgressSink {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return dp.NopProgress{}
	}
	return dp.ProgressFunc(func(ev dp.ProgressEvent) {
		fmt.Fprintf(os.Stderr, "\r\033[K%s", render.Progress(ev))
	})
}

var rootCmd = &cobra.Command{
	Use:          "dp",
	Short:        "Capture and compare file-tree snapshots",
	SilenceUsage: true,
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [PATH]",
	Short: "Scan a directory and save a snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		a, err := newApp(cmd, "scan")
		if err != nil {
			return err
		}
		defer a.Close()

		sink := progressSink()
		snap, err := a.Scan(cmd.Context(), target, encrypt, sink)
		if _, live := sink.(dp.ProgressFunc); live {
			fmt.Fprint(os.Stderr, "\r\033[K")
		}
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot %s\n\n", snap.ID)
		newRenderer(cmd).Summary(snap.Summary())
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "list")
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.List(cmd.Context())
		if err != nil {
			return err
		}
		newRenderer(cmd).Summaries(summaries)
		return nil
	},
}

// view command
var viewCmd = &cobra.Command{
	Use:   "view ID",
	Short: "Show a snapshot and its first entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "view")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.View(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		newRenderer(cmd).Snapshot(snap, limit)
		return nil
	},
}

// compare command
var compareCmd = &cobra.Command{
	Use:   "compare [ID1 ID2]",
	Short: "Compare two snapshots (default: the two most recent)",
	Args:  twoOrNoIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "compare")
		if err != nil {
			return err
		}
		defer a.Close()

		left, right := refs(args)
		result, err := a.Compare(cmd.Context(), left, right)
		if err != nil {
			return err
		}
		newRenderer(cmd).Comparison(result, limit)
		return nil
	},
}

// export command
var exportFormat = export.FormatJSON

var exportCmd = &cobra.Command{
	Use:   "export [ID1 ID2]",
	Short: "Export a comparison as JSON, CSV, or YAML",
	Args:  twoOrNoIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		format := exportFormat
		if !cmd.Flags().Changed("format") && output != "" {
			if guessed, ok := export.FormatFromPath(output); ok {
				format = guessed
			}
		}

		a, err := newApp(cmd, "export")
		if err != nil {
			return err
		}
		defer a.Close()

		if output == "" {
			left, right := refs(args)
			return a.Export(cmd.Context(), left, right, format, cmd.OutOrStdout())
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}

		left, right := refs(args)
		if err := a.Export(cmd.Context(), left, right, format, f); err != nil {
			f.Close()
			os.Remove(output)
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s comparison to %s\n", strings.ToUpper(string(format)), output)
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "delete")
		if err != nil {
			return err
		}
		defer a.Close()

		found, err := a.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(cmd.OutOrStdout(), "No snapshot %s\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", args[0])
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}
		newRenderer(cmd).Operations(ops)
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", defaults["config_path"])
		fmt.Fprintf(cmd.OutOrStdout(), "Data Dir: %s\n", cfg.DataDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "# Configuration from %s\n\n", path)
		m := &config.Manager{}
		return m.Write(cmd.OutOrStdout(), cfg)
	},
}

// password command
var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage the snapshot password in the OS keyring",
}

var passwordSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the snapshot password in the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var stdin io.Reader
		if fromStdin, _ := cmd.Flags().GetBool("password-stdin"); fromStdin {
			stdin = cmd.InOrStdin()
		}
		// Only stdin or the terminal: the point is to capture a new password.
		r := &app.PasswordResolver{Stdin: stdin, Prompt: app.PromptPassword}

		pw, err := r.Resolve(true)
		if err != nil {
			return err
		}
		if err := app.StorePassword(pw); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password stored in keyring. Set encryption.use_keyring = true to use it.")
		return nil
	},
}

var passwordClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the snapshot password from the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.ClearPassword(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password removed from keyring.")
		return nil
	},
}

// twoOrNoIDs accepts either no snapshot ids or exactly two.
func twoOrNoIDs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return errors.New("expected two snapshot ids, or none to use the two most recent")
	}
	return nil
}

func refs(args []string) (string, string) {
	if len(args) < 2 {
		return "", ""
	}
	return args[0], args[1]
}

func init() {
	rootCmd.PersistentFlags().Bool("password-stdin", false, "Read the snapshot password from the first line of stdin")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// password subcommands
	passwordCmd.AddCommand(passwordSetCmd)
	passwordCmd.AddCommand(passwordClearCmd)

	// root commands
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolP("encrypt", "e", false, "Encrypt the saved snapshot")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().IntP("limit", "n", 100, "Maximum number of entries to show (0 for all)")
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().IntP("limit", "n", 50, "Maximum number of changes to show (0 for all)")
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().VarP(&exportFormat, "format", "f", "Export format: json, csv, or yaml")
	exportCmd.Flags().StringP("output", "o", "", "Write to FILE instead of stdout")
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(passwordCmd)
}
