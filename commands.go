package models

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewCommand creates a Cobra command tree for model management.
// The returned command should be added to a parent CLI's root command.
//
// Commands provided:
//   - models list
//   - models fetch <fileName> [--force]
//   - models remove <fileName> [--yes]
//   - models refresh [--force]
//   - models use <kind> <fileName>
//   - models usage
//   - models path <fileName>
//
// Global flags: --json, --quiet
func NewCommand(cfg Config, opts ...ManagerOption) *cobra.Command {
	var (
		jsonOutput bool
		quiet      bool
	)

	// Manager will be created in PersistentPreRunE
	var mgr Manager

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage speech and language models",
		Long:  "Download, verify, and manage the speech recognition and language refinement models used by the host application.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip manager creation for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			var err error
			mgr, err = NewManager(cfg, opts...)
			if err != nil {
				return fmt.Errorf("failed to initialize manager: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if mgr != nil {
				return mgr.Close()
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")

	cmd.AddCommand(listCmd(&mgr, &jsonOutput))
	cmd.AddCommand(fetchCmd(&mgr, &quiet))
	cmd.AddCommand(removeCmd(&mgr, &quiet))
	cmd.AddCommand(refreshCmd(&mgr, &quiet))
	cmd.AddCommand(useCmd(&mgr, &quiet))
	cmd.AddCommand(usageCmd(&mgr, &jsonOutput))
	cmd.AddCommand(pathCmd(&mgr))

	return cmd
}

func listCmd(mgr *Manager, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models",
		Long:  "List every model in the catalog with its download state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			records, err := (*mgr).Records(ctx)
			if err != nil {
				return err
			}
			return outputRecords(cmd.OutOrStdout(), *mgr, records, *jsonOutput)
		},
	}
}

func fetchCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch <fileName>",
		Short: "Download a model",
		Long:  "Download a model, falling back across mirrors and verifying its checksum. Already downloaded models are skipped unless --force is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fileName := args[0]

			rec, err := (*mgr).Record(ctx, fileName)
			if err != nil {
				return err
			}
			if rec.Downloaded && !force {
				if !*quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already downloaded (use --force to re-download)\n", fileName)
				}
				return nil
			}

			opts := []FetchOption{}
			if force {
				opts = append(opts, WithForce())
			}

			if !*quiet {
				var (
					barMu sync.Mutex
					bar   *pb.ProgressBar
				)
				opts = append(opts, WithProgress(func(p FetchProgress) {
					barMu.Lock()
					defer barMu.Unlock()
					if bar == nil && p.BytesTotal > 0 {
						bar = pb.Full.Start64(p.BytesTotal)
						bar.Set(pb.Bytes, true)
						bar.SetWriter(cmd.OutOrStdout())
					}
					if bar != nil {
						bar.SetCurrent(p.BytesReceived)
					}
				}))
				defer func() {
					barMu.Lock()
					if bar != nil {
						bar.Finish()
					}
					barMu.Unlock()
				}()
			}

			if err := (*mgr).Fetch(ctx, fileName, opts...); err != nil {
				return err
			}

			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s\n", fileName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-download even if already downloaded")
	return cmd
}

func removeCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <fileName>",
		Short: "Delete a downloaded model file",
		Long:  "Delete a model's file from disk. The catalog entry remains so the model can be fetched again. The active model of a kind cannot be removed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fileName := args[0]

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %s from disk? [y/N]: ", fileName)
				if !confirmPrompt(cmd.InOrStdin()) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			if err := (*mgr).DeleteModelFile(ctx, fileName); err != nil {
				return err
			}

			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", fileName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func refreshCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the catalog from the remote manifest",
		Long:  "Fetch the remote manifest and merge it into the local catalog. Without --force the refresh is skipped when one succeeded recently.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var err error
			if force {
				err = (*mgr).Refresh(ctx)
			} else {
				err = (*mgr).RefreshIfNeeded(ctx)
			}
			if err != nil {
				return err
			}

			if !*quiet {
				if last := (*mgr).LastRefreshed(); !last.IsZero() {
					fmt.Fprintf(cmd.OutOrStdout(), "Catalog up to date (last checked %s)\n",
						last.Local().Format("2006-01-02 15:04"))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Refresh even if one succeeded recently")
	return cmd
}

func useCmd(mgr *Manager, quiet *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "use <kind> <fileName>",
		Short: "Select the active model for a kind",
		Long:  "Select the model the host application loads for a kind (speech or language).",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kind, err := ParseKind(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q (want speech or language)", ErrUnsupportedKind, args[0])
			}

			if err := (*mgr).SetActive(ctx, kind, args[1]); err != nil {
				return err
			}

			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Active %s model is now %s\n", kind, args[1])
			}
			return nil
		},
	}
}

func usageCmd(mgr *Manager, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show disk usage per model kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			usage := make(map[ModelKind]int64, len(Kinds))
			for _, kind := range Kinds {
				n, err := (*mgr).Usage(ctx, kind)
				if err != nil {
					return err
				}
				usage[kind] = n
			}

			if *jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(usage)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tUSAGE")
			for _, kind := range Kinds {
				fmt.Fprintf(tw, "%s\t%s\n", kind, humanize.IBytes(uint64(usage[kind])))
			}
			return tw.Flush()
		},
	}
}

func pathCmd(mgr *Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "path <fileName>",
		Short: "Print path to a downloaded model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			path, err := (*mgr).Path(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// confirmPrompt reads from stdin and returns true only if the user types
// 'y' or 'yes'. Returns false for empty input or any other response.
func confirmPrompt(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return response == "y" || response == "yes"
	}
	return false
}

// Output helpers

func outputRecords(w io.Writer, mgr Manager, records []ModelRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No models in catalog")
		return nil
	}

	active := make(map[ModelKind]string, len(Kinds))
	for _, kind := range Kinds {
		sel, err := mgr.Active(context.Background(), kind)
		if err == nil {
			active[kind] = sel
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tKIND\tSIZE\tSTATE")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rec.FileName,
			rec.Kind,
			humanize.IBytes(uint64(rec.SizeBytes)),
			recordState(rec, active[rec.Kind]),
		)
	}
	return tw.Flush()
}

// recordState summarizes a record for the list view.
func recordState(rec ModelRecord, active string) string {
	var state string
	switch {
	case rec.Progress != nil:
		state = fmt.Sprintf("downloading %d%%", int(*rec.Progress*100))
	case rec.Downloaded:
		state = "downloaded"
	case rec.LastError != "":
		state = "failed"
	default:
		state = "available"
	}

	var marks []string
	if rec.FileName == active {
		marks = append(marks, "active")
	}
	if rec.IsDefault {
		marks = append(marks, "default")
	}
	if rec.IsDeprecated {
		marks = append(marks, "deprecated")
	}
	if len(marks) > 0 {
		state += " (" + strings.Join(marks, ", ") + ")"
	}
	return state
}
