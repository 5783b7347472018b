/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fulmenhq/chatporter/internal/export"
	"github.com/fulmenhq/chatporter/internal/ops"
	"github.com/fulmenhq/chatporter/pkg/config"
	"github.com/fulmenhq/chatporter/pkg/logger"
	"github.com/fulmenhq/chatporter/pkg/safeio"
)

var exportCmd = &cobra.Command{
	Use:   "export <chat.txt>",
	Short: "Export a chat log into the selected artifacts",
	Long: `Export parses a WhatsApp chat log and publishes the selected artifacts
into the destination directory. Without artifact flags the full set is
produced: all three HTML variants, Markdown, the attachment sidecar, and
the raw-source archive, finished by a manifest and checksum summary.

Existing files are never overwritten silently. On a collision the run
pauses and asks whether to replace, keep both under an alternate name,
or cancel.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	if err := ops.RegisterCommand("export", ops.GroupExport, exportCmd, "Export a chat log into durable artifacts"); err != nil {
		panic(fmt.Sprintf("Failed to register export command: %v", err))
	}

	exportCmd.Flags().String("dest", "", "Destination directory (required)")
	_ = exportCmd.MarkFlagRequired("dest")
	exportCmd.Flags().String("me", "", "Name of the chat participant to render as \"me\"")
	exportCmd.Flags().Bool("swap-names", false, "Swap the detected \"me\" with the first partner")
	exportCmd.Flags().String("base-name", "", "Override the derived artifact base name")
	exportCmd.Flags().StringSlice("html", nil, "HTML variants to produce (max, mid, min)")
	exportCmd.Flags().Bool("markdown", false, "Produce the Markdown transcript")
	exportCmd.Flags().Bool("sidecar", false, "Produce the attachment sidecar")
	exportCmd.Flags().Bool("raw-archive", false, "Copy the raw source tree into the output")
	exportCmd.Flags().String("on-collision", "", "Collision policy: ask, replace, keep-both, fail")
	exportCmd.Flags().Bool("delete-originals", false, "Offer to delete verified originals after a full run")
	exportCmd.Flags().Bool("yes", false, "Answer confirmation prompts with yes")
	exportCmd.Flags().Bool("no-previews", false, "Disable link preview cards in the full HTML variant")
	exportCmd.Flags().Int("io-workers", 0, "Cap on concurrent file operations (0 = auto)")
	exportCmd.Flags().Int("cpu-workers", 0, "Cap on concurrent hashing work (0 = auto)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadExportConfig(cmd)
	if err != nil {
		return err
	}

	sourcePath, err := safeio.CleanUserPath(args[0])
	if err != nil {
		return err
	}
	dest, _ := cmd.Flags().GetString("dest")
	destRoot, err := safeio.CleanUserPath(dest)
	if err != nil {
		return err
	}

	sel, err := selectionFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	policy, err := collisionPolicyFromFlags(cmd.Flags(), cfg)
	if err != nil {
		return err
	}

	ectx := export.NewExportContext(sourcePath, destRoot, sel)
	ectx.Policy = policy
	ectx.MeOverride, _ = cmd.Flags().GetString("me")
	ectx.SwapNames, _ = cmd.Flags().GetBool("swap-names")
	ectx.BaseName, _ = cmd.Flags().GetString("base-name")
	ectx.DeleteOriginals, _ = cmd.Flags().GetBool("delete-originals")
	noPreviews, _ := cmd.Flags().GetBool("no-previews")
	ectx.EnablePreviews = cfg.Previews.Enable && !noPreviews

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := export.NewController(cfg, func(p export.StepProgress) {
		switch p.State {
		case export.StateRunning:
			fmt.Fprintf(cmd.OutOrStdout(), "  %-12s ...\n", p.Kind)
		case export.StateDone:
			fmt.Fprintf(cmd.OutOrStdout(), "  %-12s done (%s)\n", p.Kind, p.Duration.Round(time.Millisecond))
		case export.StateFailed:
			fmt.Fprintf(cmd.OutOrStdout(), "  %-12s FAILED: %s\n", p.Kind, p.Err)
		case export.StateCancelled:
			fmt.Fprintf(cmd.OutOrStdout(), "  %-12s cancelled\n", p.Kind)
		}
	})

	result, err := ctrl.Run(ctx, ectx)
	if oe, ok := export.AsOutputExists(err); ok && policy == export.CollisionAsk {
		decided, derr := decideCollision(cmd, oe)
		if derr != nil {
			return derr
		}
		ectx.Policy = decided
		result, err = ctrl.Run(ctx, ectx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nPublished %d artifacts as %q in %s\n",
		len(result.Published), result.BaseName, result.DestRoot)

	if ectx.DeleteOriginals {
		return offerDeleteOriginals(cmd, ctx, cfg, ectx, result)
	}
	return nil
}

// loadExportConfig merges the user config with a project-level overlay
// from the current directory, then applies worker flag overrides.
func loadExportConfig(cmd *cobra.Command) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadProjectConfig(wd)
	if err != nil {
		return nil, &configError{err: err}
	}
	if io, _ := cmd.Flags().GetInt("io-workers"); io > 0 {
		cfg.Workers.IO = io
	}
	if cpu, _ := cmd.Flags().GetInt("cpu-workers"); cpu > 0 {
		cfg.Workers.CPU = cpu
	}
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

// selectionFromFlags maps artifact flags onto a selection. No artifact
// flags at all means the full set.
func selectionFromFlags(flags *pflag.FlagSet) (export.ArtifactSelection, error) {
	htmlVariants, _ := flags.GetStringSlice("html")
	markdown, _ := flags.GetBool("markdown")
	sidecar, _ := flags.GetBool("sidecar")
	rawArchive, _ := flags.GetBool("raw-archive")

	sel := export.ArtifactSelection{
		Markdown:   markdown,
		Sidecar:    sidecar,
		RawArchive: rawArchive,
	}
	for _, v := range htmlVariants {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "max":
			sel.HTMLMax = true
		case "mid":
			sel.HTMLMid = true
		case "min":
			sel.HTMLMin = true
		default:
			return sel, fmt.Errorf("unknown HTML variant %q (want max, mid, or min)", v)
		}
	}
	if !sel.Any() {
		sel = export.FullSelection()
	}
	if sel.HTMLMid && !sel.Sidecar {
		sel.Sidecar = true
		logger.Debug("mid HTML variant selected, enabling sidecar")
	}
	return sel, nil
}

func collisionPolicyFromFlags(flags *pflag.FlagSet, cfg *config.Config) (export.CollisionPolicy, error) {
	raw, _ := flags.GetString("on-collision")
	if raw == "" {
		raw = cfg.Export.OnCollision
	}
	return export.ParseCollisionPolicy(raw)
}

// decideCollision prompts for a replace / keep-both / cancel decision.
func decideCollision(cmd *cobra.Command, oe *export.OutputExistsError) (export.CollisionPolicy, error) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nThe destination already contains:")
	for _, c := range oe.Collisions {
		kind := "file"
		if c.IsDir {
			kind = "directory"
		}
		if c.Legacy {
			kind += ", legacy naming"
		}
		fmt.Fprintf(out, "  %s (%s)\n", c.Name, kind)
	}

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		fmt.Fprintln(out, "Keeping both (--yes).")
		return export.CollisionKeepBoth, nil
	}

	fmt.Fprint(out, "Replace, keep both, or cancel? [r/k/C]: ")
	reader := bufio.NewReader(cmd.InOrStdin())
	answer, err := reader.ReadString('\n')
	if err != nil {
		return "", errCancelled
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "r", "replace":
		return export.CollisionReplace, nil
	case "k", "keep", "keep-both":
		return export.CollisionKeepBoth, nil
	default:
		return "", errCancelled
	}
}

// offerDeleteOriginals verifies the published raw archive against the
// source tree and, after explicit confirmation, deletes the originals.
func offerDeleteOriginals(cmd *cobra.Command, ctx context.Context, cfg *config.Config, ectx *export.ExportContext, result *export.Result) error {
	archiveDir := filepath.Join(result.DestRoot, export.RawArchiveDirName(result.BaseName))
	sourceDir := ectx.Prepared.SourceDir

	fmt.Fprintln(cmd.OutOrStdout(), "\nVerifying raw archive before offering deletion...")
	verified, err := export.VerifyRawCopy(ctx, sourceDir, archiveDir, cfg.Workers.CPU, cfg.Guard.Tolerance)
	if err != nil {
		return fmt.Errorf("verify raw archive: %w", err)
	}
	if !verified.OK() {
		return fmt.Errorf("raw archive verification failed (%d mismatched, %d missing), originals kept",
			len(verified.Mismatched), len(verified.Missing))
	}
	for _, rel := range verified.Drifted {
		logger.Warn("archived copy has drifted timestamp", logger.String("path", rel))
	}

	yes, _ := cmd.Flags().GetBool("yes")
	deleted, err := export.DeleteOriginals(sourceDir, archiveDir, verified, func(candidates []string) bool {
		fmt.Fprintf(cmd.OutOrStdout(), "%d originals verified against the archive.\n", len(candidates))
		if yes {
			return true
		}
		fmt.Fprint(cmd.OutOrStdout(), "Delete them from the source folder? [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, rerr := reader.ReadString('\n')
		if rerr != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(answer), "y")
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d originals.\n", len(deleted))
	return nil
}
