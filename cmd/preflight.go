/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/chatporter/internal/chatlog"
	"github.com/fulmenhq/chatporter/internal/export"
	"github.com/fulmenhq/chatporter/internal/ops"
	"github.com/fulmenhq/chatporter/pkg/exitcode"
	"github.com/fulmenhq/chatporter/pkg/safeio"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight <chat.txt>",
	Short: "Scan the destination for collisions without exporting",
	Long: `Preflight derives the artifact base name the export would use and scans
the destination for occupied names, legacy-scheme leftovers, and
ambiguous suffix artifacts. Nothing is written. The process exits
non-zero when collisions are found so scripts can branch on the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreflight,
}

func init() {
	if err := ops.RegisterCommand("preflight", ops.GroupExport, preflightCmd, "Scan the destination for collisions"); err != nil {
		panic(fmt.Sprintf("Failed to register preflight command: %v", err))
	}

	preflightCmd.Flags().String("dest", "", "Destination directory (required)")
	_ = preflightCmd.MarkFlagRequired("dest")
	preflightCmd.Flags().String("me", "", "Name of the chat participant to render as \"me\"")
	preflightCmd.Flags().String("base-name", "", "Override the derived artifact base name")
	preflightCmd.Flags().Bool("json", false, "Output in JSON format")
}

// preflightReport is the machine-readable scan result.
type preflightReport struct {
	BaseName        string             `json:"base_name"`
	DestRoot        string             `json:"dest_root"`
	Collisions      []export.Collision `json:"collisions"`
	SuffixArtifacts []string           `json:"suffix_artifacts"`
	Participants    any                `json:"participants"`
}

func runPreflight(cmd *cobra.Command, args []string) error {
	sourcePath, err := safeio.CleanUserPath(args[0])
	if err != nil {
		return err
	}
	dest, _ := cmd.Flags().GetString("dest")
	destRoot, err := safeio.CleanUserPath(dest)
	if err != nil {
		return err
	}

	me, _ := cmd.Flags().GetString("me")
	prepared, err := chatlog.PrepareExport(sourcePath, me, false)
	if err != nil {
		return fmt.Errorf("prepare conversation: %w", err)
	}

	base, _ := cmd.Flags().GetString("base-name")
	if base == "" {
		ectx := export.NewExportContext(sourcePath, destRoot, export.FullSelection())
		ectx.Prepared = prepared
		base = ectx.EffectiveBaseName()
	}

	pf, err := export.RunPreflight(destRoot, base)
	if err != nil {
		return err
	}

	report := preflightReport{
		BaseName:        base,
		DestRoot:        destRoot,
		Collisions:      pf.Collisions,
		SuffixArtifacts: pf.SuffixArtifacts,
		Participants:    prepared.Names,
	}

	out := cmd.OutOrStdout()
	if jsonFormat, _ := cmd.Flags().GetBool("json"); jsonFormat {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprintf(out, "Base name: %s\n", base)
		if !pf.HasCollisions() && len(pf.SuffixArtifacts) == 0 {
			fmt.Fprintln(out, "Destination is clear.")
		}
		for _, c := range pf.Collisions {
			note := ""
			if c.Legacy {
				note = " (legacy naming)"
			}
			fmt.Fprintf(out, "  collision: %s%s\n", c.Name, note)
		}
		for _, name := range pf.SuffixArtifacts {
			fmt.Fprintf(out, "  suffix artifact: %s\n", name)
		}
	}

	if pf.HasCollisions() || len(pf.SuffixArtifacts) > 0 {
		preflightExit(exitcode.CollisionsFound)
	}
	return nil
}

// preflightExit is swapped out by tests.
var preflightExit = os.Exit
