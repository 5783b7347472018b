/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/chatporter/internal/ops"
	"github.com/fulmenhq/chatporter/pkg/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE:  runVersion,
}

func init() {
	if err := ops.RegisterCommand("version", ops.GroupSupport, versionCmd, "Show version information"); err != nil {
		panic(fmt.Sprintf("Failed to register version command: %v", err))
	}

	versionCmd.Flags().Bool("extended", false, "Include build and runtime details")
	versionCmd.Flags().Bool("json", false, "Output in JSON format")
}

type versionInfo struct {
	Version       string `json:"version"`
	ModuleVersion string `json:"moduleVersion,omitempty"`
	Revision      string `json:"revision,omitempty"`
	GoVersion     string `json:"goVersion,omitempty"`
	Platform      string `json:"platform,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonFormat, _ := cmd.Flags().GetBool("json")

	info := versionInfo{Version: buildinfo.BinaryVersion}
	if extended {
		info.ModuleVersion = buildinfo.ModuleVersion()
		info.Revision = buildinfo.Revision()
		info.GoVersion = buildinfo.GoVersion()
		info.Platform = buildinfo.Platform()
	}

	out := cmd.OutOrStdout()
	if jsonFormat {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "chatporter %s\n", info.Version)
	if extended {
		if info.ModuleVersion != "" {
			fmt.Fprintf(out, "module:   %s\n", info.ModuleVersion)
		}
		if info.Revision != "" {
			fmt.Fprintf(out, "revision: %s\n", info.Revision)
		}
		fmt.Fprintf(out, "go:       %s\n", info.GoVersion)
		fmt.Fprintf(out, "platform: %s\n", info.Platform)
	}
	return nil
}
