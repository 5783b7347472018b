/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/chatporter/internal/ops"
	"github.com/fulmenhq/chatporter/pkg/buildinfo"
	"github.com/fulmenhq/chatporter/pkg/config"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
)

// colorize returns colored text if colors are enabled
func colorize(text, color string, useColor bool) string {
	if !useColor {
		return text
	}
	return color + text + colorReset
}

// getColorPreference checks if colors should be used
func getColorPreference(cmd *cobra.Command) bool {
	noColor, _ := cmd.Flags().GetBool("no-color")
	return !noColor
}

// EnvData represents the structured data for environment information.
type EnvData struct {
	System    SystemInfo        `json:"system"`
	Variables map[string]string `json:"variables"`
}

// SystemInfo holds system-related information.
type SystemInfo struct {
	OS           string    `json:"os"`
	Architecture string    `json:"architecture"`
	GoVersion    string    `json:"goVersion"`
	NumCPU       int       `json:"numCPU"`
	Hostname     string    `json:"hostname"`
	WorkingDir   string    `json:"workingDir"`
	ConfigDir    string    `json:"configDir"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
}

// envinfoCmd represents the envinfo command
var envinfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment and system information",
	Long: `Display detailed information about the system and the environment
variables that affect chatporter's behavior.`,
	RunE: runEnvinfo,
}

func init() {
	if err := ops.RegisterCommand("envinfo", ops.GroupSupport, envinfoCmd, "Show system information"); err != nil {
		panic(fmt.Sprintf("Failed to register envinfo command: %v", err))
	}

	envinfoCmd.Flags().Bool("json", false, "Output in JSON format")
}

func runEnvinfo(cmd *cobra.Command, _ []string) error {
	jsonFormat, _ := cmd.Flags().GetBool("json")
	useColor := getColorPreference(cmd)

	envData := collectEnvironmentData()
	out := cmd.OutOrStdout()

	if jsonFormat {
		jsonData, err := json.MarshalIndent(envData, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON output: %v", err)
		}
		fmt.Fprintln(out, string(jsonData))
		return nil
	}

	header := colorize("System Information", colorBold+colorBlue, useColor)
	fmt.Fprintln(out, header)
	fmt.Fprintf(out, "  %-14s %s\n", "OS:", envData.System.OS)
	fmt.Fprintf(out, "  %-14s %s\n", "Architecture:", envData.System.Architecture)
	fmt.Fprintf(out, "  %-14s %s\n", "Go:", envData.System.GoVersion)
	fmt.Fprintf(out, "  %-14s %d\n", "CPUs:", envData.System.NumCPU)
	fmt.Fprintf(out, "  %-14s %s\n", "Hostname:", envData.System.Hostname)
	fmt.Fprintf(out, "  %-14s %s\n", "Working dir:", envData.System.WorkingDir)
	fmt.Fprintf(out, "  %-14s %s\n", "Config dir:", envData.System.ConfigDir)
	fmt.Fprintf(out, "  %-14s %s\n", "Version:", envData.System.Version)

	if len(envData.Variables) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize("Environment Variables", colorBold+colorCyan, useColor))
		keys := make([]string, 0, len(envData.Variables))
		for k := range envData.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s=%s\n", k, envData.Variables[k])
		}
	}
	return nil
}

// collectEnvironmentData gathers system facts and the CHATPORTER_*
// environment variables.
func collectEnvironmentData() EnvData {
	hostname, _ := os.Hostname()
	wd, _ := os.Getwd()
	configDir, _ := config.GetConfigDir()

	variables := make(map[string]string)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "CHATPORTER_") {
			continue
		}
		if k, v, ok := strings.Cut(kv, "="); ok {
			variables[k] = v
		}
	}

	return EnvData{
		System: SystemInfo{
			OS:           runtime.GOOS,
			Architecture: runtime.GOARCH,
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			Hostname:     hostname,
			WorkingDir:   wd,
			ConfigDir:    configDir,
			Timestamp:    time.Now(),
			Version:      buildinfo.BinaryVersion,
		},
		Variables: variables,
	}
}
