package cmd

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersionInfo()
	},
}

// versionInfo holds the build-time version information
var (
	// These variables are set at build time using -ldflags
	version   = "dev"     // Semantic version (e.g., "v1.0.0")
	buildDate = "unknown" // Build timestamp
	gitCommit = ""        // Git commit hash
	goVersion = runtime.Version()
)

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.Flags().BoolP("version", "v", false, "Print version information and exit")

	originalPreRun := rootCmd.PersistentPreRun
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
			printVersionInfo()
			os.Exit(0)
		}
		if originalPreRun != nil {
			originalPreRun(cmd, args)
		}
	}
}

// printVersionInfo prints comprehensive version information
func printVersionInfo() {
	fmt.Printf("council version %s\n", version)

	if buildDate != "unknown" {
		fmt.Printf("Build date: %s\n", buildDate)
	}
	if gitCommit != "" {
		fmt.Printf("Git commit: %s\n", gitCommit)
	}

	fmt.Printf("Go version: %s\n", goVersion)

	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Printf("Module: %s\n", info.Main.Path)
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			fmt.Printf("Module version: %s\n", info.Main.Version)
		}
	}

	fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
