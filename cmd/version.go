package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Long = fmt.Sprintf(`searchv2 %s

Medical symptom intake and condition search, driven by HCL configuration.

A conversational agent collects a patient's symptoms, asking follow-up
questions when the description is ambiguous, then a search over trusted
medical sources turns the confirmed symptoms into related conditions and
suggested questions for a clinician.

Get started:
  searchv2 docs           Extract documentation to a local folder
  searchv2 verify <path>  Validate your configuration
  searchv2 intake         Run an intake session in the terminal
  searchv2 serve          Host intake sessions over HTTP and WebSocket`, Version)
}
