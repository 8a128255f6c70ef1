package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/aymanh23/searchv2/report"
)

var reportSave bool
var reportOut string
var reportUser string
var reportLimit int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate and view intake reports",
	Long:  `Generate a markdown report from a recorded intake session, or view reports saved earlier.`,
}

var reportGenerateCmd = &cobra.Command{
	Use:   "generate <session-id>",
	Short: "Generate a report from a recorded session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		stores := openSessionStore()
		defer stores.Close()

		rec, err := stores.Intakes.GetIntake(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if rec == nil {
			fmt.Fprintf(os.Stderr, "Error: session '%s' not found\n", args[0])
			os.Exit(1)
		}
		messages, err := stores.Intakes.GetMessages(rec.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		md, err := report.Build(rec, messages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		switch {
		case reportSave:
			id, err := stores.Reports.SaveReport(rec.ID, rec.UserID, md)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error saving report: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Report saved (id: %s)\n", id)
		case reportOut != "":
			if err := os.WriteFile(reportOut, []byte(md), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", reportOut, err)
				os.Exit(1)
			}
			fmt.Printf("Report written to %s\n", reportOut)
		default:
			fmt.Println(renderMarkdown(md))
		}
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show a saved report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		stores := openSessionStore()
		defer stores.Close()

		rec, err := stores.Reports.GetReport(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(renderMarkdown(rec.Markdown))
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports",
	Run: func(cmd *cobra.Command, args []string) {
		stores := openSessionStore()
		defer stores.Close()

		records, err := stores.Reports.ListReports(reportUser, reportLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(records) == 0 {
			fmt.Println("No reports saved")
			return
		}

		fmt.Printf("%-36s  %-36s  %-12s  %s\n", "ID", "SESSION", "USER", "CREATED")
		for _, r := range records {
			fmt.Printf("%-36s  %-36s  %-12s  %s\n",
				r.ID, r.IntakeID, r.UserID, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	},
}

// renderMarkdown renders markdown for the terminal, falling back to the raw
// text when the renderer cannot be built.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportGenerateCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportListCmd)

	reportCmd.PersistentFlags().StringVarP(&storeConfigPath, "config", "c", ".", "Path to config file or directory")
	reportGenerateCmd.Flags().BoolVarP(&reportSave, "save", "s", false, "Save the report in the store instead of printing it")
	reportGenerateCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Write the report to a file instead of printing it")
	reportListCmd.Flags().StringVarP(&reportUser, "user", "u", "", "Only list reports for this user")
	reportListCmd.Flags().IntVarP(&reportLimit, "limit", "n", 50, "Maximum number of reports to list")
}
