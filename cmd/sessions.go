package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aymanh23/searchv2/config"
	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/store"
)

var storeConfigPath string
var sessionsUser string
var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect recorded intake sessions",
	Long:  `List and inspect intake sessions recorded in the configured store.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	Run: func(cmd *cobra.Command, args []string) {
		stores := openSessionStore()
		defer stores.Close()

		records, err := stores.Intakes.ListIntakes(sessionsUser, sessionsLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(records) == 0 {
			fmt.Println("No sessions recorded")
			return
		}

		fmt.Printf("%-36s  %-22s  %-19s  %s\n", "ID", "STATUS", "STARTED", "DESCRIPTION")
		for _, r := range records {
			fmt.Printf("%-36s  %-22s  %-19s  %s\n",
				r.ID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), clip(r.Description, 60))
		}
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session in full",
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

		fmt.Printf("ID:          %s\n", rec.ID)
		fmt.Printf("User:        %s\n", rec.UserID)
		fmt.Printf("Status:      %s\n", rec.Status)
		fmt.Printf("Started:     %s\n", rec.StartedAt.Format(time.RFC1123))
		if rec.FinishedAt != nil {
			fmt.Printf("Finished:    %s\n", rec.FinishedAt.Format(time.RFC1123))
		}
		fmt.Printf("Description: %s\n", rec.Description)
		if rec.Error != nil {
			fmt.Printf("Error:       %s\n", *rec.Error)
		}

		if rec.SymptomsJSON != nil {
			var set pipeline.SymptomSet
			if err := json.Unmarshal([]byte(*rec.SymptomsJSON), &set); err == nil {
				fmt.Printf("\nSymptoms:\n")
				for _, s := range set.Symptoms {
					fmt.Printf("  - %s\n", s)
				}
				for _, c := range set.Clarifications {
					fmt.Printf("  Q: %s\n  A: %s\n", c.Question, c.Answer)
				}
			}
		}

		if rec.BundleJSON != nil {
			var bundle pipeline.SearchBundle
			if err := json.Unmarshal([]byte(*rec.BundleJSON), &bundle); err == nil {
				fmt.Printf("\nRelated conditions:\n")
				for _, c := range bundle.RelatedConditions {
					fmt.Printf("  - %s\n", c)
				}
				fmt.Printf("\nSuggested questions:\n")
				for _, q := range bundle.SuggestedQuestions {
					fmt.Printf("  - %s\n", q)
				}
			}
		}
	},
}

var sessionsEventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Show the recorded pipeline events for a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		stores := openSessionStore()
		defer stores.Close()

		events, err := stores.Events.GetEvents(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(events) == 0 {
			fmt.Println("No events recorded")
			return
		}

		for _, e := range events {
			fmt.Printf("%s  %-20s %s\n", e.CreatedAt.Format(time.RFC3339), e.Type, e.PayloadJSON)
		}
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Cancel a recorded session",
	Long:  `Mark a recorded session as cancelled. Sessions that already finished keep their terminal status.`,
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

		switch rec.Status {
		case store.IntakeStatusCompleted, store.IntakeStatusFailed, store.IntakeStatusCancelled:
			fmt.Printf("Session %s is already %s\n", rec.ID, rec.Status)
		default:
			if err := stores.Intakes.UpdateIntakeStatus(rec.ID, store.IntakeStatusCancelled); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Session %s cancelled\n", rec.ID)
		}
	},
}

func openSessionStore() *store.Bundle {
	cfg, err := config.LoadAndValidate(storeConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	stores, err := store.NewBundle(cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	return stores
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsEventsCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsCmd.PersistentFlags().StringVarP(&storeConfigPath, "config", "c", ".", "Path to config file or directory")
	sessionsListCmd.Flags().StringVarP(&sessionsUser, "user", "u", "", "Only list sessions for this user")
	sessionsListCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 50, "Maximum number of sessions to list")
}
