package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aymanh23/searchv2/agent"
	"github.com/aymanh23/searchv2/config"
	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/report"
	"github.com/aymanh23/searchv2/store"
	"github.com/aymanh23/searchv2/streamers"
	"github.com/aymanh23/searchv2/streamers/cli"
)

var configPath string
var debugMode bool
var intakeUser string
var intakeReport bool

var intakeCmd = &cobra.Command{
	Use:   "intake [description]",
	Short: "Run an interactive symptom intake",
	Long: `Start a symptom intake session. The description can be given as an argument
or typed at the prompt. The agent asks clarifying questions until it has at
least one concrete symptom, then searches for related conditions.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := config.LoadAndValidate(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		stores, err := store.NewBundle(cfg.Storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer stores.Close()

		searcher, err := buildSearcher(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		debugFile := ""
		var events agent.EventLogger
		if debugMode {
			debugFile = "debug.txt"
			if el, err := agent.NewFileEventLogger("events.log"); err == nil {
				events = el
				defer el.Close()
			}
		}
		factory := newCommunicatorFactory(ctx, cfg, debugFile, events, searcher)

		// Progress prints to the terminal; the storing decorator keeps the
		// event trail queryable afterwards.
		var handler streamers.PipelineHandler = cli.NewPipelineHandler()
		handler = streamers.NewStoringPipelineHandler(handler, stores.Events)

		registry := pipeline.NewRegistry(factory, searcher).
			WithStore(stores).
			WithHandler(handler)
		defer registry.Close()

		chat := cli.NewChatHandler()
		agentName := pipeline.SymptomExtractionTask().AgentName
		modelName := ""
		if agentCfg, err := cfg.GetAgent(agentName); err == nil {
			if _, name, err := agentCfg.ResolveModel(cfg.Models); err == nil {
				modelName = name
			}
		}
		chat.Welcome(agentName, modelName)

		description := ""
		if len(args) > 0 {
			description = strings.TrimSpace(args[0])
		}
		for description == "" {
			input, rerr := chat.AwaitClientAnswer()
			if rerr != nil {
				if rerr == io.EOF {
					chat.Goodbye()
					return
				}
				chat.Error(rerr)
				os.Exit(1)
			}
			if input == "exit" || input == "quit" {
				chat.Goodbye()
				return
			}
			description = input
		}

		update, err := registry.Start(ctx, intakeUser, description)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nIntake failed: %v\n", err)
			os.Exit(1)
		}

		for update.Status == store.IntakeStatusAwaiting {
			answer, rerr := chat.AwaitClientAnswer()
			if rerr != nil {
				if rerr == io.EOF {
					_ = registry.Cancel(intakeUser, update.SessionID)
					chat.Goodbye()
					return
				}
				chat.Error(rerr)
				os.Exit(1)
			}
			if answer == "" {
				continue
			}
			if answer == "exit" || answer == "quit" {
				_ = registry.Cancel(intakeUser, update.SessionID)
				chat.Goodbye()
				return
			}

			update, err = registry.Answer(ctx, intakeUser, update.SessionID, answer)
			if err != nil {
				fmt.Fprintf(os.Stderr, "\nIntake failed: %v\n", err)
				os.Exit(1)
			}
		}

		printBundle(update)

		if intakeReport {
			if err := saveIntakeReport(stores, update.SessionID); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving report: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

// printBundle renders the completed search result as markdown.
func printBundle(update *pipeline.IntakeUpdate) {
	if update.Result == nil {
		return
	}

	var b strings.Builder
	b.WriteString("## Related Conditions\n\n")
	if len(update.Result.RelatedConditions) == 0 {
		b.WriteString("The search returned no related conditions.\n")
	}
	for _, c := range update.Result.RelatedConditions {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\n## Suggested Follow-up Questions\n\n")
	if len(update.Result.SuggestedQuestions) == 0 {
		b.WriteString("No follow-up questions were suggested.\n")
	}
	for _, q := range update.Result.SuggestedQuestions {
		fmt.Fprintf(&b, "- %s\n", q)
	}

	fmt.Println(renderMarkdown(b.String()))
}

func saveIntakeReport(stores *store.Bundle, intakeID string) error {
	rec, err := stores.Intakes.GetIntake(intakeID)
	if err != nil {
		return err
	}
	messages, _ := stores.Intakes.GetMessages(intakeID)

	md, err := report.Build(rec, messages)
	if err != nil {
		return err
	}

	id, err := stores.Reports.SaveReport(rec.ID, rec.UserID, md)
	if err != nil {
		return err
	}
	fmt.Printf("Report saved (id: %s). View it with: searchv2 report show %s\n", id, id)
	return nil
}

func init() {
	rootCmd.AddCommand(intakeCmd)
	intakeCmd.Flags().StringVarP(&configPath, "config", "c", ".", "Path to config file or directory")
	intakeCmd.Flags().StringVarP(&intakeUser, "user", "u", "local", "User ID to record the intake under")
	intakeCmd.Flags().BoolVarP(&debugMode, "debug", "d", false, "Log LLM messages to debug.txt and events to events.log")
	intakeCmd.Flags().BoolVarP(&intakeReport, "report", "r", false, "Save a markdown report when the intake completes")
}
