package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alantheprice/council/pkg/config"
	"github.com/alantheprice/council/pkg/consensus"
	"github.com/alantheprice/council/pkg/events"
	"github.com/alantheprice/council/pkg/history"
	"github.com/alantheprice/council/pkg/projects"
	"github.com/alantheprice/council/pkg/utils"
)

var (
	runModels      string
	runExtended    bool
	runScreenshot  string
	runOutputDir   string
	runProject     string
	runMaxTokens   int
	runSkipPrompts bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run \"task description\"",
	Short: "Run a consensus session and write the generated files",
	Long: `Run drives a full consensus session for the given task: the first model
proposes an approach, the second reviews it, the agreed plan is implemented
step by step, and every model verifies the result. Generated files are
written to the output directory when the session completes.

Examples:
  council run "Create a countdown timer"
  council run --models "anthropic/claude-3.5-sonnet,openai/gpt-4o-mini" "Build an analog clock"
  council run --extended --output ./app "Create a landing page with a pricing table"`,
	Args: cobra.ExactArgs(1),
	RunE: executeRun,
}

func init() {
	runCmd.Flags().StringVarP(&runModels, "models", "m", "", "comma-separated model ids, planner first")
	runCmd.Flags().BoolVar(&runExtended, "extended", false, "enable the designer and visual QA roles")
	runCmd.Flags().StringVar(&runScreenshot, "screenshot", "", "path to a rendering of the app, enables visual QA")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", ".", "directory the generated files are written to")
	runCmd.Flags().StringVar(&runProject, "project", "", "project name to record this run under")
	runCmd.Flags().IntVar(&runMaxTokens, "max-tokens", 0, "token cap for generation calls, 0 uses the default")
	runCmd.Flags().BoolVar(&runSkipPrompts, "skip-prompts", false, "overwrite existing files without asking")
}

func executeRun(cmd *cobra.Command, args []string) error {
	logger := utils.GetLogger(runSkipPrompts)
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	models := cfg.Models
	if runModels != "" {
		models = parseModels(runModels)
	}

	invoker := resolveClient(cfg, !runSkipPrompts)
	bus := events.NewEventBus()
	engine := consensus.NewEngine(invoker, consensus.NewMemoryStore(), bus)

	// Stream transcript messages to the terminal while the session runs.
	eventCh := bus.Subscribe("cli")
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		for event := range eventCh {
			if event.Type != events.EventTypeSessionMessage {
				continue
			}
			data, ok := event.Data.(map[string]interface{})
			if !ok {
				continue
			}
			agent, _ := data["agent"].(string)
			content, _ := data["content"].(string)
			fmt.Printf("\n%s%s%s\n%s\n", history.BoldStyle, agent, history.ResetColor, content)
		}
	}()

	sess, err := engine.Run(cmd.Context(), args[0], models, consensus.RunOptions{
		Extended:      runExtended,
		ScreenshotRef: runScreenshot,
		MaxTokens:     runMaxTokens,
	})
	bus.Unsubscribe("cli")
	<-printerDone
	if err != nil {
		return err
	}

	if sess.Status == consensus.StatusFailed {
		return fmt.Errorf("session failed during %s: %s", sess.Phase, sess.Error)
	}

	if err := writeGeneratedFiles(runOutputDir, sess, logger); err != nil {
		return err
	}

	if runProject != "" {
		if err := recordRun(cfg, runProject, sess, logger); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
	}
	return nil
}

// writeGeneratedFiles writes the session's files under dir. Files that
// already exist with different content get a diff printed and, in
// interactive mode, a single confirmation before anything is replaced.
func writeGeneratedFiles(dir string, sess *consensus.Session, logger *utils.Logger) error {
	if len(sess.FileOrder) == 0 {
		logger.LogProcessStep("No files were generated")
		return nil
	}

	overwrites := 0
	for _, name := range sess.FileOrder {
		path := filepath.Join(dir, name)
		if old, err := os.ReadFile(path); err == nil && string(old) != sess.Files[name] {
			history.PrintDiff(name, string(old), sess.Files[name])
			overwrites++
		}
	}
	if overwrites > 0 {
		prompt := fmt.Sprintf("Overwrite %d existing file(s)?", overwrites)
		if !logger.AskForConfirmation(prompt, true, false) {
			return fmt.Errorf("aborted, existing files were kept")
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, name := range sess.FileOrder {
		path := filepath.Join(dir, name)
		if parent := filepath.Dir(path); parent != "." {
			if err := os.MkdirAll(parent, 0755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(path, []byte(sess.Files[name]), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	logger.LogProcessStep(fmt.Sprintf("💾 Wrote %d file(s) to %s", len(sess.FileOrder), dir))
	return nil
}

// recordRun persists the finished session under a named project.
func recordRun(cfg *config.Config, name string, sess *consensus.Session, logger *utils.Logger) error {
	db, err := projects.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	store := projects.NewStore(db)
	project, err := store.UpsertProject(name, sess.Task, sess.Files, sess.Transcript)
	if err != nil {
		return err
	}
	if _, err := store.SaveRun(project.ID, sess); err != nil {
		return err
	}
	logger.LogProcessStep(fmt.Sprintf("📦 Recorded run under project %q", name))
	return nil
}
