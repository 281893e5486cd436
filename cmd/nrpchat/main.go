// Package main provides the nrpchat CLI application entry point.
// nrpchat is a terminal chat client for the NRP managed LLM endpoint, with
// an interactive TUI, a plain CLI chat loop, and durable named sessions.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nrpchat/internal/agent"
	"nrpchat/internal/catalog"
	"nrpchat/internal/client"
	"nrpchat/internal/config"
	"nrpchat/internal/logger"
	"nrpchat/internal/session"
	"nrpchat/internal/transcript"
	"nrpchat/internal/tui"
	"nrpchat/pkg/chattypes"
)

var (
	logLevel    string
	logFile     string
	sessionName string
	newSession  bool
	modelID     string
	version     = "0.1.0" // This could be set at build time
)

// rootCmd launches the TUI when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "nrpchat",
	Short: "Terminal chat client for NRP managed LLMs",
	Long: `nrpchat talks to the Nautilus Research Platform's hosted language models
through their OpenAI-compatible endpoint. Conversations are grouped into
named sessions with durable per-model transcripts that can be resumed later.`,
	RunE: runTUI,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI (default)",
	RunE:  runTUI,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a single model from the command line",
	Long: `Start a plain read-eval-print chat loop against one model. The conversation
is recorded in the selected session and can be resumed later, from the CLI
or the TUI.`,
	RunE: runChat,
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "Print available models to stdout",
	RunE:  runListModels,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and all its transcripts",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("nrpchat v%s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write diagnostic logs to file instead of the default")
	rootCmd.PersistentFlags().StringVar(&sessionName, "session", "", "Session name to create or resume")
	rootCmd.PersistentFlags().BoolVar(&newSession, "new-session", false, "Force a fresh session even if the name exists")

	chatCmd.Flags().StringVar(&modelID, "model", "gemma3", "Model id to use")

	if err := viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-file flag: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(listModelsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	rootCmd.SilenceUsage = true
}

// setup loads configuration and builds the shared components. When a
// client is needed, a missing API key fails here, before any session state
// is touched.
func setup(needsClient, diagnosticToFile bool) (*config.Config, *session.Store, *client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if needsClient {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, nil, nil, err
		}
	}

	// The TUI owns the terminal, so its diagnostics go to logs/tui.log.
	file := logFile
	if file == "" && diagnosticToFile {
		file = filepath.Join(cfg.LogDir, "tui.log")
	}
	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if err := logger.Configure(level, file); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	store, err := session.NewStore(cfg.LogDir, logger.New("session"))
	if err != nil {
		return nil, nil, nil, err
	}

	cat, err := catalog.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	var cl *client.Client
	if needsClient {
		cl = client.New(cfg.APIKey, cfg.BaseURL, cat, logger.New("client"))
	}
	return cfg, store, cl, nil
}

func runTUI(_ *cobra.Command, _ []string) error {
	_, store, cl, err := setup(true, true)
	if err != nil {
		return err
	}

	logger.Info("starting nrpchat TUI", "version", version)

	opts := tui.Options{Resume: !newSession}
	if sessionName != "" {
		sess, err := store.GetOrCreate(sessionName, !newSession)
		if err != nil {
			return err
		}
		opts.Session = sess
	}

	return tui.Run(store, cl, logger.Logger, opts)
}

func runChat(_ *cobra.Command, _ []string) error {
	_, store, cl, err := setup(true, false)
	if err != nil {
		return err
	}

	label := sessionName
	if label == "" {
		label = "cli"
	}
	sess, err := store.GetOrCreate(label, !newSession)
	if err != nil {
		return err
	}

	var history []chattypes.Message
	if !newSession {
		history, err = store.LoadHistory(sess, modelID)
		if err != nil {
			logger.Warn("could not load prior history", "model", modelID, "error", err)
		}
	}

	writer := transcript.Open(sess, modelID, agent.SystemPrompt, logger.New("transcript"))
	ag := agent.New(modelID, cl.ChatCompletion, agent.SystemPrompt, history, writer, logger.New("agent"))

	fmt.Printf("Starting chat with model '%s' in session '%s' (Ctrl+C or 'exit' to quit)\n", modelID, sess.DisplayName)
	if prior := len(history); prior > 0 {
		fmt.Printf("Loaded %d previous message(s).\n", prior)
	}

	render := replyRenderer()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nExiting chat.")
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if lower := strings.ToLower(text); lower == "exit" || lower == "quit" {
			fmt.Println("Exiting chat.")
			break
		}

		fmt.Printf("%s (thinking...)\n", modelID)
		reply, err := ag.Send(context.Background(), text)
		if err != nil {
			// Recoverable: the turn failed, the conversation has not.
			fmt.Printf("[error] Chat request failed: %v\n", err)
			continue
		}

		fmt.Printf("%s: %s\n", modelID, render(reply))
	}

	return scanner.Err()
}

// replyRenderer returns a markdown renderer for assistant replies when
// stdout is a terminal, and the identity function otherwise.
func replyRenderer() func(string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return func(s string) string { return s }
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		logger.Warn("markdown rendering unavailable", "error", err)
		return func(s string) string { return s }
	}

	return func(s string) string {
		out, err := renderer.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(out, "\n") + "\n"
	}
}

func runListModels(cmd *cobra.Command, _ []string) error {
	_, _, cl, err := setup(true, false)
	if err != nil {
		return err
	}

	infos, err := cl.ListModels(cmd.Context())
	if err != nil {
		return err
	}

	for _, info := range infos {
		line := info.ID
		if info.Status != "" {
			line += fmt.Sprintf("  [%s]", info.Status)
		}
		if info.Title != "" {
			line += "  " + info.Title
		}
		if info.ContextTokens > 0 {
			line += fmt.Sprintf("  ctx %d", info.ContextTokens)
		}
		if info.Features != "" {
			line += "  (" + info.Features + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func runSessionsList(_ *cobra.Command, _ []string) error {
	_, store, _, err := setup(false, false)
	if err != nil {
		return err
	}

	sessions := store.List()
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}
	for _, sess := range sessions {
		fmt.Printf("%s  %s  (created %s)\n", sess.ID, sess.DisplayName, sess.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runSessionsDelete(_ *cobra.Command, args []string) error {
	_, store, _, err := setup(false, false)
	if err != nil {
		return err
	}

	id := args[0]
	if err := store.Delete(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			fmt.Fprintf(os.Stderr, "Session %s does not exist.\n", id)
			return nil
		}
		return err
	}

	fmt.Printf("Deleted session %s.\n", id)
	return nil
}
