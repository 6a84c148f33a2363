package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/study-buddy/internal/config"
	"github.com/zhouzirui/study-buddy/internal/logging"
	"github.com/zhouzirui/study-buddy/internal/model/persona"
	"github.com/zhouzirui/study-buddy/internal/service/chat"
	"github.com/zhouzirui/study-buddy/internal/service/responder"
	"github.com/zhouzirui/study-buddy/internal/ui/chatwindow"
)

type flags struct {
	endpoint string
	timeout  time.Duration
	markdown bool
	persona  string
	logFile  string
	logLevel string
	mdStyle  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "Terminal chat window for a remote study assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; the environment may carry everything.
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "load configuration")
			}
			if err := applyFlags(cmd, f, cfg); err != nil {
				return err
			}
			return run(cmd, cfg, f.mdStyle)
		},
	}

	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "responder URL (overrides RESPONDER_URL)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "per-exchange timeout, 0 waits forever (overrides RESPONDER_TIMEOUT)")
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "render replies as markdown (overrides CHAT_MARKDOWN)")
	cmd.Flags().StringVar(&f.mdStyle, "markdown-style", "", "glamour style name, empty picks one from the terminal")
	cmd.Flags().StringVar(&f.persona, "persona", "", "assistant persona id (overrides CHAT_PERSONA)")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "write logs to this file (overrides LOG_FILE)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	return cmd
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) error {
	set := cmd.Flags().Changed
	if set("endpoint") {
		if err := config.ValidateEndpoint(f.endpoint); err != nil {
			return err
		}
		cfg.Responder.Endpoint = f.endpoint
	}
	if set("timeout") {
		if f.timeout < 0 {
			return errors.Errorf("invalid --timeout %s: must not be negative", f.timeout)
		}
		cfg.Responder.Timeout = f.timeout
	}
	if set("markdown") {
		cfg.UI.Markdown = f.markdown
	}
	if set("persona") {
		cfg.UI.PersonaID = f.persona
	}
	if set("log-file") {
		cfg.Log.File = f.logFile
	}
	if set("log-level") {
		cfg.Log.Level = f.logLevel
	}
	return nil
}

func run(cmd *cobra.Command, cfg *config.Config, mdStyle string) error {
	logger, closer, err := logging.NewFileOnly(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	client := responder.NewClient(cfg.Responder.Endpoint,
		responder.WithTimeout(cfg.Responder.Timeout),
		responder.WithLogger(logger),
	)
	session := chat.NewService(client, chat.WithLogger(logger))
	assistant := persona.Resolve(persona.NewMemoryStore(persona.Seed()), cfg.UI.PersonaID)

	logger.Info().
		Str("endpoint", client.Endpoint()).
		Str("persona", assistant.ID).
		Msg("chat window starting")

	model := chatwindow.New(cmd.Context(), session, chatwindow.Options{
		Persona:       assistant,
		Markdown:      cfg.UI.Markdown,
		MarkdownStyle: mdStyle,
		Logger:        logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run chat window")
	}

	logger.Info().Int("messages", len(session.Messages())).Msg("chat window closed")
	return nil
}
