package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/socratic-labs/internal/agent"
	"github.com/ashureev/socratic-labs/internal/config"
	"github.com/ashureev/socratic-labs/internal/profile"
	"github.com/ashureev/socratic-labs/internal/store"
)

const (
	localUserID    = "local"
	localSessionID = "terminal"
)

var plainOutput bool

// dialogue is the part of agent.Service the chat loop drives.
type dialogue interface {
	Turn(ctx context.Context, userID, sessionID, input string, display agent.Display) (*agent.TurnResult, error)
	Reset(userID, sessionID string) error
}

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a dialogue in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
	cmd.Flags().BoolVar(&plainOutput, "plain", false, "Disable markdown rendering of replies")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrMissingAPIKey) {
		fmt.Fprintln(cmd.ErrOrStderr(), "GOOGLE_API_KEY is not set. Add it to your environment or a .env file and try again.")
		os.Exit(1)
	}
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := slog.Default()

	model, err := agent.NewGeminiClient(ctx, agent.GeminiClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Model:   cfg.Model.Name,
		Timeout: cfg.Model.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("create model client: %w", err)
	}

	svc, err := agent.NewService(agent.ServiceConfig{
		Model:    model,
		Profiles: store.NewSingleFileProfileStore(getProfilePath()),
		ProfileOptions: profile.Options{
			TopFallacies: cfg.Profile.TopFallacies,
			TopicLength:  cfg.Profile.TopicLength,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, panelTitleStyle.Render("Socratic Dialogue Partner")+labelStyle.Render(" ("+model.Name()+")"))
	fmt.Fprintln(out, labelStyle.Render("State a belief. /reset starts over, /quit exits."))
	fmt.Fprintln(out)

	return chatLoop(ctx, cmd.InOrStdin(), out, svc, newTerminalDisplay(out, !plainOutput))
}

// chatLoop reads statements line by line until EOF or /quit.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, d dialogue, display *terminalDisplay) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	for {
		fmt.Fprint(out, speakerStyle.Render("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "/quit", "/exit", "quit", "exit":
			return nil
		case "/reset":
			if err := d.Reset(localUserID, localSessionID); err != nil {
				display.showError(err.Error())
				continue
			}
			fmt.Fprintln(out, labelStyle.Render("Transcript cleared. Your profile is kept."))
			continue
		}

		_, err := d.Turn(ctx, localUserID, localSessionID, line, display)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		display.showError(turnErrorMessage(err))
	}
}

func turnErrorMessage(err error) string {
	var turnErr *agent.TurnError
	if errors.As(err, &turnErr) {
		switch {
		case turnErr.Stage == agent.StagePersist:
			return "Your profile could not be saved: " + turnErr.Err.Error()
		case errors.Is(err, agent.ErrModelTimeout):
			return "The model took too long to respond. Send your statement again."
		case turnErr.Retryable:
			return "The dialogue partner is unavailable (" + turnErr.Err.Error() + "). Send your statement again."
		}
	}
	return err.Error()
}
