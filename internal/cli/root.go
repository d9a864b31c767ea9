// Package cli implements the socratic terminal commands.
package cli

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultProfilePath = "cognitive_profile.json"

var (
	profilePath string
	verbose     bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "socratic",
	Short: "A Socratic dialogue partner that remembers how you reason",
	Long: "Chat with a dialogue partner that looks for flaws in your reasoning and answers with questions.\n" +
		"Recurring fallacies are kept in a cognitive profile that carries over between sessions.",
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		_ = godotenv.Load()
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "Profile path (default: $PROFILE_PATH or ./cognitive_profile.json)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

func getProfilePath() string {
	if profilePath != "" {
		return profilePath
	}
	if env := os.Getenv("PROFILE_PATH"); env != "" {
		return env
	}
	return defaultProfilePath
}

func getTopFallacies() int {
	if env := os.Getenv("PROFILE_TOP_FALLACIES"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			return n
		}
	}
	return 3
}
