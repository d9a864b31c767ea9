package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ashureev/socratic-labs/internal/profile"
	"github.com/ashureev/socratic-labs/internal/store"
)

var showJSON bool

func init() {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the cognitive profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printProfile(cmd.Context(), cmd.OutOrStdout(), getProfilePath(), getTopFallacies(), showJSON)
		},
	}
	cmd.Flags().BoolVar(&showJSON, "json", false, "Print the full profile document")

	RootCmd.AddCommand(cmd)
}

func printProfile(ctx context.Context, out io.Writer, path string, top int, asJSON bool) error {
	h, err := profile.Load(ctx, store.NewSingleFileProfileStore(path), localUserID, profile.Options{TopFallacies: top}, nil)
	if err != nil {
		return err
	}
	snapshot := h.Snapshot()

	if asJSON {
		b, err := json.MarshalIndent(snapshot, "", "    ")
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	fmt.Fprintln(out, panelTitleStyle.Render("Cognitive profile")+labelStyle.Render(" ("+path+")"))
	fmt.Fprintln(out, h.Summarize())
	fmt.Fprintln(out)
	for _, fc := range h.TopFallacies() {
		fmt.Fprintf(out, "  %-32s %d\n", fc.Name, fc.Count)
	}
	if n := len(snapshot.StruggleHistory); n > 0 {
		last := snapshot.StruggleHistory[n-1]
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%d recorded interactions, last at %s: %q\n", n, last.Timestamp, last.Topic)
	}
	return nil
}
