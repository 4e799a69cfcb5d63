package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jay060412/stepcode/internal/content"
	"github.com/jay060412/stepcode/internal/gapfiller"
	"github.com/jay060412/stepcode/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		ctx := context.Background()
		prof, err := st.ProfileRepo().Get(ctx, localProfileID)
		if errors.Is(err, store.ErrProfileNotFound) {
			fmt.Println("No learner data yet. Run `stepcode play` first.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}

		catalog, err := content.Load()
		if err != nil {
			return fmt.Errorf("load curriculum: %w", err)
		}
		totalLessons := catalog.TotalLessons()

		open, mastered := gapfiller.Partition(prof.MissedConcepts)

		fmt.Printf("Learner:            %s\n", prof.Name)
		fmt.Println(strings.Repeat("─", 40))
		fmt.Printf("Progress:           %d%%\n", prof.Progress)
		fmt.Printf("Lessons completed:  %d / %d\n", len(prof.CompletedLessonIDs), totalLessons)
		fmt.Printf("Concepts to review: %d\n", len(open))
		fmt.Printf("Concepts mastered:  %d\n", len(mastered))

		reqs, err := st.RequestStats(ctx)
		if err != nil {
			return fmt.Errorf("request stats: %w", err)
		}
		if reqs.Total > 0 {
			fmt.Println()
			fmt.Println("Model requests")
			fmt.Println(strings.Repeat("─", 40))
			fmt.Printf("Calls:              %d (%d failed)\n", reqs.Total, reqs.Failures)
			fmt.Printf("Tokens:             %d in / %d out\n", reqs.InputTokens, reqs.OutputTokens)
		}
		return nil
	},
}
