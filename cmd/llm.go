package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jay060412/stepcode/internal/llm"
	"github.com/jay060412/stepcode/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Check model provider connectivity",
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		provider, err := llm.NewProviderFromEnv(ctx, st.RequestLog())
		if err != nil {
			return fmt.Errorf("no provider configured: %w", err)
		}

		fmt.Printf("Model:   %s\n", provider.ModelID())

		start := time.Now()
		resp, err := provider.Generate(ctx, llm.Request{
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Reply with the single word: ok"}},
			MaxTokens: 8,
		})
		if err != nil {
			return fmt.Errorf("provider check failed: %w", err)
		}

		fmt.Printf("Latency: %s\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Reply:   %q\n", resp.Text)
		fmt.Println("OK")
		return nil
	},
}
