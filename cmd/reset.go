package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jay060412/stepcode/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe local learner data",
	RunE: func(cmd *cobra.Command, args []string) error {
		withLog, _ := cmd.Flags().GetBool("requests")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		if _, err := st.DB().Exec("DELETE FROM profiles"); err != nil {
			return fmt.Errorf("wipe profiles: %w", err)
		}
		if withLog {
			if _, err := st.DB().Exec("DELETE FROM llm_requests"); err != nil {
				return fmt.Errorf("wipe request log: %w", err)
			}
		}

		fmt.Println("Learner data wiped.")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("requests", false, "Also clear the model request log")
}
