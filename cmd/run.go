package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jay060412/stepcode/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run <file.step>",
	Short: "Run a Step script in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}

		sess := runner.New(runner.LangStep).Session()
		if err := sess.Run(context.Background(), string(src)); err != nil {
			return err
		}

		stdin := bufio.NewReader(os.Stdin)
		printed := 0
		for {
			out := sess.Output()
			if len(out) > printed {
				fmt.Print(out[printed:])
				printed = len(out)
			}

			if sess.AwaitingInput() {
				line, err := stdin.ReadString('\n')
				if err != nil {
					sess.Stop()
					break
				}
				sess.ProvideInput(trimNewline(line))
				continue
			}

			select {
			case <-sess.Done():
				if out := sess.Output(); len(out) > printed {
					fmt.Print(out[printed:])
				}
				if sess.State() == runner.StateFailed {
					os.Exit(1)
				}
				return nil
			case <-time.After(20 * time.Millisecond):
			}
		}
		return nil
	},
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
