package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rps-arena/internal/game"
	"github.com/spf13/cobra"
)

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Watch the computer play against itself",
	Long: `Run an exhibition where two computer players face each other.

Examples:
  rps auto                          # 10 rounds, 800ms apart
  rps auto --rounds 50 --interval 0 # 50 rounds as fast as possible
  rps auto --seed 7                 # Repeatable exhibition`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if autoRounds <= 0 {
			return fmt.Errorf("rounds must be positive, got %d", autoRounds)
		}
		if autoInterval < 0 {
			return fmt.Errorf("interval must not be negative, got %s", autoInterval)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		session := game.NewSession(newAgent(1), game.WithExhibitionPlayer(newAgent(2)))
		return runAuto(ctx, cmd.OutOrStdout(), session, autoRounds, autoInterval)
	},
}

// Flags
var (
	autoRounds   int
	autoInterval time.Duration
)

func init() {
	autoCmd.Flags().IntVarP(&autoRounds, "rounds", "n", 10, "Number of rounds to play")
	autoCmd.Flags().DurationVarP(&autoInterval, "interval", "i", 800*time.Millisecond, "Delay between rounds")
}

// runAuto plays up to rounds automated rounds, one per tick, and stops early
// when ctx is cancelled.
func runAuto(ctx context.Context, out io.Writer, session *game.Session, rounds int, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for played := 0; played < rounds; played++ {
		if played > 0 && tick != nil {
			select {
			case <-ctx.Done():
				return finishAuto(out, session)
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return finishAuto(out, session)
		}

		player, ai, outcome, err := session.ResolveAutomatedRound()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "#%-3d ", played+1)
		printRound(out, player, ai, outcome)
	}

	return finishAuto(out, session)
}

func finishAuto(out io.Writer, session *game.Session) error {
	fmt.Fprintln(out)
	printScores(out, session)
	printChart(out, session.MoveFrequencies())
	return nil
}
