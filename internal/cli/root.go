package cli

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/rps-arena/internal/game"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rps",
	Short: "Rock-paper-scissors against the computer",
	Long: `rps plays rock-paper-scissors in the terminal.

Play rounds yourself against the computer, or watch two computer
players face each other and compare how often each move was thrown.`,
}

// Flags
var seed uint64

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Seed the computer players for a repeatable game (0 = random)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(autoCmd)
}

// newAgent builds a computer player. With a seed set, the stream argument
// keeps the two players of an automated game from mirroring each other.
func newAgent(stream uint64) *game.Agent {
	if seed == 0 {
		return game.NewAgent()
	}
	return game.NewAgent(game.WithSource(rand.NewPCG(seed, stream)))
}
