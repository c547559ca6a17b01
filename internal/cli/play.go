package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rps-arena/internal/game"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play against the computer",
	Long: `Play rounds against the computer, one move per line.

Commands:
  rock, paper, scissors   Throw a move (r, p and s also work)
  stats                   Show the move frequency chart
  reset                   Clear the scores and history
  quit                    Leave the game`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session := game.NewSession(newAgent(1))
		return runPlay(cmd.InOrStdin(), cmd.OutOrStdout(), session)
	},
}

func runPlay(in io.Reader, out io.Writer, session *game.Session) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Rock, paper or scissors? (stats, reset, quit)")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch input {
		case "":
			continue
		case "quit", "exit", "q":
			printScores(out, session)
			return nil
		case "stats":
			printChart(out, session.MoveFrequencies())
			continue
		case "reset":
			session.Reset()
			fmt.Fprintln(out, "Scores cleared.")
			printScores(out, session)
			continue
		}

		move, err := game.ParseMove(input)
		if err != nil {
			fmt.Fprintf(out, "Unknown move %q. Try rock, paper or scissors.\n", input)
			continue
		}

		aiMove, outcome, err := session.ResolveRound(move)
		if err != nil {
			if errors.Is(err, game.ErrInvalidMove) {
				fmt.Fprintln(out, "That move is not allowed.")
				continue
			}
			return err
		}

		printRound(out, move, aiMove, outcome)
		printScores(out, session)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	printScores(out, session)
	return nil
}

func printRound(out io.Writer, player, ai game.Move, outcome game.Outcome) {
	fmt.Fprintf(out, "You: %-8s  AI: %-8s  %s\n", player, ai, outcome)
}

func printScores(out io.Writer, session *game.Session) {
	fmt.Fprintf(out, "Player: %d | AI: %d | Tie: %d\n",
		session.PlayerScore(), session.AIScore(), session.TieCount())
}
