package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/rps-arena/internal/game"
)

const chartWidth = 30

// printChart draws one player bar and one AI bar per move, scaled so the
// most frequent move fills chartWidth.
func printChart(out io.Writer, freq map[game.Move]game.Frequency) {
	peak := 0
	for _, f := range freq {
		peak = max(peak, f.Player, f.AI)
	}

	fmt.Fprintln(out, "Move frequency")
	if peak == 0 {
		fmt.Fprintln(out, "  no rounds played yet")
		return
	}

	for _, m := range game.Moves {
		f := freq[m]
		fmt.Fprintf(out, "  %-8s player %s %d\n", m, bar(f.Player, peak), f.Player)
		fmt.Fprintf(out, "  %-8s ai     %s %d\n", "", bar(f.AI, peak), f.AI)
	}
}

func bar(count, peak int) string {
	n := count * chartWidth / peak
	if count > 0 && n == 0 {
		n = 1
	}
	return strings.Repeat("#", n) + strings.Repeat(".", chartWidth-n)
}
