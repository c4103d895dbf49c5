package cmppending

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	colorA = color.New(color.FgYellow)
	colorB = color.New(color.FgRed)
)

// Report prints one line per decided race, coloured by winner, then the totals.
// Ties are not part of the output.
func Report(w io.Writer, nameA, nameB string, res Result) error {
	for _, r := range res.Races {
		line := fmt.Sprintf("%s: %d, %s: %d | diff: %d ms", nameA, r.A, nameB, r.B, r.Diff)
		c := colorA
		if r.Winner == WinnerB {
			c = colorB
		}
		if _, err := c.Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%s wins: %d, %s wins: %d\n", nameA, res.WinsA, nameB, res.WinsB)
	return err
}
