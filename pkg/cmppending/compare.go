package cmppending

import (
	"bytes"
	"sort"
)

// Compare races the transactions present in both a and b. The earlier
// timestamp wins; equal timestamps count as a tie for neither side.
func Compare(a, b Observations) Result {
	var res Result
	for hash, ta := range a {
		tb, ok := b[hash]
		if !ok {
			continue
		}

		switch {
		case ta < tb:
			res.WinsA++
			res.Races = append(res.Races, Race{Hash: hash, A: ta, B: tb, Winner: WinnerA, Diff: tb - ta})
		case tb < ta:
			res.WinsB++
			res.Races = append(res.Races, Race{Hash: hash, A: ta, B: tb, Winner: WinnerB, Diff: ta - tb})
		default:
			res.Ties++
		}
	}

	sort.Slice(res.Races, func(i, j int) bool {
		return bytes.Compare(res.Races[i].Hash[:], res.Races[j].Hash[:]) < 0
	})
	return res
}
