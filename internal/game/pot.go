package game

import "sort"

// Pot is one contribution layer of a hand. Seats that folded leave
// their chips in the layer but are not eligible to win it.
type Pot struct {
	Amount   int64
	Eligible []int
}

// BuildPots layers total hand contributions into a main pot and side
// pots. Each distinct contribution total forms a layer; a seat is
// eligible for every layer it fully matched. The top bettor's uncalled
// chips end up as a layer only they are eligible for, which hands the
// excess straight back at settle.
func BuildPots(seats []*Seat) []Pot {
	levels := make([]int64, 0, len(seats))
	seen := make(map[int64]bool, len(seats))
	for _, s := range seats {
		if s.Contributed > 0 && !seen[s.Contributed] {
			seen[s.Contributed] = true
			levels = append(levels, s.Contributed)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels))
	prev := int64(0)
	for _, level := range levels {
		var pot Pot
		for i, s := range seats {
			c := s.Contributed
			if c > level {
				c = level
			}
			if c > prev {
				pot.Amount += c - prev
			}
			if !s.Folded && s.Contributed >= level {
				pot.Eligible = append(pot.Eligible, i)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}
	return pots
}
