package game

import (
	poker "github.com/paulhankin/poker"
)

// toEval maps an engine card onto the evaluator's representation. The
// engine ranks aces high (14); the evaluator wants them as 1.
func toEval(c Card) poker.Card {
	var s poker.Suit
	switch c.Suit {
	case Clubs:
		s = poker.Club
	case Diamonds:
		s = poker.Diamond
	case Hearts:
		s = poker.Heart
	case Spades:
		s = poker.Spade
	}
	r := poker.Rank(c.Rank)
	if c.Rank == Ace {
		r = poker.Rank(1)
	}
	card, err := poker.MakeCard(s, r)
	if err != nil {
		panic("game: bad card " + c.String())
	}
	return card
}

// Score7 ranks the best five-card hand out of two hole cards and a
// full board. Higher scores beat lower ones; equal scores split.
func Score7(hole []Card, board []Card) int16 {
	var seven [7]poker.Card
	k := 0
	for _, c := range hole {
		seven[k] = toEval(c)
		k++
	}
	for _, c := range board {
		seven[k] = toEval(c)
		k++
	}
	if k != 7 {
		panic("game: Score7 wants exactly 7 cards")
	}
	return poker.Eval7(&seven)
}

// Describe names a hand for showdown logs, e.g. "two pair".
func Describe(cards []Card) string {
	ev := make([]poker.Card, len(cards))
	for i, c := range cards {
		ev[i] = toEval(c)
	}
	desc, err := poker.Describe(ev)
	if err != nil {
		return ""
	}
	return desc
}
