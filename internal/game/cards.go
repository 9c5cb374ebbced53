package game

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"
)

type Suit int

type Rank int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// Indexed by Rank-Two and Suit respectively.
const (
	rankChars = "23456789TJQKA"
	suitChars = "shdc"
)

type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	if c.Rank < Two || c.Rank > Ace || c.Suit < Spades || c.Suit > Clubs {
		return "??"
	}
	return string([]byte{rankChars[c.Rank-Two], suitChars[c.Suit]})
}

func CardStrings(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}

// ParseCard reads the two-character form produced by Card.String,
// e.g. "As" or "Td". Letters fold to the canonical case.
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("bad card %q", s)
	}
	ri := strings.IndexByte(rankChars, byte(unicode.ToUpper(rune(s[0]))))
	if ri < 0 {
		return Card{}, fmt.Errorf("bad rank in %q", s)
	}
	si := strings.IndexByte(suitChars, byte(unicode.ToLower(rune(s[1]))))
	if si < 0 {
		return Card{}, fmt.Errorf("bad suit in %q", s)
	}
	return Card{Rank: Two + Rank(ri), Suit: Suit(si)}, nil
}

type Deck struct {
	cards []Card
}

func NewDeck() *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for s := Spades; s <= Clubs; s++ {
		for r := Two; r <= Ace; r++ {
			d.cards = append(d.cards, Card{Rank: r, Suit: s})
		}
	}
	return d
}

// Shuffle orders the deck by rnd, so one seed replays a whole session's
// card sequence.
func (d *Deck) Shuffle(rnd *rand.Rand) {
	rnd.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func (d *Deck) Deal() Card {
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c
}

func (d *Deck) Remaining() int {
	return len(d.cards)
}

// NewSeed returns a shuffle seed from the system entropy pool.
func NewSeed() int64 {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
