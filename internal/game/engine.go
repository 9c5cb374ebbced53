package game

import (
	"errors"
	"fmt"
)

// MaxSeats is the most players a single hand supports.
const MaxSeats = 10

// HandConfig describes one hand of no-limit hold'em. Names and Stacks
// are parallel and ordered by seat; Button indexes into them.
type HandConfig struct {
	Number     int
	Names      []string
	Stacks     []int64
	Button     int
	SmallBlind int64
	BigBlind   int64
}

// Hand is a single hand in progress. All mutation goes through Apply;
// the hand deals streets and finishes itself as betting closes. ToAct
// is -1 whenever no seat owes a decision.
type Hand struct {
	Number     int
	Seats      []*Seat
	Button     int
	SmallBlind int64
	BigBlind   int64
	Street     Street
	Board      []Card
	Pot        int64
	CurrentBet int64
	MinRaise   int64
	ToAct      int
	Log        []ActionRecord

	deck     *Deck
	finished bool
}

// NewHand deals hole cards, posts blinds and leaves the hand waiting
// on the first actor. Heads-up the button posts the small blind and
// acts first preflop.
func NewHand(cfg HandConfig, deck *Deck) (*Hand, error) {
	n := len(cfg.Names)
	if n < 2 || n > MaxSeats {
		return nil, fmt.Errorf("hand wants 2..%d seats, got %d", MaxSeats, n)
	}
	if len(cfg.Stacks) != n {
		return nil, errors.New("names and stacks length mismatch")
	}
	if cfg.Button < 0 || cfg.Button >= n {
		return nil, fmt.Errorf("button %d out of range", cfg.Button)
	}
	if cfg.SmallBlind <= 0 || cfg.BigBlind < cfg.SmallBlind {
		return nil, fmt.Errorf("bad blinds %d/%d", cfg.SmallBlind, cfg.BigBlind)
	}
	if deck.Remaining() < 2*n+5 {
		return nil, errors.New("deck too small for hand")
	}
	h := &Hand{
		Number:     cfg.Number,
		Button:     cfg.Button,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		Street:     StreetPreFlop,
		MinRaise:   cfg.BigBlind,
		deck:       deck,
	}
	for i := 0; i < n; i++ {
		if cfg.Stacks[i] <= 0 {
			return nil, fmt.Errorf("seat %d (%s) has no chips", i, cfg.Names[i])
		}
		h.Seats = append(h.Seats, &Seat{Name: cfg.Names[i], Stack: cfg.Stacks[i]})
	}
	for _, s := range h.Seats {
		s.Hole = []Card{deck.Deal(), deck.Deal()}
	}
	sb, bb := h.blindSeats()
	h.commit(sb, cfg.SmallBlind)
	h.commit(bb, cfg.BigBlind)
	h.ToAct = h.nextActor(bb)
	if h.ToAct < 0 {
		// everyone all-in from the blinds
		h.closeStreet()
	}
	return h, nil
}

func (h *Hand) blindSeats() (int, int) {
	n := len(h.Seats)
	if n == 2 {
		return h.Button, (h.Button + 1) % n
	}
	return (h.Button + 1) % n, (h.Button + 2) % n
}

// Finished reports whether the hand has ended, by fold-out or by the
// river betting round closing.
func (h *Hand) Finished() bool {
	return h.finished
}

// ActorName is the name of the seat that owes a decision.
func (h *Hand) ActorName() string {
	if h.ToAct < 0 {
		return ""
	}
	return h.Seats[h.ToAct].Name
}

// CallAmount is what the current actor must add to continue, capped
// at its stack.
func (h *Hand) CallAmount() int64 {
	if h.ToAct < 0 {
		return 0
	}
	s := h.Seats[h.ToAct]
	owed := h.owed(h.ToAct)
	if owed > s.Stack {
		owed = s.Stack
	}
	return owed
}

// MinRaiseTo is the smallest legal raise-to total for the current
// actor, capped at its all-in total.
func (h *Hand) MinRaiseTo() int64 {
	if h.ToAct < 0 {
		return 0
	}
	to := h.CurrentBet + h.MinRaise
	if h.CurrentBet == 0 {
		to = h.BigBlind
	}
	if max := h.MaxRaiseTo(); to > max {
		to = max
	}
	return to
}

// MaxRaiseTo is the current actor's all-in total for the street.
func (h *Hand) MaxRaiseTo() int64 {
	if h.ToAct < 0 {
		return 0
	}
	s := h.Seats[h.ToAct]
	return s.Committed + s.Stack
}

// Apply plays one action for seat. For ActionBet and ActionRaise,
// amount is the seat's total for the street ("raise to"), not the
// increment; for the other actions amount is ignored.
func (h *Hand) Apply(seat int, action ActionType, amount int64) error {
	if h.finished {
		return ErrHandFinished
	}
	if seat != h.ToAct {
		return ErrNotYourTurn
	}
	s := h.Seats[seat]
	if s.Folded || s.AllIn {
		return ErrInvalidAction
	}
	switch action {
	case ActionFold:
		s.Folded = true
		s.LastAction = ActionFold
		h.record(seat, ActionFold, 0)
	case ActionCheck:
		if h.owed(seat) != 0 {
			return ErrInvalidAction
		}
		s.LastAction = ActionCheck
		h.record(seat, ActionCheck, 0)
	case ActionCall:
		owed := h.owed(seat)
		if owed <= 0 {
			return ErrInvalidAction
		}
		paid := h.commit(seat, owed)
		s.LastAction = ActionCall
		h.record(seat, ActionCall, paid)
	case ActionBet:
		if h.CurrentBet != 0 {
			return ErrInvalidAction
		}
		if amount <= 0 {
			return ErrInvalidAction
		}
		if amount < h.BigBlind && amount < s.Stack {
			return ErrInvalidAction
		}
		paid := h.commit(seat, amount)
		s.LastAction = ActionBet
		h.record(seat, ActionBet, paid)
	case ActionRaise:
		if h.CurrentBet == 0 {
			return ErrInvalidAction
		}
		if amount <= h.CurrentBet {
			return ErrInvalidAction
		}
		need := amount - s.Committed
		if need <= 0 {
			return ErrInvalidAction
		}
		// a raise below the minimum is only legal as an all-in
		if need < s.Stack && amount < h.CurrentBet+h.MinRaise {
			return ErrInvalidAction
		}
		paid := h.commit(seat, need)
		s.LastAction = ActionRaise
		h.record(seat, ActionRaise, paid)
	case ActionAllIn:
		paid := h.commit(seat, s.Stack)
		s.LastAction = ActionAllIn
		h.record(seat, ActionAllIn, paid)
	default:
		return ErrInvalidAction
	}
	s.acted = true
	h.advance()
	return nil
}

// commit moves up to want chips from the seat into the pot, marks the
// seat all-in when the stack empties, and lifts CurrentBet when the
// seat's street total tops it.
func (h *Hand) commit(seat int, want int64) int64 {
	s := h.Seats[seat]
	if want >= s.Stack {
		want = s.Stack
		s.AllIn = true
	}
	s.Stack -= want
	s.Committed += want
	s.Contributed += want
	h.Pot += want
	if s.Committed > h.CurrentBet {
		raiseBy := s.Committed - h.CurrentBet
		// only a full raise reopens action for seats that already acted
		if raiseBy >= h.MinRaise {
			h.MinRaise = raiseBy
			for i, o := range h.Seats {
				if i != seat && !o.Folded && !o.AllIn {
					o.acted = false
				}
			}
		}
		h.CurrentBet = s.Committed
	}
	return want
}

func (h *Hand) record(seat int, action ActionType, amount int64) {
	h.Log = append(h.Log, ActionRecord{
		Seat:   seat,
		Name:   h.Seats[seat].Name,
		Street: string(h.Street),
		Action: string(action),
		Amount: amount,
	})
}

func (h *Hand) owed(seat int) int64 {
	owed := h.CurrentBet - h.Seats[seat].Committed
	if owed < 0 {
		return 0
	}
	return owed
}

func (h *Hand) liveCount() int {
	n := 0
	for _, s := range h.Seats {
		if !s.Folded {
			n++
		}
	}
	return n
}

func (h *Hand) bettableCount() int {
	n := 0
	for _, s := range h.Seats {
		if !s.Folded && !s.AllIn {
			n++
		}
	}
	return n
}

// nextActor finds the first seat after from that still owes chips or
// a decision this street.
func (h *Hand) nextActor(from int) int {
	n := len(h.Seats)
	for off := 1; off <= n; off++ {
		i := (from + off) % n
		s := h.Seats[i]
		if s.Folded || s.AllIn {
			continue
		}
		if s.Committed < h.CurrentBet || !s.acted {
			return i
		}
	}
	return -1
}

func (h *Hand) advance() {
	if h.liveCount() == 1 {
		h.finished = true
		h.ToAct = -1
		return
	}
	if next := h.nextActor(h.ToAct); next >= 0 {
		h.ToAct = next
		return
	}
	h.closeStreet()
}

// closeStreet ends the current betting round: past the river the hand
// is done, otherwise the next street is dealt. When fewer than two
// seats can still bet, the remaining streets run out immediately.
func (h *Hand) closeStreet() {
	if h.Street == StreetRiver {
		h.finished = true
		h.ToAct = -1
		return
	}
	for _, s := range h.Seats {
		s.Committed = 0
		s.acted = false
	}
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind
	switch h.Street {
	case StreetPreFlop:
		h.Board = append(h.Board, h.deck.Deal(), h.deck.Deal(), h.deck.Deal())
		h.Street = StreetFlop
	case StreetFlop:
		h.Board = append(h.Board, h.deck.Deal())
		h.Street = StreetTurn
	case StreetTurn:
		h.Board = append(h.Board, h.deck.Deal())
		h.Street = StreetRiver
	}
	if h.bettableCount() < 2 {
		h.closeStreet()
		return
	}
	h.ToAct = h.nextActor(h.Button)
}

// Settle builds the pots, picks winners and applies payouts back to
// seat stacks. Valid once Finished reports true.
func (h *Hand) Settle() (*Result, error) {
	if !h.finished {
		return nil, ErrHandNotDone
	}
	pots := BuildPots(h.Seats)
	showdown := h.liveCount() > 1

	var scores map[int]int16
	if showdown {
		scores = make(map[int]int16, len(h.Seats))
		for i, s := range h.Seats {
			if !s.Folded {
				scores[i] = Score7(s.Hole, h.Board)
			}
		}
	}

	res := &Result{
		HandNumber: h.Number,
		Street:     h.Street,
		Board:      CardStrings(h.Board),
		Pot:        h.Pot,
		Payouts:    make(map[string]int64, len(h.Seats)),
		Deltas:     make(map[string]int64, len(h.Seats)),
		Showdown:   showdown,
		Log:        h.Log,
	}
	payouts := make([]int64, len(h.Seats))
	for _, pot := range pots {
		winners := h.potWinners(pot, scores)
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / int64(len(winners))
		odd := pot.Amount - share*int64(len(winners))
		for k, seat := range winners {
			payouts[seat] += share
			if k == 0 {
				// odd chips go to the earliest winner left of the button
				payouts[seat] += odd
			}
		}
		award := PotAward{Amount: pot.Amount}
		for _, seat := range winners {
			award.Winners = append(award.Winners, h.Seats[seat].Name)
		}
		res.Awards = append(res.Awards, award)
	}
	for i, s := range h.Seats {
		s.Stack += payouts[i]
		res.Payouts[s.Name] = payouts[i]
		res.Deltas[s.Name] = payouts[i] - s.Contributed
	}
	if showdown {
		res.Reveal = make(map[string][]string, len(h.Seats))
		res.Hands = make(map[string]string, len(h.Seats))
		for _, s := range h.Seats {
			if !s.Folded {
				res.Reveal[s.Name] = CardStrings(s.Hole)
				res.Hands[s.Name] = Describe(append(append([]Card(nil), s.Hole...), h.Board...))
			}
		}
	}
	return res, nil
}

// potWinners returns the pot's winning seats ordered from the seat
// left of the button, so odd chips land on the earliest position.
func (h *Hand) potWinners(pot Pot, scores map[int]int16) []int {
	if len(pot.Eligible) == 0 {
		return nil
	}
	winners := pot.Eligible
	if scores != nil {
		best := scores[pot.Eligible[0]]
		for _, seat := range pot.Eligible[1:] {
			if scores[seat] > best {
				best = scores[seat]
			}
		}
		winners = winners[:0:0]
		for _, seat := range pot.Eligible {
			if scores[seat] == best {
				winners = append(winners, seat)
			}
		}
	}
	inWinners := make(map[int]bool, len(winners))
	for _, seat := range winners {
		inWinners[seat] = true
	}
	n := len(h.Seats)
	ordered := make([]int, 0, len(winners))
	for off := 1; off <= n; off++ {
		i := (h.Button + off) % n
		if inWinners[i] {
			ordered = append(ordered, i)
		}
	}
	return ordered
}
