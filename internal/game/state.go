package game

type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "allin"
)

type Street string

const (
	StreetPreFlop Street = "preflop"
	StreetFlop    Street = "flop"
	StreetTurn    Street = "turn"
	StreetRiver   Street = "river"
)

// Seat is one player's in-hand state. The index of a seat in the hand
// is its position; Name identifies the agent across hands.
type Seat struct {
	Name       string
	Stack      int64
	Hole       []Card
	Folded     bool
	AllIn      bool
	LastAction ActionType

	// Committed is the seat's chips on the current street, Contributed
	// its chips over the whole hand. Contributed drives pot layering.
	Committed   int64
	Contributed int64

	acted bool
}

// ActionRecord is one entry in a hand's action log.
type ActionRecord struct {
	Seat   int    `json:"seat"`
	Name   string `json:"name"`
	Street string `json:"street"`
	Action string `json:"action"`
	Amount int64  `json:"amount,omitempty"`
}

// PotAward is one pot's outcome: the chips in it and the seats that
// split it.
type PotAward struct {
	Amount  int64    `json:"amount"`
	Winners []string `json:"winners"`
}

// Result is the settled outcome of a finished hand. Deltas are net
// chip movements per seat name (payout minus contribution) and always
// sum to zero.
type Result struct {
	HandNumber int                 `json:"hand_number"`
	Street     Street              `json:"street"`
	Board      []string            `json:"board"`
	Pot        int64               `json:"pot"`
	Awards     []PotAward          `json:"awards"`
	Payouts    map[string]int64    `json:"payouts"`
	Deltas     map[string]int64    `json:"deltas"`
	Showdown   bool                `json:"showdown"`
	Reveal     map[string][]string `json:"reveal,omitempty"`
	Hands      map[string]string   `json:"hands,omitempty"`
	Log        []ActionRecord      `json:"log"`
}
