package game

import "errors"

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrNotYourTurn   = errors.New("not_your_turn")
	ErrHandFinished  = errors.New("hand_finished")
	ErrHandNotDone   = errors.New("hand_not_finished")
)

// LegalActions lists what the current actor may do. Fold is only
// advertised when chips are owed; Apply still accepts it any time.
// Raising after a short all-in is advertised even for seats whose
// action was not formally reopened.
func (h *Hand) LegalActions() []ActionType {
	if h.finished || h.ToAct < 0 {
		return nil
	}
	s := h.Seats[h.ToAct]
	if s.Folded || s.AllIn {
		return nil
	}
	out := make([]ActionType, 0, 4)
	if h.owed(h.ToAct) == 0 {
		out = append(out, ActionCheck)
		if h.CurrentBet == 0 {
			out = append(out, ActionBet)
		} else {
			out = append(out, ActionRaise)
		}
	} else {
		out = append(out, ActionFold, ActionCall)
		if s.Committed+s.Stack > h.CurrentBet {
			out = append(out, ActionRaise)
		}
	}
	out = append(out, ActionAllIn)
	return out
}
