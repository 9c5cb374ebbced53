package agent

import (
	"context"
	"math/rand"

	"stakepit/internal/game"
)

// PolicyAgent plays a seeded pot-odds policy with no outside calls.
// It fills seats when no model endpoint is configured and drives
// simulations, where one seed replays the whole session.
type PolicyAgent struct {
	name string
	rnd  *rand.Rand
}

func NewPolicyAgent(name string, seed int64) *PolicyAgent {
	return &PolicyAgent{name: name, rnd: rand.New(rand.NewSource(seed))}
}

func (p *PolicyAgent) Name() string { return p.name }

func (p *PolicyAgent) Decide(_ context.Context, obs Observation) (Action, error) {
	has := func(a game.ActionType) bool {
		for _, l := range obs.Legal {
			if l == string(a) {
				return true
			}
		}
		return false
	}
	roll := p.rnd.Intn(10)
	if obs.ToCall == 0 {
		// free to see the next card most of the time
		if roll < 7 {
			return Action{Type: game.ActionCheck}, nil
		}
		if has(game.ActionBet) {
			return Action{Type: game.ActionBet, Amount: obs.MinRaiseTo}, nil
		}
		if has(game.ActionRaise) {
			return Action{Type: game.ActionRaise, Amount: obs.MinRaiseTo}, nil
		}
		return Action{Type: game.ActionCheck}, nil
	}
	canRaise := has(game.ActionRaise)
	switch {
	case obs.ToCall*2 <= obs.Pot:
		// cheap price, mostly continue
		if roll < 2 && canRaise {
			return Action{Type: game.ActionRaise, Amount: obs.MinRaiseTo}, nil
		}
		if roll < 9 {
			return Action{Type: game.ActionCall}, nil
		}
		return Action{Type: game.ActionFold}, nil
	case obs.ToCall <= obs.Pot:
		if roll < 6 {
			return Action{Type: game.ActionCall}, nil
		}
		return Action{Type: game.ActionFold}, nil
	default:
		if roll < 3 {
			return Action{Type: game.ActionCall}, nil
		}
		return Action{Type: game.ActionFold}, nil
	}
}
