package arena

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"stakepit/internal/agent"
	"stakepit/internal/broadcast"
	"stakepit/internal/game"
	"stakepit/internal/ledger"
	"stakepit/internal/settlement"
)

const (
	recentActionWindow = 12
	chatExcerptLines   = 6
)

// table carries chips and elimination order across hands. The hand
// loop is its only writer.
type table struct {
	names  []string
	chips  []int64
	elimAt []int // hand number of the bust, 0 while solvent
	button int
}

func newTable(cfg Config) *table {
	t := &table{
		names:  append([]string(nil), cfg.ModelNames...),
		chips:  make([]int64, len(cfg.ModelNames)),
		elimAt: make([]int, len(cfg.ModelNames)),
	}
	for i := range t.chips {
		t.chips[i] = cfg.StartingChips
	}
	return t
}

func (t *table) solventCount() int {
	n := 0
	for _, c := range t.chips {
		if c > 0 {
			n++
		}
	}
	return n
}

func (t *table) nextSolvent(from int) int {
	for i := 1; i <= len(t.names); i++ {
		seat := (from + i) % len(t.names)
		if t.chips[seat] > 0 {
			return seat
		}
	}
	return from
}

func (t *table) markBusts(handNumber int) {
	for i, c := range t.chips {
		if c == 0 && t.elimAt[i] == 0 {
			t.elimAt[i] = handNumber
		}
	}
}

// run is the session's single hand-loop goroutine. It terminates at
// MaxHands, when fewer than two agents hold chips, or when the stop
// flag is observed at a hand boundary. It always publishes and
// persists a final stopped snapshot; only natural completion triggers
// the payout stage.
func (o *Orchestrator) run(sess *session) {
	defer o.release(sess)

	rnd := rand.New(rand.NewSource(sess.seed))
	t := newTable(sess.cfg)
	t.button = len(t.names) - 1 // first hand puts the button on the last seat, blinds on 0/1

	byName := make(map[string]agent.Agent, len(sess.agents))
	for _, ag := range sess.agents {
		byName[ag.Name()] = ag
	}

	var (
		stats    Stats
		chat     []ChatMessage
		lastHand *game.Result
		loopErr  string
	)

	handNumber := 0
	stopped := false
	for {
		if sess.stop.Load() {
			stopped = true
			break
		}
		if handNumber >= sess.cfg.MaxHands || t.solventCount() < 2 {
			break
		}
		handNumber++

		result, err := o.playHand(sess, t, byName, rnd, handNumber, &stats, &chat)
		if err != nil {
			loopErr = err.Error()
			log.Error().Err(err).Str("session_id", sess.id).Int("hand", handNumber).Msg("hand aborted")
			handNumber--
			break
		}
		lastHand = result
		t.markBusts(handNumber)
		t.button = t.nextSolvent(t.button)
		stats.HandsPlayed++
		stats.TotalPot += result.Pot
		metricHandsPlayed.Add(1)

		o.recordTransfers(sess.id, handNumber, result.Deltas, t.names)

		snap := o.buildSnapshot(sess, t, StatusRunning, handNumber, stats, chat, lastHand, loopErr)
		o.publish(snap)
		o.persistSnapshot(context.Background(), snap)
		o.pub.Publish(broadcast.Event{Type: "hand_completed", SessionID: sess.id, Data: result})

		if o.cfg.HandInterval > 0 && !sess.stop.Load() {
			time.Sleep(o.cfg.HandInterval)
		}
	}

	natural := !stopped && loopErr == ""
	if natural {
		loopErr = o.payout(sess, t, stats)
	}

	snap := o.buildSnapshot(sess, t, StatusStopped, handNumber, stats, chat, lastHand, loopErr)
	o.publish(snap)
	o.persistSnapshot(context.Background(), snap)
	o.setLobbyStatus(context.Background(), sess.id, StatusStopped)

	reason := "completed"
	if stopped {
		reason = "stopped"
	}
	o.pub.Publish(broadcast.Event{Type: "session_ended", SessionID: sess.id, Data: map[string]any{
		"reason":       reason,
		"hands_played": stats.HandsPlayed,
	}})
}

func (o *Orchestrator) playHand(sess *session, t *table, byName map[string]agent.Agent, rnd *rand.Rand, handNumber int, stats *Stats, chat *[]ChatMessage) (*game.Result, error) {
	seatMap := make([]int, 0, len(t.names))
	names := make([]string, 0, len(t.names))
	stacks := make([]int64, 0, len(t.names))
	button := 0
	for i, name := range t.names {
		if t.chips[i] <= 0 {
			continue
		}
		if i == t.button {
			button = len(names)
		}
		seatMap = append(seatMap, i)
		names = append(names, name)
		stacks = append(stacks, t.chips[i])
	}

	deck := game.NewDeck()
	deck.Shuffle(rnd)
	h, err := game.NewHand(game.HandConfig{
		Number:     handNumber,
		Names:      names,
		Stacks:     stacks,
		Button:     button,
		SmallBlind: sess.cfg.SmallBlind,
		BigBlind:   sess.cfg.BigBlind,
	}, deck)
	if err != nil {
		return nil, err
	}

	for !h.Finished() {
		seat := h.ToAct
		obs := agent.BuildObservation(sess.id, h, recentActionWindow, chatLines(*chat, chatExcerptLines))
		act, err := o.decide(byName[obs.Name], obs)
		if err != nil {
			stats.AgentTimeouts++
			metricAgentTimeouts.Add(1)
			log.Warn().Err(err).Str("session_id", sess.id).Str("agent", obs.Name).Int("hand", handNumber).Msg("agent decision fell back")
			act = agent.Action{Type: fallbackAction(h)}
		}
		if act.Comment != "" {
			*chat = appendChat(*chat, ChatMessage{HandNumber: handNumber, Name: obs.Name, Text: act.Comment}, o.chatLimit())
		}
		if err := h.Apply(seat, act.Type, act.Amount); err != nil {
			log.Warn().Err(err).Str("session_id", sess.id).Str("agent", obs.Name).Str("action", string(act.Type)).Msg("illegal action replaced")
			_ = h.Apply(seat, fallbackAction(h), 0)
		}
	}

	result, err := h.Settle()
	if err != nil {
		return nil, err
	}
	for i, seat := range seatMap {
		t.chips[seat] += result.Deltas[names[i]]
	}
	return result, nil
}

func (o *Orchestrator) decide(ag agent.Agent, obs agent.Observation) (agent.Action, error) {
	if ag == nil {
		return agent.Action{}, errors.New("no agent for seat")
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.actionTimeout())
	defer cancel()
	return ag.Decide(ctx, obs)
}

func fallbackAction(h *game.Hand) game.ActionType {
	if h.CallAmount() == 0 {
		return game.ActionCheck
	}
	return game.ActionFold
}

func appendChat(chat []ChatMessage, msg ChatMessage, limit int) []ChatMessage {
	chat = append(chat, msg)
	if len(chat) > limit {
		chat = chat[len(chat)-limit:]
	}
	return chat
}

func chatLines(chat []ChatMessage, n int) []string {
	if len(chat) > n {
		chat = chat[len(chat)-n:]
	}
	out := make([]string, 0, len(chat))
	for _, m := range chat {
		out = append(out, m.Name+": "+m.Text)
	}
	return out
}

// recordTransfers books the hand's net chip movements as completed
// loser→winner ledger entries. Greedy matching in seat order keeps the
// decomposition deterministic.
func (o *Orchestrator) recordTransfers(sessionID string, handNumber int, deltas map[string]int64, names []string) {
	type flow struct {
		name   string
		amount int64
	}
	var losers, winners []flow
	for _, name := range names {
		switch d := deltas[name]; {
		case d < 0:
			losers = append(losers, flow{name, -d})
		case d > 0:
			winners = append(winners, flow{name, d})
		}
	}
	w := 0
	for _, l := range losers {
		remaining := l.amount
		for remaining > 0 && w < len(winners) {
			amt := remaining
			if amt > winners[w].amount {
				amt = winners[w].amount
			}
			rec, err := o.ledger.Record(context.Background(), ledger.Transfer{
				SessionID:   sessionID,
				HandNumber:  handNumber,
				FromAgent:   l.name,
				ToAgent:     winners[w].name,
				AmountChips: amt,
				Kind:        ledger.KindTransfer,
			})
			if err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("transfer record failed")
			} else {
				_ = o.ledger.Confirm(context.Background(), rec.ID, "")
			}
			remaining -= amt
			winners[w].amount -= amt
			if winners[w].amount == 0 {
				w++
			}
		}
	}
}

// payout runs the distribution stage for the session winner and
// returns a loop error string when the stage fails. The game result
// stands either way; a failed payout stays in the ledger for the
// distribution trigger to retry.
func (o *Orchestrator) payout(sess *session, t *table, stats Stats) string {
	rankings := computeRankings(t)
	if len(rankings) == 0 {
		return ""
	}
	winner := rankings[0]
	value := int64(0)
	if o.pipeline.Enabled() {
		value = o.pipeline.FundingAmount(sess.cfg.StartingChips, len(sess.cfg.ModelNames))
	}
	receipts, err := o.pipeline.Payout(context.Background(), sess.id, winner.Name, winner.Chips, value)
	switch {
	case err == nil:
		o.pub.Publish(broadcast.Event{Type: "winnings_distributed", SessionID: sess.id, Data: map[string]any{
			"winner":   winner.Name,
			"chips":    winner.Chips,
			"receipts": receipts,
		}})
		return ""
	case errors.Is(err, settlement.ErrNotConfigured):
		log.Info().Str("session_id", sess.id).Str("winner", winner.Name).Int("hands", stats.HandsPlayed).Msg("no gateway, winnings stay off-chain")
		return ""
	default:
		log.Error().Err(err).Str("session_id", sess.id).Str("winner", winner.Name).Msg("payout stage failed")
		return "payout failed: " + err.Error()
	}
}

func (o *Orchestrator) buildSnapshot(sess *session, t *table, status string, handNumber int, stats Stats, chat []ChatMessage, lastHand *game.Result, lastErr string) *Snapshot {
	seats := make([]SeatState, len(t.names))
	for i, name := range t.names {
		seats[i] = SeatState{Seat: i, Name: name, Chips: t.chips[i], Eliminated: t.elimAt[i] > 0}
	}
	return &Snapshot{
		SessionID:  sess.id,
		Status:     status,
		HandNumber: handNumber,
		Config:     sess.cfg,
		Button:     t.button,
		Seats:      seats,
		Rankings:   computeRankings(t),
		Stats:      stats,
		LastHand:   lastHand,
		ChatLog:    append([]ChatMessage(nil), chat...),
		LastError:  lastErr,
	}
}

func computeRankings(t *table) []Ranking {
	idx := make([]int, len(t.names))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		aliveA, aliveB := t.elimAt[ia] == 0, t.elimAt[ib] == 0
		if aliveA != aliveB {
			return aliveA
		}
		if aliveA {
			return t.chips[ia] > t.chips[ib]
		}
		return t.elimAt[ia] > t.elimAt[ib]
	})
	out := make([]Ranking, len(idx))
	for rank, i := range idx {
		out[rank] = Ranking{Rank: rank + 1, Name: t.names[i], Chips: t.chips[i], EliminatedHand: t.elimAt[i]}
	}
	return out
}
