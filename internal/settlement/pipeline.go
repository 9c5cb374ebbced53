package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"stakepit/internal/config"
	"stakepit/internal/ledger"
	"stakepit/internal/store"
)

// Stage names the pipeline steps for error reporting.
type Stage string

const (
	StageFunding      Stage = "funding"
	StageRegistration Stage = "registration"
	StagePayout       Stage = "payout"
)

// ErrNotConfigured marks settlement calls on a deployment without a
// gateway. The arena treats it as "skip the stage"; the API surfaces
// it as service unavailable.
var ErrNotConfigured = errors.New("settlement_not_configured")

// StageError ties a failure to the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("settlement %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

var registrationRetryDelay = 2 * time.Second

// Account lifecycle statuses.
const (
	accountCreated = "created"
	accountFunded  = "funded"
	accountFailed  = "failed"
	accountSettled = "settled"
)

// Pipeline runs the session's value stages against the gateway and
// books every movement in the ledger. A pipeline without a gateway
// client reports ErrNotConfigured from every stage.
type Pipeline struct {
	client *GatewayClient
	ledger *ledger.Ledger
	store  *store.Store
	cfg    config.SettlementConfig
}

func NewPipeline(client *GatewayClient, led *ledger.Ledger, st *store.Store, cfg config.SettlementConfig) *Pipeline {
	if cfg.ChipsPerUnit <= 0 {
		cfg.ChipsPerUnit = 1000
	}
	return &Pipeline{client: client, ledger: led, store: st, cfg: cfg}
}

func (p *Pipeline) Enabled() bool {
	return p != nil && p.client != nil
}

// PerAgentAmount converts one agent's starting chips into settlement
// units, never below one unit.
func (p *Pipeline) PerAgentAmount(startingChips int64) int64 {
	per := startingChips / p.cfg.ChipsPerUnit
	if per <= 0 {
		per = 1
	}
	return per
}

// FundingAmount is the total escrow the session needs up front.
func (p *Pipeline) FundingAmount(startingChips int64, numAgents int) int64 {
	return p.PerAgentAmount(startingChips) * int64(numAgents)
}

// FundSession runs the funding stage: it opens the payment account,
// books one pending funding record per agent and asks the gateway to
// move the escrow. Funding failures are final; there is no blind
// retry against a money-moving endpoint.
func (p *Pipeline) FundSession(ctx context.Context, sessionID string, agents []string, startingChips int64) ([]Receipt, error) {
	if !p.Enabled() {
		return nil, ErrNotConfigured
	}
	perAgent := p.PerAgentAmount(startingChips)
	total := perAgent * int64(len(agents))
	p.upsertAccount(ctx, sessionID, total, accountCreated)

	recs := make([]ledger.Record, 0, len(agents))
	for _, agentName := range agents {
		rec, err := p.ledger.Record(ctx, ledger.Transfer{
			SessionID:   sessionID,
			FromAgent:   p.cfg.DepositAddress,
			ToAgent:     agentName,
			AmountChips: startingChips,
			AmountValue: perAgent,
			Kind:        ledger.KindFunding,
		})
		if err != nil {
			return nil, &StageError{Stage: StageFunding, Err: err}
		}
		_ = p.ledger.MarkProcessing(ctx, rec.ID)
		recs = append(recs, rec)
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()
	receipts, err := p.client.Fund(stageCtx, sessionID, agents, total)
	if err != nil {
		for _, rec := range recs {
			_ = p.ledger.Fail(ctx, rec.ID, err.Error())
		}
		p.setAccountStatus(ctx, sessionID, accountFailed)
		return nil, &StageError{Stage: StageFunding, Err: err}
	}
	byRecipient := make(map[string]Receipt, len(receipts))
	for _, r := range receipts {
		byRecipient[r.Recipient] = r
	}
	for i, rec := range recs {
		sig := ""
		if r, ok := byRecipient[agents[i]]; ok {
			sig = r.Signature
		} else if len(receipts) > 0 {
			sig = receipts[0].Signature
		}
		_ = p.ledger.Confirm(ctx, rec.ID, sig)
	}
	p.setAccountStatus(ctx, sessionID, accountFunded)
	return receipts, nil
}

// RegisterSession announces the lobby to the gateway. Registration is
// idempotent on the gateway side, so a transport failure gets one
// retry; a definitive 4xx does not.
func (p *Pipeline) RegisterSession(ctx context.Context, sessionID string, params SessionParams) (string, error) {
	if !p.Enabled() {
		return "", ErrNotConfigured
	}
	ref, err := p.registerOnce(ctx, sessionID, params)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			return "", &StageError{Stage: StageRegistration, Err: err}
		}
		log.Warn().Err(err).Str("session_id", sessionID).Msg("lobby registration failed, retrying once")
		select {
		case <-ctx.Done():
			return "", &StageError{Stage: StageRegistration, Err: ctx.Err()}
		case <-time.After(registrationRetryDelay):
		}
		ref, err = p.registerOnce(ctx, sessionID, params)
		if err != nil {
			return "", &StageError{Stage: StageRegistration, Err: err}
		}
	}
	if ref != "" && p.store.Enabled() {
		if err := p.store.SetLobbyRegistration(ctx, sessionID, ref); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("persisting registration ref failed")
		}
	}
	return ref, nil
}

func (p *Pipeline) registerOnce(ctx context.Context, sessionID string, params SessionParams) (string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()
	return p.client.Register(stageCtx, sessionID, params)
}

// Payout runs the distribution stage for the session winner. The
// ledger record survives a failure so the movement can be retried
// through the distribution trigger.
func (p *Pipeline) Payout(ctx context.Context, sessionID, winner string, amountChips, amountValue int64) ([]Receipt, error) {
	if !p.Enabled() {
		return nil, ErrNotConfigured
	}
	rec, err := p.ledger.Record(ctx, ledger.Transfer{
		SessionID:   sessionID,
		FromAgent:   p.cfg.DepositAddress,
		ToAgent:     winner,
		AmountChips: amountChips,
		AmountValue: amountValue,
		Kind:        ledger.KindPayout,
	})
	if err != nil {
		return nil, &StageError{Stage: StagePayout, Err: err}
	}
	_ = p.ledger.MarkProcessing(ctx, rec.ID)

	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()
	receipts, err := p.client.Distribute(stageCtx, sessionID, winner)
	if err != nil {
		_ = p.ledger.Fail(ctx, rec.ID, err.Error())
		return nil, &StageError{Stage: StagePayout, Err: err}
	}
	sig := ""
	if len(receipts) > 0 {
		sig = receipts[0].Signature
	}
	_ = p.ledger.Confirm(ctx, rec.ID, sig)
	p.setAccountStatus(ctx, sessionID, accountSettled)
	return receipts, nil
}

// CreatePaymentAccount opens the session's escrow account row if it
// does not exist yet. The bool reports whether it was created now.
func (p *Pipeline) CreatePaymentAccount(ctx context.Context, sessionID string, totalAmount int64) (*store.PaymentAccount, bool, error) {
	if !p.Enabled() {
		return nil, false, ErrNotConfigured
	}
	existing, err := p.store.GetPaymentAccount(ctx, sessionID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}
	acct := store.PaymentAccount{
		SessionID:   sessionID,
		Address:     p.cfg.DepositAddress,
		TotalAmount: totalAmount,
		Status:      accountCreated,
	}
	if err := p.store.UpsertPaymentAccount(ctx, acct); err != nil {
		return nil, false, err
	}
	fresh, err := p.store.GetPaymentAccount(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}

func (p *Pipeline) upsertAccount(ctx context.Context, sessionID string, total int64, status string) {
	if !p.store.Enabled() {
		return
	}
	acct := store.PaymentAccount{
		SessionID:   sessionID,
		Address:     p.cfg.DepositAddress,
		TotalAmount: total,
		Status:      status,
	}
	if err := p.store.UpsertPaymentAccount(ctx, acct); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("payment account upsert failed")
	}
}

func (p *Pipeline) setAccountStatus(ctx context.Context, sessionID, status string) {
	if !p.store.Enabled() {
		return
	}
	if err := p.store.SetPaymentAccountStatus(ctx, sessionID, status); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("status", status).Msg("payment account status update failed")
	}
}
