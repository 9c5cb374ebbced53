package control

import (
	"stakepit/internal/ledger"
	"stakepit/internal/settlement"
	"stakepit/internal/store"
)

// StopResult reports whether a stop request landed and which session
// it landed on.
type StopResult struct {
	Stopped   bool   `json:"stopped"`
	SessionID string `json:"session_id,omitempty"`
}

type SessionList struct {
	Items  []store.Lobby `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type SessionDetail struct {
	Lobby    *store.Lobby           `json:"lobby"`
	Snapshot *store.SessionSnapshot `json:"snapshot,omitempty"`
}

type TransactionList struct {
	SessionID    string          `json:"session_id"`
	Transactions []ledger.Record `json:"transactions"`
	Count        int             `json:"count"`
}

type DistributionResult struct {
	SessionID string               `json:"session_id"`
	Winner    string               `json:"winner"`
	Receipts  []settlement.Receipt `json:"receipts"`
}
