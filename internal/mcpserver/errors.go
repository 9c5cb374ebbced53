package mcpserver

import (
	"errors"

	"stakepit/internal/app/control"
	"stakepit/internal/arena"
	"stakepit/internal/settlement"
	"stakepit/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

// toolError reports a failure as structured content so callers can
// branch on the code, with a plain-text fallback for clients that only
// render text.
func toolError(code, message string) *mcp.CallToolResult {
	body := map[string]any{"error": map[string]any{"code": code, "message": message}}
	res := mcp.NewToolResultStructured(body, code+": "+message)
	res.IsError = true
	return res
}

// mapDomainError translates service errors into tool errors with the
// same codes the HTTP surface uses.
func mapDomainError(err error) *mcp.CallToolResult {
	var verr *arena.ValidationError
	var cerr *arena.ConflictError
	var serr *settlement.StageError
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case errors.As(err, &verr):
		return toolError("invalid_request", err.Error())
	case errors.As(err, &cerr):
		return toolError("session_conflict", err.Error())
	case errors.Is(err, control.ErrSessionRunning):
		return toolError("session_running", err.Error())
	case errors.Is(err, control.ErrUnknownSession), errors.Is(err, store.ErrNotFound):
		return toolError("not_found", err.Error())
	case errors.Is(err, control.ErrNoWinner):
		return toolError("winner_unresolved", err.Error())
	case errors.Is(err, settlement.ErrNotConfigured):
		return toolError("settlement_not_configured", err.Error())
	case errors.Is(err, store.ErrNotConfigured):
		return toolError("store_not_configured", err.Error())
	case errors.As(err, &serr):
		return toolError(stageErrorCode(serr), err.Error())
	default:
		return toolError("internal_error", err.Error())
	}
}

func stageErrorCode(serr *settlement.StageError) string {
	switch serr.Stage {
	case settlement.StageFunding:
		return "funding_failed"
	case settlement.StagePayout:
		return "distribution_failed"
	default:
		return "settlement_failed"
	}
}
