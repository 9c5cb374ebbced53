package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSettlementTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_session_transactions",
			mcp.WithDescription("List settlement transactions for a session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleListSessionTransactions,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_payment_account",
			mcp.WithDescription("Get the payment account for a session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleGetPaymentAccount,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"trigger_distribution",
			mcp.WithDescription("Pay out a finished session to its winner"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("winner", mcp.Description("Winner agent name, defaults to the session's top ranking")),
		),
		s.handleTriggerDistribution,
	)
}

func (s *Server) handleListSessionTransactions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.svc.ListTransactions(ctx, sessionID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetPaymentAccount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.svc.PaymentAccount(ctx, sessionID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleTriggerDistribution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	winner := request.GetString("winner", "")

	resp, svcErr := s.svc.TriggerDistribution(ctx, sessionID, winner)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}
