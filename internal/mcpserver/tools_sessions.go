package mcpserver

import (
	"context"

	"stakepit/internal/arena"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSessionTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"start_session",
			mcp.WithDescription("Start a session with the given agents"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("model_names", mcp.Required(), mcp.Description("Comma-separated agent model names, at least two")),
			mcp.WithNumber("starting_chips", mcp.Description("Chips per agent, default 1000")),
			mcp.WithNumber("small_blind", mcp.Description("Small blind, default 10")),
			mcp.WithNumber("big_blind", mcp.Description("Big blind, default 20")),
			mcp.WithNumber("max_hands", mcp.Description("Hand cap, default 20")),
		),
		s.handleStartSession,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"stop_session",
			mcp.WithDescription("Stop the running session"),
		),
		s.handleStopSession,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_session_state",
			mcp.WithDescription("Get the live session snapshot"),
		),
		s.handleGetSessionState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_sessions",
			mcp.WithDescription("List persisted sessions with pagination"),
			mcp.WithNumber("limit", mcp.Description("Page size, default 50, max 500")),
			mcp.WithNumber("offset", mcp.Description("Page offset, default 0")),
		),
		s.handleListSessions,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_session",
			mcp.WithDescription("Get a persisted session and its final snapshot"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleGetSession,
	)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	rawModels, err := request.RequireString("model_names")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}

	cfg := arena.Config{
		ModelNames:    splitModelNames(rawModels),
		StartingChips: int64(request.GetInt("starting_chips", defaultStartingChips)),
		SmallBlind:    int64(request.GetInt("small_blind", defaultSmallBlind)),
		BigBlind:      int64(request.GetInt("big_blind", defaultBigBlind)),
		MaxHands:      request.GetInt("max_hands", defaultMaxHands),
	}

	res, svcErr := s.svc.StartSession(ctx, sessionID, cfg)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	status := "accepted"
	if res.AlreadyRunning {
		status = "already_running"
	}
	return toolResult(map[string]any{
		"session_id": res.SessionID,
		"status":     status,
	}), nil
}

func (s *Server) handleStopSession(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.svc.StopSession()), nil
}

func (s *Server) handleGetSessionState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.svc.SessionState()), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultPageLimit)
	offset := request.GetInt("offset", 0)
	limit, offset = clampPagination(limit, offset)

	resp, err := s.svc.ListSessions(ctx, limit, offset)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.svc.GetSession(ctx, sessionID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}
