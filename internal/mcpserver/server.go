// Package mcpserver exposes the session and settlement operations as
// MCP tools over streamable HTTP, so agent frameworks can drive the
// arena without speaking the REST API.
package mcpserver

import (
	"net/http"

	"stakepit/internal/app/control"

	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	svc *control.Service

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(svc *control.Service) *Server {
	mcpSrv := server.NewMCPServer(
		"stakepit",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s := &Server{
		svc:        svc,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerSessionTools()
	s.registerSettlementTools()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}
