package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	serverauth "github.com/ArcadeAI/mcp-server-auth"
)

const serverVersion = "0.1.0"

func newMCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"mcpauth-demo",
		serverVersion,
		server.WithToolCapabilities(false),
	)

	whoami := mcp.NewTool("whoami",
		mcp.WithDescription("Report the identity asserted by the caller's bearer token"),
	)
	mcpServer.AddTool(whoami, handleWhoami)

	return mcpServer
}

// whoamiResponse is the structured response of the whoami tool.
type whoamiResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Issuer   string `json:"issuer"`
}

// handleWhoami answers with the identity the middleware attached to the
// request context. The tool endpoint sits behind token validation, so a
// missing identity means the server was wired up wrong.
func handleWhoami(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identity, ok := serverauth.IdentityFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("no authenticated identity on this request"), nil
	}

	response := whoamiResponse{
		UserID:   identity.UserID,
		Email:    identity.Email,
		ClientID: identity.ClientID,
		Issuer:   identity.Issuer,
	}

	jsonBytes, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not format identity: %w", err)
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}
