package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ameline/sealbox/internal/command"
	"github.com/ameline/sealbox/internal/vault"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Vault      *vault.Vault
	Dispatcher *command.Dispatcher
	Version    string
}

// NewMCPServer creates an MCP server exposing the vault to assistants.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"sealbox",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("sealbox — a local vault of messages sealed for your future self. Messages stay closed until their delivery date."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("vault_counts",
			mcp.WithDescription("Count messages in the vault: total, still pending, and ready to open."),
		),
		mcpVaultCounts(deps),
	)

	s.AddTool(
		mcp.NewTool("list_messages",
			mcp.WithDescription("List all sealed and delivered messages with their delivery dates. Payloads are not included."),
		),
		mcpListMessages(deps),
	)

	s.AddTool(
		mcp.NewTool("open_message",
			mcp.WithDescription("Open a message whose delivery date has arrived. Fails while the message is still sealed."),
			mcp.WithString("id", mcp.Description("Message ID"), mcp.Required()),
		),
		mcpOpenMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("dispatch_command",
			mcp.WithDescription("Interpret a free-form utterance as a vault command using fuzzy matching."),
			mcp.WithString("utterance", mcp.Description("The spoken or typed command"), mcp.Required()),
		),
		mcpDispatchCommand(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"vault://summary",
			"Vault Summary",
			mcp.WithResourceDescription("Current vault counts as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSummary(deps),
	)

	return s
}

func mcpVaultCounts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		counts, err := deps.Vault.Counts(time.Time{})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to count messages: %v", err)), nil
		}
		b, err := json.Marshal(counts)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal counts: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListMessages(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msgs, err := deps.Vault.List()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list messages: %v", err)), nil
		}
		if len(msgs) == 0 {
			return mcpText("[]"), nil
		}

		type entry struct {
			ID         string    `json:"id"`
			Type       string    `json:"type"`
			Note       string    `json:"note,omitempty"`
			CreatedAt  time.Time `json:"created_at"`
			DeliveryAt time.Time `json:"delivery_at"`
			Status     string    `json:"status"`
			Remaining  string    `json:"remaining"`
		}
		entries := make([]entry, len(msgs))
		for i, m := range msgs {
			entries[i] = entry{
				ID:         m.ID,
				Type:       m.Type,
				Note:       m.Note,
				CreatedAt:  m.CreatedAt,
				DeliveryAt: m.DeliveryAt,
				Status:     m.Status,
				Remaining:  vault.FormatRemaining(deps.Vault.Remaining(m)),
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal messages: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpOpenMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		m, err := deps.Vault.View(id)
		if err != nil {
			return mcpError(fmt.Sprintf("cannot open message: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"id":           m.ID,
			"type":         m.Type,
			"note":         m.Note,
			"mime_type":    m.MimeType,
			"content":      base64.StdEncoding.EncodeToString(m.Payload),
			"prep_context": m.PrepContext,
			"created_at":   m.CreatedAt,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal message: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpDispatchCommand(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		utterance, err := req.RequireString("utterance")
		if err != nil {
			return mcpError("utterance is required"), nil
		}

		res := deps.Dispatcher.Dispatch(utterance)
		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceSummary(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		counts, err := deps.Vault.Counts(time.Time{})
		if err != nil {
			return nil, fmt.Errorf("failed to count messages: %w", err)
		}
		b, err := json.Marshal(counts)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal counts: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "vault://summary",
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
