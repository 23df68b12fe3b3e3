package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
)

// Server exposes the bridge operator API as MCP tools
type Server struct {
	server *mcp.Server
	client *Client
}

// NewServer creates the MCP server and registers its tools
func NewServer(client *Client, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "autoreply-tools",
			Version: version,
		}, nil),
		client: client,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "autoreply_status",
		Description: "Get the auto-reply bridge status: uptime, WhatsApp connection, pending replies and muted chats.",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "autoreply_list_pending",
		Description: "List inbound messages waiting for their delayed automated reply.",
	}, s.handleListPending)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "autoreply_list_mutes",
		Description: "List chats where automated replies are currently paused, with expiry times.",
	}, s.handleListMutes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "autoreply_pause",
		Description: "Pause automated replies for a chat. Use when the user says 'stop replying to X', 'I'll handle this chat', etc.",
	}, s.handlePause)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "autoreply_resume",
		Description: "Resume automated replies for a paused chat.",
	}, s.handleResume)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "autoreply_recent_events",
		Description: "Get recent reply decisions (replied, fallback, suppressed, canceled, muted, command).",
	}, s.handleRecentEvents)
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// ============ Inputs and outputs ============

type StatusInput struct{}

type StatusOutput struct {
	StartedAt       string `json:"started_at"`
	Uptime          string `json:"uptime"`
	BridgeConnected bool   `json:"bridge_connected"`
	Pending         int    `json:"pending"`
	Muted           int    `json:"muted"`
	Error           string `json:"error,omitempty"`
}

type ListPendingInput struct{}

type PendingItem struct {
	ChatID     string `json:"chat_id"`
	MessageID  string `json:"message_id"`
	Sender     string `json:"sender"`
	Text       string `json:"text"`
	EnqueuedAt string `json:"enqueued_at"`
}

type ListPendingOutput struct {
	Pending []PendingItem `json:"pending"`
	Error   string        `json:"error,omitempty"`
}

type ListMutesInput struct{}

type MuteItem struct {
	ChatID    string `json:"chat_id"`
	ExpiresAt string `json:"expires_at"`
}

type ListMutesOutput struct {
	Mutes []MuteItem `json:"mutes"`
	Error string     `json:"error,omitempty"`
}

type PauseInput struct {
	ChatID  string `json:"chat_id" jsonschema:"The WhatsApp chat id (JID) to pause, e.g. 15551234567@s.whatsapp.net"`
	Minutes int    `json:"minutes,omitempty" jsonschema:"How long to pause in minutes. Omit to use the bridge default."`
}

type PauseOutput struct {
	Success   bool   `json:"success"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ResumeInput struct {
	ChatID string `json:"chat_id" jsonschema:"The WhatsApp chat id (JID) to resume"`
}

type ResumeOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type RecentEventsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of events to return (default 50)"`
}

type EventItem struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Sender    string `json:"sender,omitempty"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
	At        string `json:"at"`
}

type RecentEventsOutput struct {
	Events []EventItem `json:"events"`
	Error  string      `json:"error,omitempty"`
}

// ============ Handlers ============

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.client.Status(ctx)
	if err != nil {
		return nil, StatusOutput{Error: err.Error()}, nil
	}
	return nil, StatusOutput{
		StartedAt:       formatTime(status.StartedAt),
		Uptime:          status.Uptime,
		BridgeConnected: status.BridgeConnected,
		Pending:         status.Pending,
		Muted:           status.Muted,
	}, nil
}

func (s *Server) handleListPending(ctx context.Context, req *mcp.CallToolRequest, input ListPendingInput) (*mcp.CallToolResult, ListPendingOutput, error) {
	pending, err := s.client.Pending(ctx)
	if err != nil {
		return nil, ListPendingOutput{Pending: []PendingItem{}, Error: err.Error()}, nil
	}

	items := make([]PendingItem, 0, len(pending))
	for _, p := range pending {
		items = append(items, PendingItem{
			ChatID:     p.ChatID,
			MessageID:  p.MessageID,
			Sender:     p.SenderLabel,
			Text:       p.SourceText,
			EnqueuedAt: formatTime(p.EnqueuedAt),
		})
	}
	return nil, ListPendingOutput{Pending: items}, nil
}

func (s *Server) handleListMutes(ctx context.Context, req *mcp.CallToolRequest, input ListMutesInput) (*mcp.CallToolResult, ListMutesOutput, error) {
	mutes, err := s.client.Mutes(ctx)
	if err != nil {
		return nil, ListMutesOutput{Mutes: []MuteItem{}, Error: err.Error()}, nil
	}

	items := make([]MuteItem, 0, len(mutes))
	for _, m := range mutes {
		items = append(items, toMuteItem(m))
	}
	return nil, ListMutesOutput{Mutes: items}, nil
}

func (s *Server) handlePause(ctx context.Context, req *mcp.CallToolRequest, input PauseInput) (*mcp.CallToolResult, PauseOutput, error) {
	if input.ChatID == "" {
		return nil, PauseOutput{Error: "chat_id is required"}, nil
	}

	window, err := s.client.Mute(ctx, input.ChatID, input.Minutes)
	if err != nil {
		return nil, PauseOutput{Error: err.Error()}, nil
	}
	return nil, PauseOutput{Success: true, ExpiresAt: formatTime(window.ExpiresAt)}, nil
}

func (s *Server) handleResume(ctx context.Context, req *mcp.CallToolRequest, input ResumeInput) (*mcp.CallToolResult, ResumeOutput, error) {
	if input.ChatID == "" {
		return nil, ResumeOutput{Error: "chat_id is required"}, nil
	}

	if err := s.client.Unmute(ctx, input.ChatID); err != nil {
		return nil, ResumeOutput{Error: err.Error()}, nil
	}
	return nil, ResumeOutput{Success: true}, nil
}

func (s *Server) handleRecentEvents(ctx context.Context, req *mcp.CallToolRequest, input RecentEventsInput) (*mcp.CallToolResult, RecentEventsOutput, error) {
	events, err := s.client.RecentEvents(ctx, input.Limit)
	if err != nil {
		return nil, RecentEventsOutput{Events: []EventItem{}, Error: err.Error()}, nil
	}

	items := make([]EventItem, 0, len(events))
	for _, e := range events {
		items = append(items, EventItem{
			ChatID:    e.ChatID,
			MessageID: e.MsgID,
			Sender:    e.Sender,
			Outcome:   string(e.Outcome),
			Detail:    e.Detail,
			At:        formatTime(e.CreatedAt),
		})
	}
	return nil, RecentEventsOutput{Events: items}, nil
}

func toMuteItem(m domain.MuteWindow) MuteItem {
	return MuteItem{ChatID: m.ChatID, ExpiresAt: formatTime(m.ExpiresAt)}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
