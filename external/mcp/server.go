package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/foxseedlab/meetbot/internal/session"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName         = "meetbot"
	serverVersion      = "1.0.0"
	transcriptPreview  = 2000
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

// Meetings is the read side of the session manager.
type Meetings interface {
	ListRecent(ctx context.Context, limit int) ([]repository.Meeting, error)
	GetStatus(ctx context.Context, id int64) (session.Snapshot, error)
}

type Server struct {
	meetings Meetings
	memory   memory.Index
	mcp      *server.MCPServer
}

func NewServer(meetings Meetings, mem memory.Index) *Server {
	s := &Server{
		meetings: meetings,
		memory:   mem,
		mcp:      server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}
	s.mcp.AddTool(mcplib.NewTool("recent_meetings",
		mcplib.WithDescription("List recently recorded meetings, newest first."),
		mcplib.WithNumber("limit", mcplib.Description("Maximum number of meetings (default 10, max 100).")),
	), s.recentMeetings)
	s.mcp.AddTool(mcplib.NewTool("get_meeting",
		mcplib.WithDescription("Get the status, summary and action items of one meeting."),
		mcplib.WithNumber("id", mcplib.Required(), mcplib.Description("Meeting or session id.")),
	), s.getMeeting)
	s.mcp.AddTool(mcplib.NewTool("search_memory",
		mcplib.WithDescription("Search transcripts, summaries, decisions and action items of past meetings."),
		mcplib.WithString("query", mcplib.Required(), mcplib.Description("Search text.")),
		mcplib.WithNumber("limit", mcplib.Description("Maximum number of results (default 5).")),
	), s.searchMemory)
	s.mcp.AddTool(mcplib.NewTool("ask_memory",
		mcplib.WithDescription("Answer a question from the history of past meetings."),
		mcplib.WithString("question", mcplib.Required(), mcplib.Description("Question to answer.")),
	), s.askMemory)
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	slog.Info("mcp server listening on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) recentMeetings(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	limit := req.GetInt("limit", session.DefaultRecentLimit)
	if limit <= 0 {
		limit = session.DefaultRecentLimit
	}
	records, err := s.meetings.ListRecent(ctx, min(limit, session.MaxRecentLimit))
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("list meetings: %v", err)), nil
	}
	type item struct {
		ID        int64     `json:"id"`
		Platform  string    `json:"platform"`
		URL       string    `json:"meeting_url"`
		StartTime time.Time `json:"start_time"`
		Duration  string    `json:"duration"`
		EmailSent bool      `json:"email_sent"`
	}
	items := make([]item, 0, len(records))
	for _, m := range records {
		items = append(items, item{
			ID:        m.ID,
			Platform:  report.PlatformDisplayName(m.Platform),
			URL:       m.MeetingURL,
			StartTime: m.StartTime,
			Duration:  report.FormatDuration(m.DurationSeconds),
			EmailSent: m.EmailSent,
		})
	}
	return jsonResult(map[string]any{"meetings": items})
}

func (s *Server) getMeeting(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	snap, err := s.meetings.GetStatus(ctx, int64(id))
	if errors.Is(err, session.ErrSessionNotFound) {
		return mcplib.NewToolResultError(fmt.Sprintf("meeting %d not found", id)), nil
	}
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("get meeting: %v", err)), nil
	}

	summary := analysis.EmptySummary()
	if snap.Outputs.Summary != nil {
		summary = snap.Outputs.Summary.Value
	}
	items := summary.ActionItems
	if snap.Outputs.ActionItems != nil && len(snap.Outputs.ActionItems.Value.Items) > 0 {
		items = snap.Outputs.ActionItems.Value.Items
	}
	transcript := ""
	if snap.Outputs.Transcript != nil {
		transcript = memory.Snippet(snap.Outputs.Transcript.Text, transcriptPreview)
	}
	return jsonResult(map[string]any{
		"id":                snap.ID,
		"status":            snap.Status(),
		"platform":          snap.Platform.DisplayName(),
		"meeting_url":       snap.MeetingURL,
		"start_time":        snap.StartedAt,
		"duration":          report.FormatDuration(snap.DurationSeconds),
		"executive_summary": summary.ExecutiveSummary,
		"key_points":        summary.KeyPoints,
		"decisions":         summary.Decisions,
		"action_items":      items,
		"transcript":        transcript,
		"pdf_path":          snap.Outputs.ReportPath,
		"error":             snap.Error,
	})
}

func (s *Server) searchMemory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.memory == nil {
		return mcplib.NewToolResultError(memory.UnavailableAnswer), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	hits, err := s.memory.Search(ctx, query, min(limit, maxSearchLimit))
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("search memory: %v", err)), nil
	}
	if hits == nil {
		hits = []memory.SearchHit{}
	}
	return jsonResult(map[string]any{"query": query, "results": hits})
}

func (s *Server) askMemory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.memory == nil {
		return mcplib.NewToolResultError(memory.UnavailableAnswer), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	answer, err := s.memory.Ask(ctx, question)
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("ask memory: %v", err)), nil
	}
	return jsonResult(answer)
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcplib.NewToolResultText(string(b)), nil
}
