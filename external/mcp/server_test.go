package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/foxseedlab/meetbot/internal/session"
	"github.com/foxseedlab/meetbot/internal/transcriber"
	mcplib "github.com/mark3labs/mcp-go/mcp"
)

type fakeMeetings struct {
	records   []repository.Meeting
	snapshots map[int64]session.Snapshot
	lastLimit int
}

func (f *fakeMeetings) ListRecent(_ context.Context, limit int) ([]repository.Meeting, error) {
	f.lastLimit = limit
	return f.records, nil
}

func (f *fakeMeetings) GetStatus(_ context.Context, id int64) (session.Snapshot, error) {
	snap, ok := f.snapshots[id]
	if !ok {
		return session.Snapshot{}, session.ErrSessionNotFound
	}
	return snap, nil
}

type fakeMemory struct {
	searchErr error
	limit     int
}

func (m *fakeMemory) StoreMeeting(context.Context, memory.MeetingContent) (int, error) {
	return 0, nil
}

func (m *fakeMemory) Search(_ context.Context, q string, limit int) ([]memory.SearchHit, error) {
	m.limit = limit
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return []memory.SearchHit{{DocumentID: "meeting_1_decision_0", MeetingID: 1, Kind: memory.KindDecision, Snippet: "Ship on Friday", Score: 0.5}}, nil
}

func (m *fakeMemory) Ask(_ context.Context, q string) (memory.Answer, error) {
	return memory.Answer{Question: q, Answer: "Friday.", Sources: []memory.SearchHit{}}, nil
}

func (m *fakeMemory) DeleteMeeting(context.Context, int64) error {
	return nil
}

func (m *fakeMemory) History(context.Context, int) ([]memory.MeetingEntry, error) {
	return nil, nil
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	var req mcplib.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcplib.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("expected tool content")
	}
	switch c := res.Content[0].(type) {
	case mcplib.TextContent:
		return c.Text
	case *mcplib.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func decodeResult(t *testing.T, res *mcplib.CallToolResult) map[string]any {
	t.Helper()
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return out
}

func TestRecentMeetings(t *testing.T) {
	meetings := &fakeMeetings{records: []repository.Meeting{{ID: 2, Platform: "google_meet", DurationSeconds: 125}}}
	s := NewServer(meetings, nil)

	res, err := s.recentMeetings(context.Background(), callRequest("recent_meetings", map[string]any{"limit": float64(500)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeResult(t, res)
	list := out["meetings"].([]any)
	first := list[0].(map[string]any)
	if first["platform"] != "Google Meet" || first["duration"] != "2m 5s" {
		t.Fatalf("unexpected meeting: %+v", first)
	}
	if meetings.lastLimit != session.MaxRecentLimit {
		t.Fatalf("expected clamped limit, got %d", meetings.lastLimit)
	}
}

func TestGetMeeting(t *testing.T) {
	meetings := &fakeMeetings{snapshots: map[int64]session.Snapshot{
		1: {
			ID:        1,
			State:     session.StateCompleted,
			Platform:  "zoom",
			StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Outputs: session.Outputs{
				Transcript: &transcriber.Transcript{Text: "we ship friday"},
				Summary: &session.StageResult[analysis.Summary]{
					Status: session.StageSucceeded,
					Value:  analysis.Summary{ExecutiveSummary: "Release planning.", ActionItems: []analysis.ActionItem{{Task: "Write notes"}}},
				},
			},
		},
	}}
	s := NewServer(meetings, nil)

	res, err := s.getMeeting(context.Background(), callRequest("get_meeting", map[string]any{"id": float64(1)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeResult(t, res)
	if out["status"] != "completed" || out["executive_summary"] != "Release planning." || out["transcript"] != "we ship friday" {
		t.Fatalf("unexpected meeting: %+v", out)
	}
	if len(out["action_items"].([]any)) != 1 {
		t.Fatalf("expected summary action items, got %+v", out["action_items"])
	}

	res, _ = s.getMeeting(context.Background(), callRequest("get_meeting", map[string]any{"id": float64(9)}))
	if !res.IsError {
		t.Fatal("expected error result for unknown meeting")
	}
	res, _ = s.getMeeting(context.Background(), callRequest("get_meeting", map[string]any{}))
	if !res.IsError {
		t.Fatal("expected error result without id")
	}
}

func TestMemoryTools(t *testing.T) {
	mem := &fakeMemory{}
	s := NewServer(&fakeMeetings{}, mem)

	res, err := s.searchMemory(context.Background(), callRequest("search_memory", map[string]any{"query": "release"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeResult(t, res)
	if len(out["results"].([]any)) != 1 || mem.limit != defaultSearchLimit {
		t.Fatalf("unexpected search result: %+v limit %d", out, mem.limit)
	}

	res, _ = s.askMemory(context.Background(), callRequest("ask_memory", map[string]any{"question": "when?"}))
	if out := decodeResult(t, res); out["answer"] != "Friday." {
		t.Fatalf("unexpected answer: %+v", out)
	}

	mem.searchErr = errors.New("database is locked")
	res, _ = s.searchMemory(context.Background(), callRequest("search_memory", map[string]any{"query": "release"}))
	if !res.IsError {
		t.Fatal("expected error result")
	}
}

func TestMemoryToolsWithoutIndex(t *testing.T) {
	s := NewServer(&fakeMeetings{}, nil)
	res, _ := s.askMemory(context.Background(), callRequest("ask_memory", map[string]any{"question": "when?"}))
	if !res.IsError || resultText(t, res) != memory.UnavailableAnswer {
		t.Fatalf("expected unavailable error, got %+v", res)
	}
}
