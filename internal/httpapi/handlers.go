package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/foxseedlab/meetbot/internal/session"
)

type joinRequest struct {
	MeetingURL     string `json:"meeting_url"`
	RecipientEmail string `json:"recipient_email"`
	SendEmail      *bool  `json:"send_email"`
}

type joinResponse struct {
	SessionID int64  `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type statusResponse struct {
	SessionID           int64               `json:"session_id"`
	Status              string              `json:"status"`
	State               string              `json:"state"`
	Phase               string              `json:"phase,omitempty"`
	Queued              bool                `json:"queued"`
	Platform            string              `json:"platform"`
	MeetingURL          string              `json:"meeting_url"`
	StartTime           time.Time           `json:"start_time"`
	EndTime             *time.Time          `json:"end_time,omitempty"`
	Duration            string              `json:"duration"`
	TranscriptAvailable bool                `json:"transcript_available"`
	SummaryAvailable    bool                `json:"summary_available"`
	PDFPath             string              `json:"pdf_path"`
	EmailSent           bool                `json:"email_sent"`
	RecordID            int64               `json:"record_id,omitempty"`
	EndReason           string              `json:"end_reason,omitempty"`
	FailureKind         string              `json:"failure_kind,omitempty"`
	Error               string              `json:"error,omitempty"`
	PersistenceError    string              `json:"persistence_error,omitempty"`
	StepErrors          []session.StepError `json:"step_errors,omitempty"`
}

type meetingListItem struct {
	ID         int64     `json:"id"`
	MeetingURL string    `json:"meeting_url"`
	Platform   string    `json:"platform"`
	StartTime  time.Time `json:"start_time"`
	Duration   string    `json:"duration"`
	PDFPath    string    `json:"pdf_path"`
	EmailSent  bool      `json:"email_sent"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"version": ServiceVersion,
		"status":  "healthy",
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.MeetingURL = strings.TrimSpace(req.MeetingURL)
	if req.MeetingURL == "" {
		writeError(w, http.StatusBadRequest, "meeting_url is required")
		return
	}
	sendEmail := req.SendEmail == nil || *req.SendEmail
	snap, err := s.sessions.StartSession(session.Request{
		MeetingURL: req.MeetingURL,
		Recipient:  strings.TrimSpace(req.RecipientEmail),
		SendEmail:  sendEmail,
	})
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{SessionID: snap.ID, Status: snap.Status(), Message: session.StartMessage(snap)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	snap, err := s.sessions.GetStatus(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(snap))
}

func newStatusResponse(snap session.Snapshot) statusResponse {
	resp := statusResponse{
		SessionID:           snap.ID,
		Status:              snap.Status(),
		State:               string(snap.State),
		Phase:               string(snap.Phase),
		Queued:              snap.Queued,
		Platform:            string(snap.Platform),
		MeetingURL:          snap.MeetingURL,
		StartTime:           snap.StartedAt,
		Duration:            report.FormatDuration(snapshotDuration(snap)),
		TranscriptAvailable: snap.Outputs.Transcript != nil,
		SummaryAvailable:    snap.Outputs.Summary != nil,
		PDFPath:             snap.Outputs.ReportPath,
		EmailSent:           snap.EmailSent,
		RecordID:            snap.RecordID,
		EndReason:           string(snap.EndReason),
		FailureKind:         string(snap.FailureKind),
		Error:               snap.Error,
		PersistenceError:    snap.PersistenceError,
		StepErrors:          snap.StepErrors,
	}
	if !snap.EndedAt.IsZero() {
		end := snap.EndedAt
		resp.EndTime = &end
	}
	return resp
}

// snapshotDuration prefers the recorded audio length and falls back to wall
// time for sessions that are still live.
func snapshotDuration(snap session.Snapshot) float64 {
	if snap.DurationSeconds > 0 {
		return snap.DurationSeconds
	}
	end := snap.EndedAt
	if end.IsZero() {
		if snap.State.IsTerminal() {
			return 0
		}
		end = time.Now()
	}
	return end.Sub(snap.StartedAt).Seconds()
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	snap, err := s.sessions.StopSession(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": snap.ID, "status": snap.Status()})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tr, err := s.sessions.Transcript(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":       id,
		"transcript":       tr.Text,
		"segments":         tr.Segments,
		"language":         tr.Language,
		"duration_seconds": tr.DurationSeconds,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sum, err := s.sessions.Summary(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":        id,
		"executive_summary": sum.ExecutiveSummary,
		"key_points":        nonNil(sum.KeyPoints),
		"decisions":         nonNil(sum.Decisions),
		"action_items":      nonNil(sum.ActionItems),
		"confidence_score":  sum.Confidence,
	})
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	path, err := s.sessions.ReportPath(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "report file not found")
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		writeError(w, http.StatusNotFound, "report file not found")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeContent(w, r, filepath.Base(path), st.ModTime(), f)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := s.sessions.Analytics(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "analytics": m})
}

func (s *Server) handleDiarization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := s.sessions.Diarization(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	segments := nonNil(d.Segments)
	if len(segments) > maxDiarizationRows {
		segments = segments[:maxDiarizationRows]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     id,
		"num_speakers":   d.NumSpeakers,
		"speaker_stats":  d.SpeakerStats,
		"segments":       segments,
		"total_segments": len(d.Segments),
	})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.sessions.Topics(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "topics": nonNil(t.Segments), "total_topics": t.Total})
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sent, err := s.sessions.Sentiment(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "sentiment": sent})
}

func (s *Server) handleActionItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := s.sessions.ActionItems(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     id,
		"action_items":   nonNil(items.Items),
		"total":          items.Total,
		"with_owners":    items.WithOwners,
		"with_deadlines": items.WithDeadlines,
	})
}

func (s *Server) handleFollowup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := s.sessions.Followup(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		SessionID int64 `json:"session_id"`
		analysis.FollowupEmail
	}{SessionID: id, FollowupEmail: f})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	records, err := s.sessions.ListRecent(r.Context(), limit)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	items := make([]meetingListItem, 0, len(records))
	for _, m := range records {
		items = append(items, meetingListItem{
			ID:         m.ID,
			MeetingURL: m.MeetingURL,
			Platform:   m.Platform,
			StartTime:  m.StartTime,
			Duration:   report.FormatDuration(m.DurationSeconds),
			PDFPath:    m.PDFPath,
			EmailSent:  m.EmailSent,
			CreatedAt:  m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": items})
}

type memorySearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type memoryAskRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	var req memorySearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultMemoryLimit
	}
	hits, err := s.memory.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": nonNil(hits)})
}

func (s *Server) handleMemoryAsk(w http.ResponseWriter, r *http.Request) {
	var req memoryAskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	answer, err := s.memory.Ask(r.Context(), req.Question)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	answer.Sources = nonNil(answer.Sources)
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleMemoryHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	entries, err := s.memory.History(r.Context(), limit)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": nonNil(entries)})
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.memory.DeleteMeeting(r.Context(), id); err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "meeting_id": id})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid meeting id")
		return 0, false
	}
	return id, true
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return session.DefaultRecentLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return min(n, session.MaxRecentLimit), true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

