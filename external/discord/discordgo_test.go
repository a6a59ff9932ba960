package discord

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/meetbot/internal/discord"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSession(t *testing.T, rt roundTripFunc) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if rt != nil {
		s.Client = &http.Client{Transport: rt}
	}
	return s
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestListVoiceChannelParticipants_UsesStateCache(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "guild-1", ChannelID: "vc-1", UserID: "user-1", Member: &discordgo.Member{User: &discordgo.User{ID: "user-1"}}},
			{GuildID: "guild-1", ChannelID: "vc-1", UserID: "bot-1", Member: &discordgo.Member{User: &discordgo.User{ID: "bot-1", Bot: true}}},
			{GuildID: "guild-1", ChannelID: "vc-2", UserID: "user-2", Member: &discordgo.Member{User: &discordgo.User{ID: "user-2"}}},
		},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s}
	participants, err := c.ListVoiceChannelParticipants("guild-1", "vc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	if participants[0].IsBot || !participants[1].IsBot {
		t.Fatalf("unexpected bot flags: %+v", participants)
	}
}

func TestResolveChannel_FallsBackToRESTWhenStateIsCold(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(req.URL.Path, "/channels/vc-rest"):
			return jsonResponse(http.StatusOK, `{"id":"vc-rest","guild_id":"guild-1","name":"standup","type":2}`), nil
		case strings.HasSuffix(req.URL.Path, "/guilds/guild-1"):
			return jsonResponse(http.StatusOK, `{"id":"guild-1","name":"Team"}`), nil
		}
		t.Fatalf("unexpected request path: %s", req.URL.Path)
		return nil, nil
	})

	c := &Client{session: s}
	info, err := c.ResolveChannel("guild-1", "vc-rest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ChannelName != "standup" || info.GuildName != "Team" || !info.IsVoice {
		t.Fatalf("unexpected channel info: %+v", info)
	}
}

func TestResolveChannel_NotFound(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})

	c := &Client{session: s}
	_, err := c.ResolveChannel("guild-1", "missing")
	if !errors.Is(err, discordpkg.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestResolveDisplayName_PrefersNickname(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{ID: "guild-1"}); err != nil {
		t.Fatalf("failed to add guild: %v", err)
	}
	if err := s.State.MemberAdd(&discordgo.Member{
		GuildID: "guild-1",
		Nick:    "Ana",
		User:    &discordgo.User{ID: "user-1", Username: "ana_k"},
	}); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}

	c := &Client{session: s}
	if got := c.ResolveDisplayName("guild-1", "user-1"); got != "Ana" {
		t.Fatalf("expected nickname, got %q", got)
	}
}

func TestPreferredDiscordName(t *testing.T) {
	if got := preferredDiscordName("", "user", "id"); got != "user" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := preferredDiscordName("", "", "id"); got != "id" {
		t.Fatalf("unexpected fallback: %q", got)
	}
}
