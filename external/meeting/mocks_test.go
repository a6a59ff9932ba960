package meeting

import (
	"context"
	"sync"

	"github.com/foxseedlab/meetbot/internal/discord"
	"github.com/foxseedlab/meetbot/internal/meeting"
)

type mockDiscordClient struct {
	mu           sync.Mutex
	connectCalls int
	closeCalls   int
	joinErr      error
	resolveErr   error
	channel      discord.ChannelInfo
	participants []discord.VoiceParticipant
	messages     []string
	voice        *mockVoiceConnection
	displayNames map[string]string
	nameLookups  int
}

func (m *mockDiscordClient) Connect(_ context.Context) error {
	m.connectCalls++
	return nil
}
func (m *mockDiscordClient) Close() error {
	m.closeCalls++
	return nil
}
func (m *mockDiscordClient) JoinVoiceChannel(_, _ string) (discord.VoiceConnection, error) {
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	if m.voice == nil {
		m.voice = &mockVoiceConnection{}
	}
	return m.voice, nil
}
func (m *mockDiscordClient) SendChannelMessage(_ string, content string) error {
	m.messages = append(m.messages, content)
	return nil
}
func (m *mockDiscordClient) ListVoiceChannelParticipants(_, _ string) ([]discord.VoiceParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]discord.VoiceParticipant(nil), m.participants...), nil
}
func (m *mockDiscordClient) setParticipants(p ...discord.VoiceParticipant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants = p
}
func (m *mockDiscordClient) GetBotUserID() (string, error) { return "bot-self", nil }
func (m *mockDiscordClient) ResolveChannel(guildID, channelID string) (discord.ChannelInfo, error) {
	if m.resolveErr != nil {
		return discord.ChannelInfo{}, m.resolveErr
	}
	info := m.channel
	info.GuildID = guildID
	info.ChannelID = channelID
	return info, nil
}
func (m *mockDiscordClient) ResolveDisplayName(_, userID string) string {
	m.nameLookups++
	if name, ok := m.displayNames[userID]; ok {
		return name
	}
	return userID
}

type mockVoiceConnection struct {
	disconnects int
	packets     []packet
}

type packet struct {
	userID string
	opus   []byte
}

func (m *mockVoiceConnection) Disconnect() error {
	m.disconnects++
	return nil
}
func (m *mockVoiceConnection) ReceiveAudio(callback func(userID string, opus []byte)) {
	for _, p := range m.packets {
		callback(p.userID, p.opus)
	}
}

type fakeJoiner struct {
	admission meeting.Admission
	joined    []string
	ended     bool
	left      int
}

func (f *fakeJoiner) Join(_ context.Context, url string) (meeting.Admission, error) {
	f.joined = append(f.joined, url)
	return f.admission, nil
}
func (f *fakeJoiner) AdmissionStatus(_ context.Context) (meeting.Admission, error) {
	return f.admission, nil
}
func (f *fakeJoiner) IsEnded(_ context.Context) (bool, error) { return f.ended, nil }
func (f *fakeJoiner) Leave(_ context.Context) error {
	f.left++
	return nil
}
