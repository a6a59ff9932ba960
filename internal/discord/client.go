package discord

import (
	"context"
	"errors"
)

var ErrChannelNotFound = errors.New("discord channel not found")

type VoiceParticipant struct {
	UserID string
	IsBot  bool
}

type ChannelInfo struct {
	GuildID     string
	GuildName   string
	ChannelID   string
	ChannelName string
	IsVoice     bool
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	JoinVoiceChannel(guildID, channelID string) (VoiceConnection, error)
	SendChannelMessage(channelID, content string) error
	ListVoiceChannelParticipants(guildID, channelID string) ([]VoiceParticipant, error)
	GetBotUserID() (string, error)
	ResolveChannel(guildID, channelID string) (ChannelInfo, error)
	ResolveDisplayName(guildID, userID string) string
}

type VoiceConnection interface {
	Disconnect() error
	ReceiveAudio(callback func(userID string, opus []byte))
}
