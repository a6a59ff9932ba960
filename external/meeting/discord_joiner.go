package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/meetbot/internal/discord"
	"github.com/foxseedlab/meetbot/internal/meeting"
)

const (
	discordConnectTimeout = 20 * time.Second
	// Without anyone ever joining, the channel counts as ended after this grace period.
	emptyChannelGrace = 5 * time.Minute
)

type DiscordJoiner struct {
	client discord.Client
	notice string
	now    func() time.Time

	connectMu sync.Mutex
	connected bool

	mu        sync.Mutex
	guildID   string
	channelID string
	voice     discord.VoiceConnection
	joinedAt  time.Time
	seenHuman bool
	seenBot   bool
	names     map[string]string
}

func NewDiscordJoiner(client discord.Client, botName string) *DiscordJoiner {
	return &DiscordJoiner{
		client: client,
		notice: fmt.Sprintf(":red_circle: **%s is recording this voice channel.** A summary will be shared when the meeting ends.", botName),
		now:    time.Now,
	}
}

func (j *DiscordJoiner) ensureConnected(ctx context.Context) error {
	j.connectMu.Lock()
	defer j.connectMu.Unlock()
	if j.connected {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, discordConnectTimeout)
	defer cancel()
	slog.Info("connecting to discord gateway")
	if err := j.client.Connect(ctx); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	j.connected = true
	slog.Info("discord connected")
	return nil
}

func (j *DiscordJoiner) Join(ctx context.Context, meetingURL string) (meeting.Admission, error) {
	guildID, channelID, err := meeting.ParseDiscordChannel(meetingURL)
	if err != nil {
		return "", err
	}
	if err := j.ensureConnected(ctx); err != nil {
		return "", err
	}

	info, err := j.client.ResolveChannel(guildID, channelID)
	if err != nil {
		if errors.Is(err, discord.ErrChannelNotFound) {
			slog.Warn("discord channel not found or not accessible", "guild_id", guildID, "channel_id", channelID)
			return meeting.AdmissionDenied, nil
		}
		return "", fmt.Errorf("resolve discord channel: %w", err)
	}
	if !info.IsVoice {
		return "", fmt.Errorf("discord channel %s is not a voice channel", channelID)
	}

	voice, err := j.client.JoinVoiceChannel(guildID, channelID)
	if err != nil {
		return "", fmt.Errorf("join voice channel: %w", err)
	}
	slog.Info("joined discord voice channel", "guild_id", guildID, "channel_id", channelID, "channel_name", info.ChannelName)

	j.mu.Lock()
	j.guildID = guildID
	j.channelID = channelID
	j.voice = voice
	j.joinedAt = j.now()
	j.seenHuman = false
	j.seenBot = false
	j.names = make(map[string]string)
	j.mu.Unlock()

	if err := j.client.SendChannelMessage(channelID, j.notice); err != nil {
		slog.Warn("failed to post recording notice", "channel_id", channelID, "error", err)
	}
	return meeting.AdmissionAdmitted, nil
}

func (j *DiscordJoiner) AdmissionStatus(_ context.Context) (meeting.Admission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.voice == nil {
		return "", meeting.ErrNotJoined
	}
	return meeting.AdmissionAdmitted, nil
}

func (j *DiscordJoiner) IsEnded(_ context.Context) (bool, error) {
	j.mu.Lock()
	guildID, channelID, voice := j.guildID, j.channelID, j.voice
	j.mu.Unlock()
	if voice == nil {
		return true, nil
	}

	participants, err := j.client.ListVoiceChannelParticipants(guildID, channelID)
	if err != nil {
		return false, err
	}
	botUserID, err := j.client.GetBotUserID()
	if err != nil {
		return false, err
	}
	botPresent := false
	humans := 0
	for _, p := range participants {
		if p.UserID == botUserID {
			botPresent = true
			continue
		}
		if !p.IsBot {
			humans++
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if botPresent {
		j.seenBot = true
	} else if j.seenBot {
		slog.Info("bot is no longer in the voice channel", "channel_id", channelID)
		return true, nil
	}
	if humans > 0 {
		j.seenHuman = true
		return false, nil
	}
	if j.seenHuman {
		return true, nil
	}
	return j.now().Sub(j.joinedAt) >= emptyChannelGrace, nil
}

func (j *DiscordJoiner) Leave(_ context.Context) error {
	j.mu.Lock()
	voice := j.voice
	j.voice = nil
	j.mu.Unlock()
	if voice == nil {
		return nil
	}
	return voice.Disconnect()
}

// ReceiveAudio forwards voice packets labeled with participant display names.
func (j *DiscordJoiner) ReceiveAudio(callback func(speakerID string, opus []byte)) error {
	j.mu.Lock()
	voice, guildID := j.voice, j.guildID
	j.mu.Unlock()
	if voice == nil {
		return meeting.ErrNotJoined
	}
	voice.ReceiveAudio(func(userID string, opus []byte) {
		callback(j.displayName(guildID, userID), opus)
	})
	return nil
}

func (j *DiscordJoiner) displayName(guildID, userID string) string {
	j.mu.Lock()
	name, ok := j.names[userID]
	j.mu.Unlock()
	if ok {
		return name
	}
	name = j.client.ResolveDisplayName(guildID, userID)
	j.mu.Lock()
	if j.names != nil {
		j.names[userID] = name
	}
	j.mu.Unlock()
	return name
}

func (j *DiscordJoiner) Close() error {
	j.connectMu.Lock()
	defer j.connectMu.Unlock()
	if !j.connected {
		return nil
	}
	j.connected = false
	return j.client.Close()
}
