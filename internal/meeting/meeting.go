package meeting

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
)

type Platform string

const (
	PlatformZoom       Platform = "zoom"
	PlatformGoogleMeet Platform = "google_meet"
	PlatformDiscord    Platform = "discord"
	PlatformImport     Platform = "import"
	PlatformUnknown    Platform = "unknown"
)

// DisplayName is the human form used in reports and email subjects.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformZoom:
		return "Zoom"
	case PlatformGoogleMeet:
		return "Google Meet"
	case PlatformDiscord:
		return "Discord"
	case PlatformImport:
		return "Imported Recording"
	default:
		return "Unknown"
	}
}

type Admission string

const (
	AdmissionAdmitted Admission = "admitted"
	AdmissionPending  Admission = "pending"
	AdmissionDenied   Admission = "denied"
)

var (
	ErrUnsupportedPlatform = errors.New("no join adapter for meeting platform")
	ErrInvalidURL          = errors.New("invalid meeting url")
	ErrNotJoined           = errors.New("not joined to a meeting")
)

// Joiner is a single-attachment adapter: at most one meeting is joined at a time.
type Joiner interface {
	Join(ctx context.Context, meetingURL string) (Admission, error)
	AdmissionStatus(ctx context.Context) (Admission, error)
	IsEnded(ctx context.Context) (bool, error)
	Leave(ctx context.Context) error
}

var (
	zoomMeetingIDPattern = regexp.MustCompile(`/j/(\d+)`)
	zoomPasscodePattern  = regexp.MustCompile(`pwd=([^&]+)`)
	meetCodePattern      = regexp.MustCompile(`meet\.google\.com/([a-z]{3}-[a-z]{4}-[a-z]{3})`)
)

func DetectPlatform(meetingURL string) Platform {
	u, err := url.Parse(strings.TrimSpace(meetingURL))
	if err != nil || u.Host == "" {
		return PlatformUnknown
	}
	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "zoom.us"), strings.Contains(host, "zoom.com"):
		return PlatformZoom
	case strings.Contains(host, "meet.google.com"):
		return PlatformGoogleMeet
	case strings.Contains(host, "discord.com"), strings.Contains(host, "discordapp.com"):
		if _, _, err := ParseDiscordChannel(meetingURL); err == nil {
			return PlatformDiscord
		}
	}
	return PlatformUnknown
}

// ZoomMeetingID returns the numeric meeting id and the optional passcode.
func ZoomMeetingID(meetingURL string) (string, string, bool) {
	m := zoomMeetingIDPattern.FindStringSubmatch(meetingURL)
	if m == nil {
		return "", "", false
	}
	passcode := ""
	if p := zoomPasscodePattern.FindStringSubmatch(meetingURL); p != nil {
		passcode = p[1]
	}
	return m[1], passcode, true
}

func MeetCode(meetingURL string) (string, bool) {
	m := meetCodePattern.FindStringSubmatch(strings.ToLower(meetingURL))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseDiscordChannel extracts guild and channel ids from
// https://discord.com/channels/{guild}/{channel}.
func ParseDiscordChannel(meetingURL string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(meetingURL))
	if err != nil {
		return "", "", ErrInvalidURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "channels" || parts[1] == "" || parts[2] == "" {
		return "", "", ErrInvalidURL
	}
	if !isSnowflake(parts[1]) || !isSnowflake(parts[2]) {
		return "", "", ErrInvalidURL
	}
	return parts[1], parts[2], nil
}

func isSnowflake(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
