package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/foxseedlab/meetbot/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	audioChunkDuration    = 100 * time.Millisecond
	// Streams are rotated before the 5 minute server-side limit.
	maxStreamAudio = 4*time.Minute + 30*time.Second
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	defaultLanguage string
	location        string
	model           string
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		defaultLanguage: cfg.Language,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
	}
}

type streamOpener func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error)

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, handle recording.AudioHandle) (transcriber.Transcript, error) {
	info, err := recording.ReadWAVInfo(handle.Path)
	if err != nil {
		return transcriber.Transcript{}, fmt.Errorf("read recording: %w", err)
	}
	slog.Info("starting cloud speech transcription",
		"path", handle.Path,
		"location", t.location,
		"language", t.defaultLanguage,
		"model", t.model,
		"duration_seconds", info.DurationSeconds())

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return transcriber.Transcript{}, fmt.Errorf("detect credentials: %w", err)
	}
	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if t.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return transcriber.Transcript{}, err
	}
	defer client.Close()

	recognizer := fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location)
	streamConfig := &speechpb.StreamingRecognizeRequest{
		Recognizer: recognizer,
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.model,
					LanguageCodes: []string{t.defaultLanguage},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(info.SampleRate),
							AudioChannelCount: int32(info.Channels),
						},
					},
					Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
				},
			},
		},
	}
	open := func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
		stream, err := client.StreamingRecognize(ctx)
		if err != nil {
			return nil, err
		}
		if err := stream.Send(streamConfig); err != nil {
			_ = stream.CloseSend()
			return nil, err
		}
		return stream, nil
	}

	return transcribeWAV(ctx, handle.Path, info, t.defaultLanguage, open, maxStreamAudio)
}

func transcribeWAV(ctx context.Context, path string, info recording.WAVInfo, language string, open streamOpener, streamLimit time.Duration) (transcriber.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return transcriber.Transcript{}, err
	}
	defer f.Close()
	if _, err := f.Seek(info.DataOffset, io.SeekStart); err != nil {
		return transcriber.Transcript{}, err
	}

	bytesPerSecond := info.SampleRate * info.Channels * info.BitsPerSample / 8
	fs := &fileStreamer{
		open:           open,
		chunkBytes:     int(int64(bytesPerSecond) * int64(audioChunkDuration) / int64(time.Second)),
		bytesPerSecond: float64(bytesPerSecond),
		streamLimit:    streamLimit.Seconds(),
	}
	if err := fs.run(ctx, io.LimitReader(f, info.DataSize)); err != nil {
		return transcriber.Transcript{}, err
	}

	segments := fs.result()
	text := transcriber.JoinSegments(segments)
	if text == "" {
		return transcriber.Transcript{}, transcriber.ErrEmptyTranscript
	}
	slog.Info("cloud speech transcription finished", "segments", len(segments), "streams", fs.streams)
	return transcriber.Transcript{
		Text:            text,
		Segments:        segments,
		Language:        language,
		DurationSeconds: info.DurationSeconds(),
	}, nil
}

type fileStreamer struct {
	open           streamOpener
	chunkBytes     int
	bytesPerSecond float64
	streamLimit    float64

	stream      speechpb.Speech_StreamingRecognizeClient
	streamStart float64
	recvDone    chan struct{}
	streams     int

	mu       sync.Mutex
	segments []transcriber.Segment
	recvErr  error
}

func (fs *fileStreamer) run(ctx context.Context, r io.Reader) error {
	sentSeconds := 0.0
	if err := fs.openStream(ctx, sentSeconds); err != nil {
		return fmt.Errorf("open speech stream: %w", err)
	}

	buf := make([]byte, fs.chunkBytes)
	for {
		if err := ctx.Err(); err != nil {
			fs.closeStream()
			return err
		}
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			if sentSeconds-fs.streamStart >= fs.streamLimit {
				fs.closeStream()
				if err := fs.openStream(ctx, sentSeconds); err != nil {
					return fmt.Errorf("rotate speech stream: %w", err)
				}
			}
			if err := fs.send(ctx, buf[:n], sentSeconds); err != nil {
				fs.closeStream()
				return err
			}
			sentSeconds += float64(n) / fs.bytesPerSecond
		}
		if readErr == io.EOF || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			fs.closeStream()
			return fmt.Errorf("read audio: %w", readErr)
		}
	}
	fs.closeStream()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.recvErr
}

func (fs *fileStreamer) send(ctx context.Context, pcm []byte, offset float64) error {
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: pcm},
	}
	err := fs.stream.Send(req)
	if err == nil {
		return nil
	}
	if !isReconnectableStreamError(err) {
		return fmt.Errorf("send audio: %w", err)
	}
	slog.Warn("transcriber send failed with reconnectable error; reconnecting", "error", err)
	fs.closeStream()
	if err := fs.openStream(ctx, offset); err != nil {
		return fmt.Errorf("reconnect stream: %w", err)
	}
	return fs.stream.Send(req)
}

func (fs *fileStreamer) openStream(ctx context.Context, baseOffset float64) error {
	stream, err := fs.open(ctx)
	if err != nil {
		return err
	}
	fs.stream = stream
	fs.streamStart = baseOffset
	fs.recvDone = make(chan struct{})
	fs.streams++
	go fs.receive(stream, baseOffset, fs.recvDone)
	return nil
}

// closeStream half-closes the current stream and waits for its final results.
func (fs *fileStreamer) closeStream() {
	if fs.stream == nil {
		return
	}
	_ = fs.stream.CloseSend()
	<-fs.recvDone
	fs.stream = nil
}

func (fs *fileStreamer) receive(stream speechpb.Speech_StreamingRecognizeClient, baseOffset float64, done chan<- struct{}) {
	defer close(done)
	prevEnd := baseOffset
	for {
		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF || status.Code(err) == codes.Canceled || isReconnectableStreamError(err) {
				return
			}
			fs.mu.Lock()
			if fs.recvErr == nil {
				fs.recvErr = fmt.Errorf("receive transcription: %w", err)
			}
			fs.mu.Unlock()
			return
		}
		for _, result := range resp.GetResults() {
			if !result.GetIsFinal() || len(result.GetAlternatives()) == 0 {
				continue
			}
			alt := result.GetAlternatives()[0]
			end := baseOffset + result.GetResultEndOffset().AsDuration().Seconds()
			if end < prevEnd {
				end = prevEnd
			}
			text := strings.TrimSpace(alt.GetTranscript())
			if text != "" {
				fs.mu.Lock()
				fs.segments = append(fs.segments, transcriber.Segment{
					Start:      prevEnd,
					End:        end,
					Text:       text,
					Confidence: float64(alt.GetConfidence()),
				})
				fs.mu.Unlock()
			}
			prevEnd = end
		}
	}
}

func (fs *fileStreamer) result() []transcriber.Segment {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	segments := append([]transcriber.Segment(nil), fs.segments...)
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
	return segments
}

func isReconnectableStreamError(err error) bool {
	if err == io.EOF || strings.Contains(strings.ToLower(err.Error()), "eof") {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
