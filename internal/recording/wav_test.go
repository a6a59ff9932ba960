package recording

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	pcm := make([]byte, 48000*2*2)
	if err := WriteWAV(path, 48000, 2, pcm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := ReadWAVInfo(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.SampleRate != 48000 || info.Channels != 2 || info.DataOffset != WAVHeaderSize {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Samples() != 96000 {
		t.Fatalf("expected 96000 samples, got %d", info.Samples())
	}
	if d := info.DurationSeconds(); d != 1 {
		t.Fatalf("expected 1 second, got %v", d)
	}
}

func TestParseWAV_SkipsExtraChunks(t *testing.T) {
	header := WAVHeader(16000, 1, 16, 4)
	var buf bytes.Buffer
	buf.Write(header[:36])
	buf.WriteString("LIST")
	buf.Write([]byte{3, 0, 0, 0, 'a', 'b', 'c', 0})
	buf.Write(header[36:])
	buf.Write([]byte{1, 2, 3, 4})

	info, err := ParseWAV(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.DataOffset != 56 || info.DataSize != 4 || info.SampleRate != 16000 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestParseWAV_UnfinalizedLength(t *testing.T) {
	header := WAVHeader(48000, 2, 16, 0)
	data := append(header, make([]byte, 400)...)
	info, err := ParseWAV(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.DataSize != 400 {
		t.Fatalf("expected data size recovered from file size, got %d", info.DataSize)
	}
}

func TestParseWAV_RejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("definitely not a riff file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWAVInfo(path); !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("expected ErrInvalidWAV, got %v", err)
	}
}

func TestAudioHandleDuration(t *testing.T) {
	h := AudioHandle{SampleRate: 48000, Channels: 2, Samples: 48000 * 2 * 3}
	if h.DurationSeconds() != 3 {
		t.Fatalf("unexpected duration: %v", h.DurationSeconds())
	}
	if (AudioHandle{}).DurationSeconds() != 0 {
		t.Fatal("expected zero duration for empty handle")
	}
}
