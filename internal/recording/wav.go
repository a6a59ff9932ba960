package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const WAVHeaderSize = 44

var ErrInvalidWAV = errors.New("invalid wav file")

// WAVInfo describes the PCM payload of a 16-bit WAV file.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataOffset    int64
	DataSize      int64
}

// Samples counts interleaved samples across all channels.
func (i WAVInfo) Samples() int64 {
	if i.BitsPerSample <= 0 {
		return 0
	}
	return i.DataSize / int64(i.BitsPerSample/8)
}

func (i WAVInfo) DurationSeconds() float64 {
	if i.SampleRate <= 0 || i.Channels <= 0 {
		return 0
	}
	return float64(i.Samples()) / float64(i.SampleRate*i.Channels)
}

// WAVHeader builds a canonical PCM header for dataSize bytes of samples.
func WAVHeader(sampleRate, channels, bitsPerSample int, dataSize uint32) []byte {
	h := make([]byte, WAVHeaderSize)
	blockAlign := channels * bitsPerSample / 8
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36+dataSize)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1)
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitsPerSample))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataSize)
	return h
}

func ReadWAVInfo(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return WAVInfo{}, err
	}
	return ParseWAV(f, st.Size())
}

// ParseWAV walks the RIFF chunks of r until it finds the data chunk.
// Only uncompressed 16-bit PCM is accepted.
func ParseWAV(r io.ReadSeeker, fileSize int64) (WAVInfo, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return WAVInfo{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return WAVInfo{}, fmt.Errorf("%w: missing RIFF/WAVE marker", ErrInvalidWAV)
	}

	var info WAVInfo
	haveFormat := false
	offset := int64(12)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return WAVInfo{}, fmt.Errorf("%w: data chunk not found", ErrInvalidWAV)
		}
		offset += 8
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return WAVInfo{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
			}
			if format := binary.LittleEndian.Uint16(fmtChunk[0:2]); format != 1 {
				return WAVInfo{}, fmt.Errorf("%w: unsupported audio format %d", ErrInvalidWAV, format)
			}
			info.Channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
			if info.BitsPerSample != 16 || info.Channels <= 0 || info.SampleRate <= 0 {
				return WAVInfo{}, fmt.Errorf("%w: expected 16-bit pcm, got %d bits %d channels", ErrInvalidWAV, info.BitsPerSample, info.Channels)
			}
			haveFormat = true
			if _, err := r.Seek(offset+size+size%2, io.SeekStart); err != nil {
				return WAVInfo{}, err
			}
		case "data":
			if !haveFormat {
				return WAVInfo{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			info.DataOffset = offset
			// Recorders that crashed before finalizing leave a zero or oversized length.
			if size == 0 || offset+size > fileSize {
				size = fileSize - offset
			}
			info.DataSize = size
			return info, nil
		default:
			if _, err := r.Seek(offset+size+size%2, io.SeekStart); err != nil {
				return WAVInfo{}, err
			}
		}
		offset += size + size%2
	}
}

// WriteWAV writes pcm with a header; used for imports and tests.
func WriteWAV(path string, sampleRate, channels int, pcm []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(WAVHeader(sampleRate, channels, 16, uint32(len(pcm)))); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(pcm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
