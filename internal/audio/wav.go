package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WAV container constants.
const (
	riffTag = "RIFF"
	waveTag = "WAVE"
	fmtTag  = "fmt "
	dataTag = "data"

	pcmFormatCode  = 1
	headerSize     = 44
	chunkHeaderLen = 8
	fmtChunkLen    = 16
)

// WAV errors.
var (
	// ErrInvalidWAV is returned when the data is not a readable RIFF/WAVE
	// container.
	ErrInvalidWAV = errors.New("invalid WAV data")
	// ErrUnsupportedWAV is returned for WAV data that is valid but not
	// 16-bit PCM.
	ErrUnsupportedWAV = errors.New("unsupported WAV format")
)

// EncodeWAV serializes the buffer as a 16-bit PCM WAV file. Samples outside
// [-1, 1] are clipped; rounding is fixed so identical buffers encode to
// byte-identical files.
func (b *Buffer) EncodeWAV() []byte {
	dataSize := len(b.samples) * BytesPerSample
	out := make([]byte, headerSize+dataSize)

	byteRate := b.SampleRate * b.Channels * BytesPerSample
	blockAlign := b.Channels * BytesPerSample

	copy(out[0:4], riffTag)
	binary.LittleEndian.PutUint32(out[4:8], uint32(headerSize-chunkHeaderLen+dataSize))
	copy(out[8:12], waveTag)

	copy(out[12:16], fmtTag)
	binary.LittleEndian.PutUint32(out[16:20], uint32(fmtChunkLen))
	binary.LittleEndian.PutUint16(out[20:22], uint16(pcmFormatCode))
	binary.LittleEndian.PutUint16(out[22:24], uint16(b.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(BitDepth))

	copy(out[36:40], dataTag)
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for i, sample := range b.samples {
		offset := headerSize + i*BytesPerSample
		binary.LittleEndian.PutUint16(out[offset:offset+2], uint16(quantizeSample(sample)))
	}

	return out
}

// DecodeWAV parses 16-bit PCM WAV data into a buffer.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) < headerSize-chunkHeaderLen ||
		string(data[0:4]) != riffTag || string(data[8:12]) != waveTag {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var (
		sampleRate int
		channels   int
		haveFormat bool
	)

	// Walk the chunk list; only "fmt " and "data" matter, anything else
	// (LIST, fact, ...) is skipped.
	offset := 12
	for offset+chunkHeaderLen <= len(data) {
		tag := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+chunkHeaderLen]))
		body := offset + chunkHeaderLen

		if body+size > len(data) {
			return nil, fmt.Errorf("%w: truncated %q chunk", ErrInvalidWAV, tag)
		}

		switch tag {
		case fmtTag:
			var err error

			sampleRate, channels, err = parseFormatChunk(data[body : body+size])
			if err != nil {
				return nil, err
			}

			haveFormat = true
		case dataTag:
			if !haveFormat {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}

			return decodeSamples(data[body:body+size], sampleRate, channels), nil
		}

		// Chunks are word-aligned.
		offset = body + size + size%2
	}

	return nil, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
}

func parseFormatChunk(chunk []byte) (sampleRate, channels int, err error) {
	if len(chunk) < fmtChunkLen {
		return 0, 0, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
	}

	formatCode := binary.LittleEndian.Uint16(chunk[0:2])
	if formatCode != pcmFormatCode {
		return 0, 0, fmt.Errorf("%w: format code %d, want PCM", ErrUnsupportedWAV, formatCode)
	}

	bitsPerSample := binary.LittleEndian.Uint16(chunk[14:16])
	if bitsPerSample != BitDepth {
		return 0, 0, fmt.Errorf("%w: %d-bit samples, want %d-bit",
			ErrUnsupportedWAV, bitsPerSample, BitDepth)
	}

	channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
	sampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))

	if channels == 0 || sampleRate == 0 {
		return 0, 0, fmt.Errorf("%w: zero sample rate or channel count", ErrInvalidWAV)
	}

	return sampleRate, channels, nil
}

func decodeSamples(body []byte, sampleRate, channels int) *Buffer {
	count := len(body) / BytesPerSample
	samples := make([]float64, count)

	for i := 0; i < count; i++ {
		raw := int16(binary.LittleEndian.Uint16(body[i*BytesPerSample : i*BytesPerSample+2]))
		samples[i] = float64(raw) / sampleScale
	}

	return &Buffer{SampleRate: sampleRate, Channels: channels, samples: samples}
}

func quantizeSample(sample float64) int16 {
	clipped := math.Max(sampleMin, math.Min(sampleMax, sample))

	return int16(math.Round(clipped * sampleScale))
}
