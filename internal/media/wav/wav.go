package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	headerSize    = 44
	bitsPerSample = 16
	formatPCM     = 1
)

// ErrInvalid is returned for bytes that are not a supported WAVE file.
var ErrInvalid = errors.New("invalid wav data")

// Clip is mono 16-bit PCM audio.
type Clip struct {
	SampleRate int
	Samples    []int16
}

// Duration returns the playback length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Seconds returns the playback length in seconds.
func (c Clip) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Encode writes clip as a canonical 44-byte-header mono WAVE file.
func Encode(clip Clip) []byte {
	dataLen := len(clip.Samples) * 2
	buf := make([]byte, headerSize+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(clip.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(clip.SampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	for i, s := range clip.Samples {
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(s))
	}
	return buf
}

// FromPCM wraps raw signed 16-bit little-endian mono samples.
func FromPCM(raw []byte, sampleRate int) Clip {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return Clip{SampleRate: sampleRate, Samples: samples}
}

type format struct {
	channels   int
	sampleRate int
	bits       int
	dataOffset int
	dataLen    int
}

func parse(data []byte) (format, error) {
	var f format
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return f, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalid)
	}
	haveFmt := false
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return f, fmt.Errorf("%w: truncated fmt chunk", ErrInvalid)
			}
			if tag := binary.LittleEndian.Uint16(data[body:]); tag != formatPCM {
				return f, fmt.Errorf("%w: unsupported format tag %d", ErrInvalid, tag)
			}
			f.channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			f.sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			f.bits = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return f, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalid)
			}
			if size > len(data)-body {
				size = len(data) - body
			}
			f.dataOffset = body
			f.dataLen = size
			return f, f.check()
		}
		pos = body + size + size%2
	}
	return f, fmt.Errorf("%w: no data chunk", ErrInvalid)
}

func (f format) check() error {
	if f.bits != bitsPerSample {
		return fmt.Errorf("%w: %d-bit samples unsupported", ErrInvalid, f.bits)
	}
	if f.channels != 1 && f.channels != 2 {
		return fmt.Errorf("%w: %d channels unsupported", ErrInvalid, f.channels)
	}
	if f.sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalid, f.sampleRate)
	}
	return nil
}

// Validate checks that data is a readable 16-bit PCM WAVE file with at least
// one sample.
func Validate(data []byte) error {
	f, err := parse(data)
	if err != nil {
		return err
	}
	if f.dataLen < 2*f.channels {
		return fmt.Errorf("%w: no samples", ErrInvalid)
	}
	return nil
}

// Decode reads data into a mono clip.
func Decode(data []byte) (Clip, error) {
	f, err := parse(data)
	if err != nil {
		return Clip{}, err
	}
	frameSize := 2 * f.channels
	frames := f.dataLen / frameSize
	samples := make([]int16, frames)
	pcm := data[f.dataOffset : f.dataOffset+frames*frameSize]
	for i := range samples {
		if f.channels == 1 {
			samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
			continue
		}
		left := int32(int16(binary.LittleEndian.Uint16(pcm[i*4:])))
		right := int32(int16(binary.LittleEndian.Uint16(pcm[i*4+2:])))
		samples[i] = int16((left + right) / 2)
	}
	return Clip{SampleRate: f.sampleRate, Samples: samples}, nil
}

// Duration returns the playback length of encoded data.
func Duration(data []byte) (time.Duration, error) {
	f, err := parse(data)
	if err != nil {
		return 0, err
	}
	frames := f.dataLen / (2 * f.channels)
	return time.Duration(float64(frames) / float64(f.sampleRate) * float64(time.Second)), nil
}

// Resample converts clip to rate using linear interpolation.
func Resample(clip Clip, rate int) Clip {
	if rate <= 0 || clip.SampleRate == rate || clip.SampleRate <= 0 || len(clip.Samples) == 0 {
		if rate > 0 && len(clip.Samples) == 0 {
			return Clip{SampleRate: rate}
		}
		return clip
	}
	n := int(math.Round(float64(len(clip.Samples)) * float64(rate) / float64(clip.SampleRate)))
	if n < 1 {
		n = 1
	}
	out := make([]int16, n)
	step := float64(clip.SampleRate) / float64(rate)
	last := len(clip.Samples) - 1
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = clip.Samples[last]
			continue
		}
		frac := pos - float64(idx)
		a := float64(clip.Samples[idx])
		b := float64(clip.Samples[idx+1])
		out[i] = int16(math.Round(a + (b-a)*frac))
	}
	return Clip{SampleRate: rate, Samples: out}
}
