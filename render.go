package genradio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/cbegin/genradio-go/internal/config"
	"github.com/cbegin/genradio-go/internal/schedule"
)

// ErrBadSpan is returned for a negative or non-finite render length.
var ErrBadSpan = errors.New("render length must be a finite number of seconds >= 0")

func checkSpan(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fmt.Errorf("%w: got %v", ErrBadSpan, seconds)
	}
	return nil
}

// tickClock anchors triggers to the start of their tick, t / tickRate seconds.
func tickClock(sched **schedule.Scheduler, tickRate int) func() float64 {
	return func() float64 { return float64((*sched).Tick()) / float64(tickRate) }
}

// Render runs the radio offline for seconds of audio, stepping the scheduler
// at the configured tick rate between audio blocks. Tick t fires at exactly
// t / tick_rate seconds of audio. The same seed always produces the same
// samples and events.
func Render(cfg config.Config, sampleRate int, seconds float64, seed uint64) ([]float32, []Event, error) {
	if err := checkSpan(seconds); err != nil {
		return nil, nil, err
	}
	if sampleRate <= 0 {
		return nil, nil, errors.New("sampleRate must be positive")
	}
	var sched *schedule.Scheduler
	reg, s, err := build(cfg, sampleRate, seed, slog.Default(), tickClock(&sched, cfg.TickRate))
	if err != nil {
		return nil, nil, err
	}
	sched = s
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	var events []Event
	done := 0
	for tick := 1; done < frames; tick++ {
		events = append(events, sched.Step()...)
		end := min(int(math.Round(float64(tick)*float64(sampleRate)/float64(cfg.TickRate))), frames)
		reg.Process(out[done*2 : end*2])
		done = end
	}
	return out, events, nil
}

// RenderSamples renders interleaved stereo float32 samples.
func RenderSamples(cfg config.Config, sampleRate int, seconds float64, seed uint64) ([]float32, error) {
	samples, _, err := Render(cfg, sampleRate, seconds, seed)
	return samples, err
}

// RenderEvents runs only the scheduler and returns what would fire in the
// given span. Draws match Render with the same seed; At is the tick time.
func RenderEvents(cfg config.Config, seconds float64, seed uint64) ([]Event, error) {
	if err := checkSpan(seconds); err != nil {
		return nil, err
	}
	var sched *schedule.Scheduler
	// The voices are built so the picker sequence matches Render, but are
	// never rendered.
	_, s, err := build(cfg, DefaultSampleRate, seed, slog.Default(), tickClock(&sched, cfg.TickRate))
	if err != nil {
		return nil, err
	}
	sched = s
	ticks := uint64(seconds * float64(cfg.TickRate))
	var events []Event
	for sched.Tick() < ticks {
		events = append(events, sched.Step()...)
	}
	return events, nil
}

// WriteWAV writes samples as a 32-bit float WAV stream.
func WriteWAV(w io.Writer, samples []float32, sampleRate int, channels int) error {
	dataSize := uint32(len(samples) * 4)
	header := struct {
		RIFF       [4]byte
		ChunkSize  uint32
		WAVE       [4]byte
		Fmt        [4]byte
		FmtSize    uint32
		Format     uint16
		Channels   uint16
		SampleRate uint32
		ByteRate   uint32
		BlockAlign uint16
		Bits       uint16
		Data       [4]byte
		DataSize   uint32
	}{
		RIFF:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:  36 + dataSize,
		WAVE:       [4]byte{'W', 'A', 'V', 'E'},
		Fmt:        [4]byte{'f', 'm', 't', ' '},
		FmtSize:    16,
		Format:     3, // IEEE float
		Channels:   uint16(channels),
		SampleRate: uint32(sampleRate),
		ByteRate:   uint32(sampleRate * channels * 4),
		BlockAlign: uint16(channels * 4),
		Bits:       32,
		Data:       [4]byte{'d', 'a', 't', 'a'},
		DataSize:   dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, samples)
}

// EncodeWAVFloat32LE returns samples as an in-memory float WAV file.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(samples)*4)
	_ = WriteWAV(&buf, samples, sampleRate, channels)
	return buf.Bytes()
}
