package genradio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/cbegin/genradio-go/internal/config"
)

func TestRenderDeterministic(t *testing.T) {
	cfg := config.Default()
	a, evA, err := Render(cfg, 8000, 6, 9)
	if err != nil {
		t.Fatal(err)
	}
	b, evB, err := Render(cfg, 8000, 6, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 6*8000*2 {
		t.Fatalf("len = %d, want %d", len(a), 6*8000*2)
	}
	if len(evA) != len(evB) {
		t.Fatalf("event counts differ: %d vs %d", len(evA), len(evB))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, a[i], b[i])
		}
	}
	var peak float64
	for _, v := range a {
		if math.Abs(float64(v)) > 1 {
			t.Fatalf("sample %v out of range", v)
		}
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak == 0 {
		t.Fatal("six seconds of radio were silent")
	}
}

func TestRenderEventsMatchRender(t *testing.T) {
	cfg := config.Default()
	_, rendered, err := Render(cfg, 8000, 20, 3)
	if err != nil {
		t.Fatal(err)
	}
	events, err := RenderEvents(cfg, 20, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) == 0 || len(events) != len(rendered) {
		t.Fatalf("RenderEvents gave %d events, Render %d", len(events), len(rendered))
	}
	for i := range events {
		a, b := events[i], rendered[i]
		if a.Tick != b.Tick || a.Voice != b.Voice || a.Pitch != b.Pitch || a.NextInterval != b.NextInterval || a.At != b.At {
			t.Fatalf("event %d: %+v vs %+v", i, a, b)
		}
		if a.Tick > 20*uint64(cfg.TickRate) {
			t.Fatalf("event at tick %d beyond span", a.Tick)
		}
	}
}

func TestRenderAnchorsTriggersToTickTime(t *testing.T) {
	const rate = 8000
	cfg := config.Default()
	// Only the first harmonic voice is audible, dry.
	cfg.Harmonic.Voices[0].Reverb.Wet = 0
	cfg.Harmonic.Voices[1].Gain = 0
	cfg.Harmonic.Voices[2].Gain = 0
	cfg.Drum.Gain = config.Range{}
	cfg.Noise.Gain = 0

	samples, events, err := Render(cfg, rate, 4.5, 5)
	if err != nil {
		t.Fatal(err)
	}
	var first *Event
	for i, ev := range events {
		want := float64(ev.Tick) / float64(cfg.TickRate)
		if ev.At != want {
			t.Fatalf("event %d at tick %d anchored at %v, want %v", i, ev.Tick, ev.At, want)
		}
		if first == nil && ev.Voice == cfg.Harmonic.Voices[0].Name {
			first = &events[i]
		}
	}
	if first == nil || first.Tick != 120 || first.At != 4.0 {
		t.Fatalf("first note of %s = %+v, want tick 120 at 4s", cfg.Harmonic.Voices[0].Name, first)
	}

	onset := 4 * rate
	for i := 0; i < onset*2; i++ {
		if samples[i] != 0 {
			t.Fatalf("sample frame %d = %v before the first note", i/2, samples[i])
		}
	}
	heard := false
	for i := onset * 2; i < (onset+rate/20)*2; i++ {
		if samples[i] != 0 {
			heard = true
			break
		}
	}
	if !heard {
		t.Fatal("no sound in the 50ms after the first note")
	}
}

func TestRenderRejectsBadSpan(t *testing.T) {
	cfg := config.Default()
	for _, secs := range []float64{-1, -0.001, math.NaN(), math.Inf(1)} {
		if _, _, err := Render(cfg, 8000, secs, 1); !errors.Is(err, ErrBadSpan) {
			t.Fatalf("Render(%v) err = %v, want ErrBadSpan", secs, err)
		}
		if _, err := RenderEvents(cfg, secs, 1); !errors.Is(err, ErrBadSpan) {
			t.Fatalf("RenderEvents(%v) err = %v, want ErrBadSpan", secs, err)
		}
	}
}

func TestRenderZeroSpan(t *testing.T) {
	cfg := config.Default()
	samples, events, err := Render(cfg, 8000, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 0 || len(events) != 0 {
		t.Fatalf("got %d samples, %d events, want none", len(samples), len(events))
	}
	evs, err := RenderEvents(cfg, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 0 {
		t.Fatalf("RenderEvents gave %d events, want none", len(evs))
	}
}

func TestEncodeWAVFloat32LE(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	wav := EncodeWAVFloat32LE(samples, 44100, 2)
	if len(wav) != 44+16 {
		t.Fatalf("len = %d, want 60", len(wav))
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) || !bytes.Equal(wav[36:40], []byte("data")) {
		t.Fatal("bad chunk ids")
	}
	le := binary.LittleEndian
	if le.Uint16(wav[20:]) != 3 || le.Uint16(wav[22:]) != 2 || le.Uint32(wav[24:]) != 44100 || le.Uint16(wav[34:]) != 32 {
		t.Fatal("bad fmt chunk")
	}
	if le.Uint32(wav[40:]) != 16 || le.Uint32(wav[4:]) != 52 {
		t.Fatal("bad sizes")
	}
	if got := math.Float32frombits(le.Uint32(wav[48:])); got != 0.5 {
		t.Fatalf("second sample = %v", got)
	}
}
