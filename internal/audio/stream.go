// Package audio connects a SampleSource to a sound device.
package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// SampleSource fills dst with interleaved stereo float32 samples.
type SampleSource interface {
	Process(dst []float32)
}

// Output is a playing device stream.
type Output interface {
	Play()
	Pause()
	Stop() error
}

// StreamReader adapts a SampleSource to an io.Reader of float32 LE stereo
// frames, the format both the ebiten and oto players consume.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	frames uint64
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	r.frames += uint64(frames)
	return frames * 8, nil
}

// Frames returns how many stereo frames have been read.
func (r *StreamReader) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *StreamReader) Close() error { return nil }
