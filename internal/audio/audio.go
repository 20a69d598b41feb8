package audio

import (
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 44100
	BufferSize = 512

	maxVoices = 8
	// impact speed that plays at full volume
	fullSpeed = 15.0
)

// voice is one decaying knock, started by an impact.
type voice struct {
	freq  float64
	amp   float64
	phase float64
	decay float64
}

// Processor plays a short knock for every ball impact. Louder and higher
// impacts come from faster collisions.
type Processor struct {
	Stream *portaudio.Stream

	mu      sync.Mutex
	pending []voice
	voices  []voice

	filter    [2]float64
	delayLine [2][]float64
	delayHead int

	Active bool
}

func NewProcessor() *Processor {
	delayLen := int(float64(SampleRate) * 0.12)
	return &Processor{
		voices:    make([]voice, 0, maxVoices),
		delayLine: [2][]float64{make([]float64, delayLen), make([]float64, delayLen)},
	}
}

// Start opens the default output device in stereo.
func (a *Processor) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BufferSize, a.Process)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}
	a.Stream = stream
	a.Active = true
	return nil
}

func (a *Processor) Stop() {
	if a.Stream != nil {
		a.Stream.Stop()
		a.Stream.Close()
		a.Stream = nil
	}
	if a.Active {
		portaudio.Terminate()
	}
	a.Active = false
}

// Impact queues a knock for a collision at the given speed. Speeds at or
// below zero are ignored.
func (a *Processor) Impact(speed float64) {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return
	}
	level := math.Min(speed/fullSpeed, 1)
	v := voice{
		freq:  180 + 520*level,
		amp:   0.15 + 0.6*level,
		decay: math.Exp(-1 / (0.08 * SampleRate)),
	}
	a.mu.Lock()
	a.pending = append(a.pending, v)
	a.mu.Unlock()
}

// triangle keeps the knock soft compared with a square or saw.
func triangle(phase float64) float64 {
	p := phase - math.Floor(phase)
	return 4.0*math.Abs(p-0.5) - 1.0
}

// lpf is a one pole low pass.
func lpf(sample, cutoff, dt, state float64) float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	alpha := dt / (rc + dt)
	return state + alpha*(sample-state)
}

// Process fills one non-interleaved stereo buffer. It is the stream
// callback and can also be driven directly.
func (a *Processor) Process(out [][]float32) {
	a.mu.Lock()
	a.voices = append(a.voices, a.pending...)
	a.pending = a.pending[:0]
	a.mu.Unlock()
	if len(a.voices) > maxVoices {
		a.voices = a.voices[len(a.voices)-maxVoices:]
	}

	dt := 1.0 / float64(SampleRate)
	const vol = 0.3

	for i := range out[0] {
		sample := 0.0
		for j := range a.voices {
			v := &a.voices[j]
			sample += triangle(v.phase) * v.amp
			v.phase += v.freq * dt
			v.amp *= v.decay
		}

		a.filter[0] = lpf(sample, 2400, dt, a.filter[0])
		a.filter[1] = lpf(sample, 2000, dt, a.filter[1])

		dl := a.delayLine[0][a.delayHead]
		dr := a.delayLine[1][a.delayHead]
		mixL := a.filter[0] + dr*0.25
		mixR := a.filter[1] + dl*0.25
		a.delayLine[0][a.delayHead] = mixL * 0.4
		a.delayLine[1][a.delayHead] = mixR * 0.4
		a.delayHead = (a.delayHead + 1) % len(a.delayLine[0])

		out[0][i] = float32(mixL * vol)
		if len(out) > 1 {
			out[1][i] = float32(mixR * vol)
		}
	}

	live := a.voices[:0]
	for _, v := range a.voices {
		if v.amp > 1e-4 {
			live = append(live, v)
		}
	}
	a.voices = live
}
