// ABOUTME: Sample backend playing per-pitch MP3 recordings through oto
// ABOUTME: Decodes the sample library at startup, scales PCM by velocity
package backend

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/clavier-project/clavier-go/internal/score"
	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"
)

const samplerSampleRate = 44100

// sampleFiles maps note names to the recorded sample filenames in the
// sample directory. The advertised range stops at G#6 even though a few
// recordings above it exist.
var sampleFiles = map[string]string{
	"A2": "a54.mp3", "A3": "a69.mp3", "A4": "a80.mp3", "A5": "a74.mp3", "A6": "a66.mp3",
	"A#3": "b69.mp3", "A#4": "b80.mp3", "A#5": "b74.mp3", "A#6": "b66.mp3",
	"B2": "a55.mp3", "B3": "a82.mp3", "B4": "a65.mp3", "B5": "a75.mp3", "B6": "a78.mp3",
	"C2": "a49.mp3", "C3": "a56.mp3", "C4": "a84.mp3", "C5": "a83.mp3", "C6": "a76.mp3", "C7": "a77.mp3",
	"C#2": "b49.mp3", "C#3": "b56.mp3", "C#4": "b84.mp3", "C#5": "b83.mp3", "C#6": "b76.mp3",
	"D2": "a50.mp3", "D3": "a57.mp3", "D4": "a89.mp3", "D5": "a68.mp3", "D6": "a90.mp3",
	"D#2": "b50.mp3", "D#3": "b57.mp3", "D#4": "b89.mp3", "D#5": "b68.mp3", "D#6": "b90.mp3",
	"E2": "a51.mp3", "E3": "a48.mp3", "E4": "a85.mp3", "E5": "a70.mp3", "E6": "a88.mp3",
	"F2": "a52.mp3", "F3": "a81.mp3", "F4": "a73.mp3", "F5": "a71.mp3", "F6": "a67.mp3",
	"F#2": "b52.mp3", "F#3": "b81.mp3", "F#4": "b73.mp3", "F#5": "b71.mp3", "F#6": "b67.mp3",
	"G2": "a53.mp3", "G3": "a87.mp3", "G4": "a79.mp3", "G5": "a72.mp3", "G6": "a86.mp3",
	"G#2": "b53.mp3", "G#3": "b87.mp3", "G#4": "b79.mp3", "G#5": "b72.mp3", "G#6": "b86.mp3",
}

const (
	samplerLow  = 36 // C2
	samplerHigh = 92 // G#6
)

// Sampler plays pre-recorded per-pitch samples. Sustain works by
// letting a sample ring and cutting it on NoteOff; velocity scales the
// decoded PCM before playback.
type Sampler struct {
	otoCtx  *oto.Context
	samples map[int][]byte // pitch -> 16-bit LE stereo PCM

	mu     sync.Mutex
	active map[int]*oto.Player
}

// NewSampler initializes the audio device and decodes every sample
// found in dir. Missing individual samples are logged and skipped;
// an empty library is an error.
func NewSampler(dir string) (*Sampler, error) {
	op := &oto.NewContextOptions{
		SampleRate:   samplerSampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, &Error{Device: "sampler", Op: "init audio", Err: err}
	}
	<-ready

	s := &Sampler{
		otoCtx:  ctx,
		samples: make(map[int][]byte),
		active:  make(map[int]*oto.Player),
	}

	missing := 0
	for name, file := range sampleFiles {
		pitch, err := pitchForName(name)
		if err != nil {
			return nil, fmt.Errorf("sample map: %w", err)
		}
		pcm, err := decodeSample(filepath.Join(dir, file))
		if err != nil {
			log.Printf("sampler: skipping %s (%s): %v", name, file, err)
			missing++
			continue
		}
		s.samples[pitch] = pcm
	}

	if len(s.samples) == 0 {
		return nil, &Error{Device: "sampler", Op: "load samples", Err: fmt.Errorf("no samples loaded from %s", dir)}
	}
	log.Printf("sampler: loaded %d samples from %s (%d missing)", len(s.samples), dir, missing)

	return s, nil
}

func (s *Sampler) NoteOn(pitch, velocity int) error {
	// Tolerance-admitted pitches outside the recorded range fold by
	// whole octaves onto an available sample.
	pitch = foldIntoRange(pitch, samplerLow, samplerHigh)
	pcm, ok := s.samples[pitch]
	if !ok {
		// Within the advertised range but the recording is absent;
		// stay silent rather than failing the session.
		log.Printf("sampler: no sample for %s", score.NoteName(pitch))
		return nil
	}

	player := s.otoCtx.NewPlayer(bytes.NewReader(scalePCM(pcm, velocity)))

	s.mu.Lock()
	if prev, ok := s.active[pitch]; ok {
		prev.Close()
	}
	s.active[pitch] = player
	s.mu.Unlock()

	player.Play()
	return nil
}

func (s *Sampler) NoteOff(pitch int) error {
	pitch = foldIntoRange(pitch, samplerLow, samplerHigh)
	s.mu.Lock()
	player, ok := s.active[pitch]
	delete(s.active, pitch)
	s.mu.Unlock()

	if ok {
		player.Close()
	}
	return nil
}

func (s *Sampler) SupportedRange() score.PitchRange {
	return score.PitchRange{Low: samplerLow, High: samplerHigh}
}

func (s *Sampler) SupportsSustain() bool  { return true }
func (s *Sampler) SupportsVelocity() bool { return true }

func (s *Sampler) Name() string { return "sample" }

func (s *Sampler) Close() error {
	s.mu.Lock()
	for pitch, player := range s.active {
		player.Close()
		delete(s.active, pitch)
	}
	s.mu.Unlock()
	s.otoCtx.Suspend()
	return nil
}

// decodeSample reads one MP3 file into 16-bit LE stereo PCM.
func decodeSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	if dec.SampleRate() != samplerSampleRate {
		log.Printf("sampler: %s is %dHz, device runs %dHz; pitch will be off", path, dec.SampleRate(), samplerSampleRate)
	}
	return io.ReadAll(dec)
}

// scalePCM applies velocity as a linear gain over 16-bit samples.
func scalePCM(pcm []byte, velocity int) []byte {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 127 {
		velocity = 127
	}
	gain := float64(velocity) / 127.0

	out := make([]byte, len(pcm)&^1)
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		scaled := int16(float64(sample) * gain)
		out[i] = byte(uint16(scaled))
		out[i+1] = byte(uint16(scaled) >> 8)
	}
	return out
}

// pitchForName parses scientific pitch notation with sharps ("C#4").
func pitchForName(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("bad note name %q", name)
	}
	class := -1
	for i, n := range noteClassNames {
		if n == name[:len(name)-1] {
			class = i
			break
		}
	}
	if class < 0 {
		return 0, fmt.Errorf("bad note name %q", name)
	}
	octave := int(name[len(name)-1] - '0')
	if octave < 0 || octave > 9 {
		return 0, fmt.Errorf("bad octave in %q", name)
	}
	return (octave+1)*12 + class, nil
}

var noteClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
