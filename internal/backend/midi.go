// ABOUTME: MIDI output backend over gomidi with the rtmidi driver
// ABOUTME: Full pitch range, true sustain and velocity, CC123 on close
package backend

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/clavier-project/clavier-go/internal/score"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver
)

const midiChannel = 0

// MIDIOut sends note events to a MIDI output port.
type MIDIOut struct {
	port drivers.Out
	send func(msg gomidi.Message) error

	mu   sync.Mutex
	open map[int]bool
}

// NewMIDIOut opens the named output port (case-insensitive substring
// match) or the first available port when name is empty.
func NewMIDIOut(name string) (*MIDIOut, error) {
	ports := gomidi.GetOutPorts()
	if len(ports) == 0 {
		return nil, &Error{Device: "midi", Op: "open port", Err: fmt.Errorf("no MIDI output ports available")}
	}

	var port drivers.Out
	if name == "" {
		port = ports[0]
	} else {
		for _, p := range ports {
			if strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
				port = p
				break
			}
		}
		if port == nil {
			return nil, &Error{Device: "midi", Op: "open port", Err: fmt.Errorf("no MIDI port matching %q", name)}
		}
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, &Error{Device: "midi", Op: "open port", Err: err}
	}
	log.Printf("midi: connected to port %s", port)

	return &MIDIOut{port: port, send: send, open: make(map[int]bool)}, nil
}

func (m *MIDIOut) NoteOn(pitch, velocity int) error {
	if err := m.send(gomidi.NoteOn(midiChannel, uint8(pitch), uint8(velocity))); err != nil {
		return &Error{Device: "midi", Op: "note on", Err: err}
	}
	m.mu.Lock()
	m.open[pitch] = true
	m.mu.Unlock()
	return nil
}

func (m *MIDIOut) NoteOff(pitch int) error {
	if err := m.send(gomidi.NoteOff(midiChannel, uint8(pitch))); err != nil {
		return &Error{Device: "midi", Op: "note off", Err: err}
	}
	m.mu.Lock()
	delete(m.open, pitch)
	m.mu.Unlock()
	return nil
}

func (m *MIDIOut) SupportedRange() score.PitchRange {
	return score.PitchRange{Low: 0, High: 127}
}

func (m *MIDIOut) SupportsSustain() bool  { return true }
func (m *MIDIOut) SupportsVelocity() bool { return true }

func (m *MIDIOut) Name() string { return "midi" }

// Close releases any sounding notes, sends all-notes-off, and shuts
// the driver down.
func (m *MIDIOut) Close() error {
	m.mu.Lock()
	for pitch := range m.open {
		m.send(gomidi.NoteOff(midiChannel, uint8(pitch)))
		delete(m.open, pitch)
	}
	m.mu.Unlock()

	// CC123: all notes off, in case the device tracked anything we lost.
	if err := m.send(gomidi.ControlChange(midiChannel, 123, 0)); err != nil {
		log.Printf("midi: all-notes-off failed: %v", err)
	}

	gomidi.CloseDriver()
	return nil
}
