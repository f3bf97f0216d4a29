// ABOUTME: YAML score loader - the parsed-score boundary of the engine
// ABOUTME: Maps score files to the immutable Score model or a ParseError
package score

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseError reports an unreadable or malformed score file. The
// controller skips the score and moves on.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type scoreFile struct {
	Title  string      `yaml:"title"`
	Tempo  []tempoFile `yaml:"tempo"`
	Voices []voiceFile `yaml:"voices"`
}

type tempoFile struct {
	Beat float64 `yaml:"beat"`
	BPM  float64 `yaml:"bpm"`
}

type voiceFile struct {
	Name  string     `yaml:"name"`
	Notes []noteFile `yaml:"notes"`
}

type noteFile struct {
	Pitch       int     `yaml:"pitch"`
	Onset       float64 `yaml:"onset"`
	Duration    float64 `yaml:"duration"`
	Dynamic     string  `yaml:"dynamic,omitempty"`
	Staccato    bool    `yaml:"staccato,omitempty"`
	TieFromPrev bool    `yaml:"tie_from_prev,omitempty"`
	TieToNext   bool    `yaml:"tie_to_next,omitempty"`
}

var dynamicNames = map[string]Dynamic{
	"":   DynamicNone,
	"pp": DynamicPP,
	"p":  DynamicP,
	"mp": DynamicMP,
	"mf": DynamicMF,
	"f":  DynamicF,
	"ff": DynamicFF,
}

// Load reads a YAML score file. Any failure comes back as a *ParseError.
func Load(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var sf scoreFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	s := &Score{Title: sf.Title}
	for _, tc := range sf.Tempo {
		if tc.BPM <= 0 {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("tempo at beat %g has non-positive bpm %g", tc.Beat, tc.BPM)}
		}
		s.Tempo = append(s.Tempo, TempoChange{Beat: tc.Beat, BPM: tc.BPM})
	}

	for vi, vf := range sf.Voices {
		voice := Voice{Name: vf.Name}
		for ni, nf := range vf.Notes {
			dyn, ok := dynamicNames[nf.Dynamic]
			if !ok {
				return nil, &ParseError{Path: path, Err: fmt.Errorf("voice %d note %d: unknown dynamic %q", vi, ni, nf.Dynamic)}
			}
			if nf.Pitch < 0 || nf.Pitch > 127 {
				return nil, &ParseError{Path: path, Err: fmt.Errorf("voice %d note %d: pitch %d out of MIDI range", vi, ni, nf.Pitch)}
			}
			if nf.Duration <= 0 {
				return nil, &ParseError{Path: path, Err: fmt.Errorf("voice %d note %d: non-positive duration %g", vi, ni, nf.Duration)}
			}
			voice.Notes = append(voice.Notes, Note{
				Pitch:       nf.Pitch,
				Onset:       nf.Onset,
				Duration:    nf.Duration,
				Dynamic:     dyn,
				Staccato:    nf.Staccato,
				TieFromPrev: nf.TieFromPrev,
				TieToNext:   nf.TieToNext,
			})
		}
		s.Voices = append(s.Voices, voice)
	}

	return s, nil
}
