// ABOUTME: Diagnostic tool to check score files against a backend range
// ABOUTME: Reports per-score analysis without making any sound
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/clavier-project/clavier-go/internal/analyze"
	"github.com/clavier-project/clavier-go/internal/backend"
	"github.com/clavier-project/clavier-go/internal/library"
	"github.com/clavier-project/clavier-go/internal/score"
	"github.com/clavier-project/clavier-go/internal/sequence"
)

var (
	scoresDir = flag.String("scores", "scores", "Directory with score files")
	tolerance = flag.Int("tolerance", 0, "Semitones allowed outside the backend range")
	low       = flag.Int("low", backend.KeySimLow, "Lowest supported pitch")
	high      = flag.Int("high", backend.KeySimHigh, "Highest supported pitch")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	supported := score.PitchRange{Low: *low, High: *high}
	lib := library.Scan(*scoresDir)
	if lib.Len() == 0 {
		log.Fatalf("no scores found in %s", *scoresDir)
	}

	fmt.Printf("checking %d scores against %s, tolerance %d\n\n", lib.Len(), supported, *tolerance)

	failures := 0
	for i := 0; i < lib.Len(); i++ {
		if err := check(lib, i, supported); err != nil {
			fmt.Printf("%-30s FAIL  %v\n", lib.Name(i), err)
			failures++
		}
	}

	if failures > 0 {
		fmt.Printf("\n%d of %d scores unplayable\n", failures, lib.Len())
		os.Exit(1)
	}
	fmt.Println("\nall scores playable")
}

func check(lib *library.Library, i int, supported score.PitchRange) error {
	s, err := lib.Load(i)
	if err != nil {
		return err
	}

	dec, err := analyze.Analyze(s, supported, *tolerance)
	if err != nil {
		return err
	}

	timeline, err := sequence.Build(s, dec, sequence.DefaultPolicy())
	if err != nil {
		return err
	}

	mode := dec.Mode.String()
	if dec.OctaveOffset != 0 {
		mode = fmt.Sprintf("%s %+d", mode, dec.OctaveOffset)
	}
	r, _ := s.FullRange()
	fmt.Printf("%-30s ok    %-12s range %-10s %d events, %v\n",
		lib.Name(i), mode, r, len(timeline), timeline.Duration().Round(10*time.Millisecond))
	return nil
}
