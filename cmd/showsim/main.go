// showsim runs a show file headless against the real pipeline and prints
// what the cue player does, plus per-cue frame statistics. Useful for
// checking a show before a gig without a display attached.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/cue"
	"github.com/coreman2200/luxdeck/internal/engine"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/presets"
	"github.com/coreman2200/luxdeck/internal/store"
)

// summarySink aggregates frames instead of displaying them.
type summarySink struct {
	frames  int
	sumLuma float64
	sumA    float64
}

func (s *summarySink) Write(frame *gfx.Target) error {
	s.frames++
	pix := frame.Pix()
	if len(pix) == 0 {
		return nil
	}
	var luma, a float64
	for _, c := range pix {
		luma += float64(0.2126*c.R + 0.7152*c.G + 0.0722*c.B)
		a += float64(c.A)
	}
	n := float64(len(pix))
	s.sumLuma += luma / n
	s.sumA += a / n
	return nil
}

func (s *summarySink) report() (frames int, avgLuma, avgAlpha float64) {
	if s.frames == 0 {
		return 0, 0, 0
	}
	return s.frames, s.sumLuma / float64(s.frames), s.sumA / float64(s.frames)
}

func main() {
	var showPath string
	var fps int
	var demoAudio bool
	flag.StringVar(&showPath, "show", "", "path to a show file (show.v1)")
	flag.IntVar(&fps, "fps", 60, "simulation frames per second")
	flag.BoolVar(&demoAudio, "demo-audio", true, "feed synthesized audio")
	flag.Parse()

	if showPath == "" {
		log.Fatal("provide -show path to a show file")
	}
	prog, err := cue.ReadProgram(showPath)
	if err != nil {
		log.Fatalf("show: %v", err)
	}

	sink := &summarySink{}
	eng, err := engine.New(engine.Options{Width: 320, Height: 180, MaxFPS: fps},
		presets.Catalog(), store.NewMemStore(), sink, zerolog.Nop())
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	defer eng.Dispose()
	eng.LoadPresets()

	player := cue.NewPlayer(cue.Hooks{
		Activate: func(layerID, presetID string) bool {
			fmt.Printf("[Activate] %s <- %s\n", layerID, presetID)
			return eng.ActivateLayerPreset(layerID, presetID)
		},
		Deactivate: func(layerID string) {
			fmt.Printf("[Deactivate] %s\n", layerID)
			eng.DeactivateLayerPreset(layerID)
		},
		SetLayerOpacity:  eng.SetLayerOpacity,
		SetGlobalOpacity: eng.SetGlobalOpacity,
		SetParam: func(layerID, path string, v float64) {
			eng.UpdateLayerPresetConfig(layerID, path, v)
		},
		SetBPM: func(bpm float64) {
			fmt.Printf("[BPM] %.1f\n", bpm)
			eng.UpdateBpm(bpm)
		},
	})
	if err := player.Load(prog); err != nil {
		log.Fatalf("load: %v", err)
	}
	player.Start()

	feed := audio.NewDemoFeed(32)
	dt := 1.0 / float64(fps)
	start := time.Now()
	for frame := 0; ; frame++ {
		if demoAudio {
			eng.UpdateAudioData(feed.Next(dt))
		}
		player.Tick(dt)
		eng.RenderFrame()
		if player.State == cue.Idle {
			break
		}
		if prog.Loop && float64(frame)*dt > totalDuration(prog) {
			// one full pass of a looping show is enough for a check run
			break
		}
	}

	frames, luma, alpha := sink.report()
	fmt.Printf("done: wall=%.2fs frames=%d avg_luma=%.3f avg_alpha=%.3f\n",
		time.Since(start).Seconds(), frames, luma, alpha)
	if frames == 0 || alpha == 0 {
		fmt.Println("warning: show produced no visible output")
		os.Exit(1)
	}
}

func totalDuration(p cue.Program) float64 {
	total := 0.0
	for _, c := range p.Cues {
		total += c.DurationS
	}
	return total
}
