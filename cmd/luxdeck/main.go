package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/compositor"
	"github.com/coreman2200/luxdeck/internal/config"
	"github.com/coreman2200/luxdeck/internal/diagnostics"
	"github.com/coreman2200/luxdeck/internal/engine"
	"github.com/coreman2200/luxdeck/internal/presets"
	"github.com/coreman2200/luxdeck/internal/store"
	"github.com/coreman2200/luxdeck/internal/tempo"
	"github.com/coreman2200/luxdeck/internal/ws"
)

func main() {
	// ---- Flags (config.yaml can override most) ----
	var (
		addr       = flag.String("addr", ":8089", "HTTP listen address")
		width      = flag.Int("width", 1280, "output width (logical px)")
		height     = flag.Int("height", 720, "output height (logical px)")
		pixelRatio = flag.Float64("pixel-ratio", 1.0, "device pixel ratio (capped at 2)")
		fps        = flag.Int("fps", 60, "render frame-rate cap")
		clientFPS  = flag.Int("client-fps", 20, "preview stream frame-rate cap")
		storeDir   = flag.String("store", "presets-state", "per-preset config persistence directory")
		bpm        = flag.Float64("bpm", 120, "initial tempo")
		demoAudio  = flag.Bool("demo-audio", true, "synthesize an audio feed")
		configPath = flag.String("config", "luxdeck.yaml", "path to config file")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config file (optional) ----
	var cfg *config.Config
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	eAddr, eStore := *addr, *storeDir
	eW, eH, eRatio, eFPS := *width, *height, *pixelRatio, *fps
	eBPM := *bpm
	eDemo := *demoAudio
	var post compositor.PostPipeline
	if cfg != nil {
		if cfg.Addr != "" {
			eAddr = cfg.Addr
		}
		if cfg.StoreDir != "" {
			eStore = cfg.StoreDir
		}
		if cfg.Output.Width > 0 {
			eW = cfg.Output.Width
		}
		if cfg.Output.Height > 0 {
			eH = cfg.Output.Height
		}
		if cfg.Output.PixelRatio > 0 {
			eRatio = cfg.Output.PixelRatio
		}
		if cfg.Output.MaxFPS > 0 {
			eFPS = cfg.Output.MaxFPS
		}
		if cfg.BPM > 0 {
			eBPM = cfg.BPM
		}
		eDemo = cfg.Audio.Demo
		post = compositor.PostPipeline{Brightness: cfg.Post.Brightness, Gamma: cfg.Post.Gamma}
	}

	// ---- Engine ----
	diags := diagnostics.NewRecorder(64)
	eng, err := engine.New(engine.Options{
		Width:      eW,
		Height:     eH,
		PixelRatio: eRatio,
		MaxFPS:     eFPS,
		Post:       post,
	}, presets.Catalog(), store.NewFileStore(eStore), nil, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("engine construction failed")
	}

	state := ws.NewState(eng, diags, *clientFPS)
	eng.SetSink(state)

	ctx, stop := context.WithCancel(context.Background())
	if err := eng.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}
	if cfg != nil && cfg.Global > 0 {
		eng.SetGlobalOpacity(cfg.Global)
	}

	// ---- Tempo clock ----
	clock := tempo.NewClock(eBPM, tempo.Hooks{
		OnBeat: eng.TriggerBeat,
		OnBPM:  eng.UpdateBpm,
	}, log.Logger)
	clock.Start(ctx)

	// ---- Demo audio feed ----
	if eDemo {
		go func() {
			feed := audio.NewDemoFeed(32)
			const dt = 20 * time.Millisecond
			ticker := time.NewTicker(dt)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					eng.UpdateAudioData(feed.Next(dt.Seconds()))
				}
			}
		}()
	}

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", state.HandleFramesWS)
	mux.HandleFunc("/diag", state.HandleDiagWS)
	mux.HandleFunc("/control", state.HandleControlWS)
	mux.HandleFunc("/health", state.HandleHealth)

	srv := &http.Server{
		Addr:         eAddr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", eAddr).Int("fps", eFPS).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	_ = srv.Close()
	stop()
	clock.Stop()
	eng.Dispose()
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
