package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type OutputCfg struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	PixelRatio float64 `yaml:"pixel_ratio"` // capped to 2 by the engine
	MaxFPS     int     `yaml:"max_fps"`
}

type PostCfg struct {
	Brightness float64 `yaml:"brightness"` // 0 disables
	Gamma      float64 `yaml:"gamma"`      // 0 disables
}

type AudioCfg struct {
	Bins int  `yaml:"bins"`
	Demo bool `yaml:"demo"` // synthesize a feed when no source is wired
}

type Config struct {
	Addr     string  `yaml:"addr"` // websocket/control listen address
	StoreDir string  `yaml:"store_dir"`
	BPM      float64 `yaml:"bpm"`
	Global   float64 `yaml:"global_opacity"` // 0..1

	Output OutputCfg `yaml:"output"`
	Post   PostCfg   `yaml:"post,omitempty"`
	Audio  AudioCfg  `yaml:"audio,omitempty"`
}

// Default is the config used when no file is given.
func Default() *Config {
	return &Config{
		Addr:     ":8089",
		StoreDir: "presets-state",
		BPM:      120,
		Global:   1.0,
		Output:   OutputCfg{Width: 1280, Height: 720, PixelRatio: 1, MaxFPS: 60},
		Audio:    AudioCfg{Bins: 32, Demo: true},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
