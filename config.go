/*
Package main
File: config.go
Description: Server tuning loaded from config.yaml. Missing keys keep their
defaults; the result is validated before the server starts.
*/

package main

import (
	"fmt"
	"os"

	"github.com/everforgeworks/metro-lines/internal/game"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
}

type SimulationConfig struct {
	TickRate            float64 `yaml:"tick_rate" validate:"gt=0"`
	MaxFrameSeconds     float64 `yaml:"max_frame_seconds" validate:"gt=0"`
	AvgWaitGraceSeconds float64 `yaml:"avg_wait_grace_seconds" validate:"gte=0"`
	BroadcastRate       float64 `yaml:"broadcast_rate" validate:"gt=0"`
	Seed                int64   `yaml:"seed"`
	PickRadius          float64 `yaml:"pick_radius" validate:"gt=0"`
}

type TrainConfig struct {
	BaseSpeed float64 `yaml:"base_speed" validate:"gt=0"`
	SpeedStep float64 `yaml:"speed_step" validate:"gte=0"`
	Capacity  int     `yaml:"capacity" validate:"gt=0"`
}

// AppConfig is the root structure of 'config.yaml'.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	Trains     TrainConfig      `yaml:"trains"`
	LevelsPath string           `yaml:"levels_path" validate:"required"`
	Palette    []string         `yaml:"palette" validate:"min=1,dive,hexcolor"`
}

// DefaultAppConfig is used for every key config.yaml leaves out.
func DefaultAppConfig() AppConfig {
	s := game.DefaultSettings()
	return AppConfig{
		Server: ServerConfig{Port: 8081},
		Simulation: SimulationConfig{
			TickRate:            s.TickRate,
			MaxFrameSeconds:     s.MaxFrameSeconds,
			AvgWaitGraceSeconds: s.AvgWaitGraceSeconds,
			BroadcastRate:       10,
			PickRadius:          s.PickRadius,
		},
		Trains: TrainConfig{
			BaseSpeed: s.TrainBaseSpeed,
			SpeedStep: s.TrainSpeedStep,
			Capacity:  s.TrainCapacity,
		},
		LevelsPath: "levels.yaml",
		Palette:    append([]string(nil), game.DefaultPalette...),
	}
}

// LoadAppConfig reads path on top of the defaults. A missing file is not an
// error: the defaults are returned.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Settings converts the file layout into the session tunables.
func (c AppConfig) Settings() game.Settings {
	return game.Settings{
		TickRate:            c.Simulation.TickRate,
		MaxFrameSeconds:     c.Simulation.MaxFrameSeconds,
		AvgWaitGraceSeconds: c.Simulation.AvgWaitGraceSeconds,
		TrainBaseSpeed:      c.Trains.BaseSpeed,
		TrainSpeedStep:      c.Trains.SpeedStep,
		TrainCapacity:       c.Trains.Capacity,
		Palette:             c.Palette,
		Seed:                c.Simulation.Seed,
		PickRadius:          c.Simulation.PickRadius,
	}
}

// Addr is the listen address for http.ListenAndServe.
func (c AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
