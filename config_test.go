package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/everforgeworks/metro-lines/internal/game"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultAppConfig()) {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Addr() != ":8081" {
		t.Errorf("Addr = %s", cfg.Addr())
	}
}

func TestLoadAppConfigOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
trains:
  capacity: 12
`)
	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Trains.Capacity != 12 {
		t.Errorf("overrides lost: %+v", cfg)
	}
	if cfg.Trains.BaseSpeed != 95 || cfg.Simulation.TickRate != 60 || cfg.LevelsPath != "levels.yaml" {
		t.Errorf("defaults lost: %+v", cfg)
	}

	s := cfg.Settings()
	if s.TrainCapacity != 12 || s.MaxFrameSeconds != 0.25 || s.AvgWaitGraceSeconds != 10 || s.PickRadius != 22 {
		t.Errorf("settings = %+v", s)
	}
}

func TestLoadAppConfigValidation(t *testing.T) {
	cases := map[string]string{
		"port out of range": "server: {port: 70000}\n",
		"zero tick rate":    "simulation: {tick_rate: 0}\n",
		"bad color":         "palette: [red]\n",
		"empty palette":     "palette: []\n",
		"zero capacity":     "trains: {capacity: 0}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadAppConfig(writeConfig(t, body)); err == nil {
				t.Fatal("expected a validation error")
			} else if !strings.Contains(err.Error(), "validate") {
				t.Errorf("err = %v", err)
			}
		})
	}

	if _, err := LoadAppConfig(writeConfig(t, "server: [")); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("malformed yaml err = %v", err)
	}
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadAppConfig("config.yaml")
	if err != nil {
		t.Fatalf("config.yaml: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultAppConfig()) {
		t.Errorf("config.yaml drifted from the defaults:\n got %+v\nwant %+v", cfg, DefaultAppConfig())
	}
	if _, err := game.LoadLevels(cfg.LevelsPath); err != nil {
		t.Errorf("levels referenced by config.yaml: %v", err)
	}
}
