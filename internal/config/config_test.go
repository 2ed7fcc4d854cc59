package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "CALL_SCRIPT", "AUTO_START", "FRAME_INTERVAL", "WAVEFORM_WIDTH", "NATS_ENABLED", "AUTH_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.Script != "clinic-intake" {
		t.Errorf("Script = %q, want %q", cfg.Script, "clinic-intake")
	}
	if !cfg.AutoStart {
		t.Error("AutoStart should default to true")
	}
	if cfg.FrameInterval != 16*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 16ms", cfg.FrameInterval)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("TickInterval = %v, want 1s", cfg.TickInterval)
	}
	if cfg.WaveformWidth != 800 || cfg.WaveformHeight != 100 {
		t.Errorf("waveform = %dx%d, want 800x100", cfg.WaveformWidth, cfg.WaveformHeight)
	}
	if cfg.NATSEnabled {
		t.Error("NATSEnabled should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv("CALL_SCRIPT", "clinic-followup")
	t.Setenv("AUTO_START", "false")
	t.Setenv("FRAME_INTERVAL", "33ms")
	t.Setenv("WAVEFORM_WIDTH", "400")
	t.Setenv("NATS_ENABLED", "true")

	cfg := Load()
	if cfg.Script != "clinic-followup" {
		t.Errorf("Script = %q", cfg.Script)
	}
	if cfg.AutoStart {
		t.Error("AutoStart should be false")
	}
	if cfg.FrameInterval != 33*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 33ms", cfg.FrameInterval)
	}
	if cfg.WaveformWidth != 400 {
		t.Errorf("WaveformWidth = %d, want 400", cfg.WaveformWidth)
	}
	if !cfg.NATSEnabled {
		t.Error("NATSEnabled should be true")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WAVEFORM_HEIGHT", "tall")
	t.Setenv("TICK_INTERVAL", "soon")

	cfg := Load()
	if cfg.WaveformHeight != 100 {
		t.Errorf("WaveformHeight = %d, want default 100", cfg.WaveformHeight)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("TickInterval = %v, want default 1s", cfg.TickInterval)
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.FrameInterval = 0
	cfg.WaveformWidth = -1
	cfg.AuthEnabled = true
	cfg.JWTSecret = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error")
	}
}
