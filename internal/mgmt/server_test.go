package mgmt

import (
	"testing"

	"steerd/internal/config"
)

func TestApplyFieldsSetsNamedFieldsCaseInsensitively(t *testing.T) {
	cfg := config.Default()
	applyFields(cfg, map[string]string{
		"debuglevel":        "2",
		"LoadKickEnabled":   "true",
		"roamtriggersnr":    "-70",
		"NodeUpScript":      "/etc/steerd/up.sh",
	})

	if cfg.DebugLevel != 2 {
		t.Errorf("DebugLevel = %d, want 2", cfg.DebugLevel)
	}
	if !cfg.LoadKickEnabled {
		t.Errorf("LoadKickEnabled = %v, want true", cfg.LoadKickEnabled)
	}
	if cfg.RoamTriggerSNR != -70 {
		t.Errorf("RoamTriggerSNR = %d, want -70", cfg.RoamTriggerSNR)
	}
	if cfg.NodeUpScript != "/etc/steerd/up.sh" {
		t.Errorf("NodeUpScript = %q, want /etc/steerd/up.sh", cfg.NodeUpScript)
	}
}

func TestApplyFieldsIgnoresUnknownFields(t *testing.T) {
	cfg := config.Default()
	before := cfg.DebugLevel
	applyFields(cfg, map[string]string{"no_such_field": "1"})

	if cfg.DebugLevel != before {
		t.Fatalf("applyFields mutated the config for an unknown field")
	}
}

func TestApplyFieldsIgnoresUnparsableValue(t *testing.T) {
	cfg := config.Default()
	before := cfg.DebugLevel
	applyFields(cfg, map[string]string{"debuglevel": "not-a-number"})

	if cfg.DebugLevel != before {
		t.Fatalf("DebugLevel = %d, want unchanged %d", cfg.DebugLevel, before)
	}
}

func TestApplyFieldsSplitsInterfacesOnComma(t *testing.T) {
	cfg := config.Default()
	applyFields(cfg, map[string]string{"interfaces": "wlan0,wlan1"})

	if len(cfg.Interfaces) != 2 || cfg.Interfaces[0] != "wlan0" || cfg.Interfaces[1] != "wlan1" {
		t.Fatalf("Interfaces = %v, want [wlan0 wlan1]", cfg.Interfaces)
	}
}
