package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STOCKTAKE_EXTRA_POLICY", "")
	t.Setenv("BARCODE_TTL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.StockTakeExtraPolicy != "extra_as_new" {
		t.Fatalf("expected default extra policy, got %q", cfg.StockTakeExtraPolicy)
	}
	if cfg.BarcodeTTLSeconds != 86400 {
		t.Fatalf("expected barcode TTL fallback, got %d", cfg.BarcodeTTLSeconds)
	}
}
