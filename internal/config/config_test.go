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
	t.Setenv("FALLBACK_COST_PERCENT", "")
	t.Setenv("LOW_STOCK_THRESHOLD", "")
	t.Setenv("CRITICAL_STOCK_THRESHOLD", "")

	cfg := Load()
	if cfg.FallbackCostPercent != 70 {
		t.Fatalf("expected fallback cost percent 70, got %d", cfg.FallbackCostPercent)
	}
	if cfg.LowStockThreshold != 10 || cfg.CriticalStockThreshold != 5 {
		t.Fatalf("unexpected stock thresholds: low=%d critical=%d", cfg.LowStockThreshold, cfg.CriticalStockThreshold)
	}
}

func TestLoadClampsBadValues(t *testing.T) {
	t.Setenv("FALLBACK_COST_PERCENT", "150")
	t.Setenv("LOW_STOCK_THRESHOLD", "4")
	t.Setenv("CRITICAL_STOCK_THRESHOLD", "9")

	cfg := Load()
	if cfg.FallbackCostPercent != 70 {
		t.Fatalf("expected out-of-range percent to fall back to 70, got %d", cfg.FallbackCostPercent)
	}
	// The critical threshold never exceeds the low threshold.
	if cfg.CriticalStockThreshold > cfg.LowStockThreshold {
		t.Fatalf("critical threshold %d exceeds low threshold %d", cfg.CriticalStockThreshold, cfg.LowStockThreshold)
	}
}
