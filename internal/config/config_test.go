package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPAddr == "" {
		t.Fatalf("expected HTTPAddr to be set")
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("default DBDriver = %q, want sqlite", cfg.DBDriver)
	}
	if len(cfg.TableLabels) == 0 {
		t.Fatalf("expected default table labels")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad driver", "DB_DRIVER", "oracle"},
		{"bad redis db", "REDIS_DB", "not-a-number"},
		{"zero rate limit", "ORDER_RATE_LIMIT", "0"},
		{"zero lock ttl", "TABLE_LOCK_TTL_SEC", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_TableCSV(t *testing.T) {
	t.Setenv("CAFE_TABLES", " T01, ,T02 ,T03")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := []string{"T01", "T02", "T03"}
	if len(cfg.TableLabels) != len(want) {
		t.Fatalf("TableLabels = %v, want %v", cfg.TableLabels, want)
	}
	for i := range want {
		if cfg.TableLabels[i] != want[i] {
			t.Errorf("TableLabels[%d] = %q, want %q", i, cfg.TableLabels[i], want[i])
		}
	}
}
