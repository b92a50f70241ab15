package config

import (
	"os"
	"testing"
)

func TestGetIntBool(t *testing.T) {
	os.Setenv("X_INT", "42")
	t.Cleanup(func() { os.Unsetenv("X_INT") })
	if v := getInt("X_INT", 1); v != 42 {
		t.Fatalf("want 42, got %d", v)
	}

	os.Setenv("X_BOOL_T", "true")
	os.Setenv("X_BOOL_F", "false")
	t.Cleanup(func() { os.Unsetenv("X_BOOL_T"); os.Unsetenv("X_BOOL_F") })
	if !getBool("X_BOOL_T", false) {
		t.Fatalf("want true")
	}
	if getBool("X_BOOL_F", true) {
		t.Fatalf("want false")
	}
}

func TestGetList(t *testing.T) {
	os.Setenv("X_LIST", "a, b ,,c")
	t.Cleanup(func() { os.Unsetenv("X_LIST") })
	got := getList("X_LIST", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %v", got)
	}
	if def := getList("X_LIST_MISSING", []string{"d"}); len(def) != 1 || def[0] != "d" {
		t.Fatalf("default not applied: %v", def)
	}
}

func TestStoreValidatorsRollback(t *testing.T) {
	cfg := &Config{}
	cfg.PG.MaxOpenConns = 10
	cfg.PG.MaxIdleConns = 5
	store := NewStore(cfg)

	store.AddValidator(func(newCfg *Config, changed map[string]bool) error {
		if newCfg.PG.MaxIdleConns > newCfg.PG.MaxOpenConns {
			return os.ErrInvalid
		}
		return nil
	})

	bad := cloneConfig(cfg)
	bad.PG.MaxIdleConns = 99
	if store.UpdateValidated(bad, map[string]bool{"pg.max_idle": true}) {
		t.Fatal("invalid config was accepted")
	}
	if store.Get().PG.MaxIdleConns != 5 {
		t.Fatalf("store mutated by rejected update: %d", store.Get().PG.MaxIdleConns)
	}

	good := cloneConfig(cfg)
	good.PG.MaxIdleConns = 8
	if !store.UpdateValidated(good, map[string]bool{"pg.max_idle": true}) {
		t.Fatal("valid config rejected")
	}
	if store.Get().PG.MaxIdleConns != 8 {
		t.Fatalf("update not applied: %d", store.Get().PG.MaxIdleConns)
	}
}

func TestCookieSecureFollowsEnvironment(t *testing.T) {
	cfg := &Config{Environment: "development"}
	if cfg.CookieSecure() {
		t.Fatal("dev cookies must not require https")
	}
	cfg.Environment = "production"
	if !cfg.CookieSecure() {
		t.Fatal("production cookies must require https")
	}
}
