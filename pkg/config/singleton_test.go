package config

import (
	"sync"
	"testing"
)

func TestSetAndGetConfig(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	cfg := validConfig()
	cfg.Worker.ID = "singleton-test"
	SetConfig(cfg)

	got := GetConfig()
	if got == nil {
		t.Fatal("expected config after SetConfig")
	}
	if got.Worker.ID != "singleton-test" {
		t.Errorf("expected worker id %q, got %q", "singleton-test", got.Worker.ID)
	}
}

func TestMustGetConfig_PanicsWhenUnset(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	SetConfig(nil)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustGetConfig to panic when config is unset")
		}
	}()
	MustGetConfig()
}

func TestGetConfig_ConcurrentAccess(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	SetConfig(validConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if cfg := GetConfig(); cfg == nil {
					t.Error("expected non-nil config during concurrent reads")
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				SetConfig(validConfig())
			}
		}()
	}
	wg.Wait()
}
