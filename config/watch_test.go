package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tickwheel.yaml")
	content := "log_level: warn\ntiers: [10, 60, 60, 24]\nduplicate_policy: replace\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadConfig(file, nil); err != nil {
		t.Fatal(err)
	}
	if Config.LogLevel != "warn" || len(Config.Tiers) != 4 || Config.DuplicatePolicy != "replace" {
		t.Fatalf("yaml not applied: %s", Config.JsonFormat())
	}
	if Config.TickMs != 100 {
		t.Fatalf("defaults lost: %s", Config.JsonFormat())
	}
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "tickwheel.json")
	if err := os.WriteFile(file, []byte(`{"log_level": "info"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadConfig(file, nil); err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(file, nil)
	changed := make(chan *AppConfig, 4)
	w.OnChange = func(conf *AppConfig) { changed <- conf }
	if err := w.OnInit(); err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	go w.Run()
	defer w.Destroy()

	// 非法配置不回调
	if err := os.WriteFile(file, []byte(`{"tick_ms": -1}`), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * reloadDelay)
	if err := os.WriteFile(file, []byte(`{"log_level": "debug"}`), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case conf := <-changed:
		if conf.LogLevel != "debug" {
			t.Fatalf("reloaded %s", conf.JsonFormat())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}
