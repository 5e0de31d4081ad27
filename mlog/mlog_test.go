package mlog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != DebugLevel || ParseLevel(" warn ") != WarnLevel {
		t.Fatal("parse")
	}
	if ParseLevel("nope") != InfoLevel {
		t.Fatal("unknown level should default to info")
	}
	if TraceLevel.String() != "trace" {
		t.Fatal("string")
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewWriterLogger(&buf, InfoLevel))
	defer SetLogger(nil)
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	Warn("warned")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug leaked: %s", out)
	}
	if !strings.Contains(out, "[info] shown 2") || !strings.Contains(out, "[warn] warned") {
		t.Fatalf("output: %s", out)
	}
}

func TestNilLogger(t *testing.T) {
	SetLogger(nil)
	Infof("no logger %d", 1)
	Error("no logger")
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	if err := UseFileLogger(ctx, wg, dir, "test", DebugLevel, false); err != nil {
		t.Fatal(err)
	}
	Infof("file line %d", 7)
	cancel()
	wg.Wait()
	SetLogger(nil)
	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[info] file line 7") {
		t.Fatalf("file content: %s", data)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewWriterLogger(&buf, InfoLevel))
	defer SetLogger(nil)
	Debug("before")
	if !SetLevel(DebugLevel) {
		t.Fatal("writer logger should support SetLevel")
	}
	Debug("after")
	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "[debug] after") {
		t.Fatalf("output: %s", out)
	}
	SetLogger(nil)
	if SetLevel(InfoLevel) {
		t.Fatal("nil logger cannot change level")
	}
}
