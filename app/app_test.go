package app

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type testModule struct {
	name    string
	initErr error
	mu      *sync.Mutex
	events  *[]string
	done    chan struct{}
}

func newTestModule(name string, mu *sync.Mutex, events *[]string) *testModule {
	return &testModule{name: name, mu: mu, events: events, done: make(chan struct{})}
}

func (m *testModule) record(ev string) {
	m.mu.Lock()
	*m.events = append(*m.events, m.name+":"+ev)
	m.mu.Unlock()
}

func (m *testModule) OnInit() error {
	m.record("init")
	return m.initErr
}

func (m *testModule) Run() {
	<-m.done
}

func (m *testModule) Destroy() {
	m.record("destroy")
	close(m.done)
}

func (m *testModule) Name() string {
	return m.name
}

func TestAppRunStop(t *testing.T) {
	var mu sync.Mutex
	var events []string
	a, b := newTestModule("a", &mu, &events), newTestModule("b", &mu, &events)
	app := New()
	done := make(chan error, 1)
	go func() { done <- app.Run(a, b) }()
	app.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	want := []string{"a:init", "b:init", "b:destroy", "a:destroy"}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != len(want) {
		t.Fatalf("events %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events %v", events)
		}
	}
	if app.GetState() != AppStateNone {
		t.Fatalf("state %d", app.GetState())
	}
}

func TestAppInitError(t *testing.T) {
	var mu sync.Mutex
	var events []string
	a, b := newTestModule("a", &mu, &events), newTestModule("b", &mu, &events)
	b.initErr = errors.New("boom")
	if err := New().Run(a, b); err == nil {
		t.Fatal("init error not returned")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 3 || events[2] != "a:destroy" {
		t.Fatalf("events %v", events)
	}
}
