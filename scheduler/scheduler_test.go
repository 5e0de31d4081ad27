package scheduler

import (
	"errors"
	"reflect"
	"testing"
	"time"

	bclock "github.com/andres-erbsen/clock"

	"github.com/fixkme/tickwheel/errs"
	"github.com/fixkme/tickwheel/registry"
)

func newTestScheduler(t *testing.T, opts Options) (*Scheduler, *bclock.Mock) {
	mock := bclock.NewMock()
	opts.Clock = mock
	s, err := New(opts)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s, mock
}

func mustPoll(t *testing.T, s *Scheduler, ticks int64) []string {
	out, err := s.Poll(ticks)
	if err != nil {
		t.Fatalf("poll %d: %v", ticks, err)
	}
	return out
}

func TestRealDelayFive(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	if err := s.Start(Real, "a", 5); err != nil {
		t.Fatal(err)
	}
	mock.Add(400 * time.Millisecond)
	if got := mustPoll(t, s, 0); len(got) != 0 {
		t.Fatalf("fired early: %v", got)
	}
	mock.Add(100 * time.Millisecond)
	if got := mustPoll(t, s, 0); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("expected [a], got %v", got)
	}
	if s.Pending(Real) != 0 || s.Contains(Real, "a") {
		t.Fatal("expired timer still registered")
	}
}

func TestRealCascadeSinglePolls(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	if err := s.Start(Real, "b", 1000); err != nil {
		t.Fatal(err)
	}
	fired := 0
	for i := 1; i <= 1000; i++ {
		mock.Add(100 * time.Millisecond)
		got := mustPoll(t, s, 0)
		if len(got) == 0 {
			continue
		}
		if i != 1000 || !reflect.DeepEqual(got, []string{"b"}) {
			t.Fatalf("poll %d: unexpected %v", i, got)
		}
		fired++
	}
	if fired != 1 {
		t.Fatalf("fired %d times", fired)
	}
}

func TestRealRemainderCarried(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	s.Start(Real, "r", 2)
	mock.Add(150 * time.Millisecond)
	if got := mustPoll(t, s, 0); len(got) != 0 {
		t.Fatalf("fired early: %v", got)
	}
	mock.Add(50 * time.Millisecond)
	if got := mustPoll(t, s, 0); len(got) != 1 {
		t.Fatalf("remainder lost: %v", got)
	}
}

func TestStopBeforeFire(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	s.Start(Real, "c", 10)
	if !s.Stop("c") {
		t.Fatal("stop should find c")
	}
	mock.Add(2 * time.Second)
	if got := mustPoll(t, s, 0); len(got) != 0 {
		t.Fatalf("stopped timer fired: %v", got)
	}
	if s.Stop("c") {
		t.Fatal("second stop should report not found")
	}
	if s.Stop("never") {
		t.Fatal("unknown id should report not found")
	}
}

func TestStopBothDomains(t *testing.T) {
	s, _ := newTestScheduler(t, Options{})
	s.Start(Real, "dup", 10)
	s.Start(External, "dup", 10)
	if !s.Stop("dup") {
		t.Fatal("stop failed")
	}
	if s.Contains(Real, "dup") || s.Contains(External, "dup") {
		t.Fatal("id left in a domain")
	}
}

func TestExternalCounters(t *testing.T) {
	s, _ := newTestScheduler(t, Options{})
	if got := mustPoll(t, s, 0); len(got) != 0 {
		t.Fatalf("baseline poll fired %v", got)
	}
	if err := s.Start(External, "e", 6); err != nil {
		t.Fatal(err)
	}
	wantRemaining := []uint64{1, 1, 0}
	for i, c := range []int64{5, 5} {
		if got := mustPoll(t, s, c); len(got) != 0 {
			t.Fatalf("counter %d fired %v", c, got)
		}
		if r, ok := s.Remaining(External, "e"); !ok || r != wantRemaining[i] {
			t.Fatalf("remaining=%d,%v after counter %d", r, ok, c)
		}
	}
	if got := mustPoll(t, s, 12); !reflect.DeepEqual(got, []string{"e"}) {
		t.Fatalf("expected [e], got %v", got)
	}
}

func TestExternalCounterReset(t *testing.T) {
	s, _ := newTestScheduler(t, Options{})
	mustPoll(t, s, 100)
	s.Start(External, "x", 3)
	mustPoll(t, s, 101)
	// 计数变小: 不推进, 作为新起点
	if got := mustPoll(t, s, 1); len(got) != 0 {
		t.Fatalf("reset fired %v", got)
	}
	if got := mustPoll(t, s, 3); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("expected [x], got %v", got)
	}
}

func TestExternalScale(t *testing.T) {
	s, _ := newTestScheduler(t, Options{ExternalScale: 10})
	mustPoll(t, s, 0)
	s.Start(External, "s", 2)
	if r, _ := s.Remaining(External, "s"); r != 20 {
		t.Fatalf("remaining=%d", r)
	}
	if got := mustPoll(t, s, 19); len(got) != 0 {
		t.Fatalf("fired early: %v", got)
	}
	if got := mustPoll(t, s, 20); len(got) != 1 {
		t.Fatalf("expected fire, got %v", got)
	}
}

func TestRealUnitScale(t *testing.T) {
	s, mock := newTestScheduler(t, Options{RealUnit: time.Second})
	s.Start(Real, "sec", 2)
	if r, _ := s.Remaining(Real, "sec"); r != 20 {
		t.Fatalf("remaining=%d", r)
	}
	mock.Add(2 * time.Second)
	if got := mustPoll(t, s, 0); len(got) != 1 {
		t.Fatalf("expected fire, got %v", got)
	}
}

func TestPollOrder(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	mustPoll(t, s, 0)
	s.Start(Real, "r1", 1)
	s.Start(Real, "r2", 2)
	s.Start(External, "e2", 2)
	s.Start(External, "e1", 1)
	mock.Add(300 * time.Millisecond)
	got := mustPoll(t, s, 3)
	want := []string{"e1", "e2", "r1", "r2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPollInvalidTicks(t *testing.T) {
	s, _ := newTestScheduler(t, Options{})
	mustPoll(t, s, 10)
	s.Start(External, "n", 1)
	if _, err := s.Poll(-1); !errors.Is(err, errs.InvalidTick) {
		t.Fatalf("expected invalid tick, got %v", err)
	}
	// 非法调用不能改变基准
	if got := mustPoll(t, s, 11); !reflect.DeepEqual(got, []string{"n"}) {
		t.Fatalf("expected [n], got %v", got)
	}
	if st := s.Stats(); st.Polls != 2 {
		t.Fatalf("polls=%d", st.Polls)
	}
}

func TestZeroTickPollIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t, Options{})
	mustPoll(t, s, 0)
	s.Start(External, "z", 1)
	for i := 0; i < 3; i++ {
		if got := mustPoll(t, s, 0); len(got) != 0 {
			t.Fatalf("zero tick poll fired %v", got)
		}
	}
	if got := mustPoll(t, s, 1); len(got) != 1 {
		t.Fatalf("expected fire, got %v", got)
	}
	if got := mustPoll(t, s, 1); len(got) != 0 {
		t.Fatalf("fired twice: %v", got)
	}
}

func TestStartErrors(t *testing.T) {
	s, _ := newTestScheduler(t, Options{})
	if err := s.Start(Real, "neg", -1); !errors.Is(err, errs.InvalidDelay) {
		t.Fatalf("expected invalid delay, got %v", err)
	}
	if err := s.Start(Real, "", 1); !errors.Is(err, errs.Parse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if err := s.Start(Real, "big", 36001); !errors.Is(err, errs.Capacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if err := s.Start(Real, "max", 36000); err != nil {
		t.Fatalf("capacity delay rejected: %v", err)
	}
	if err := s.Start(DomainKind(9), "x", 1); !errors.Is(err, errs.Domain) {
		t.Fatalf("expected domain error, got %v", err)
	}
	st := s.Stats()
	if st.Started != 1 || st.Rejected != 4 {
		t.Fatalf("stats %+v", st)
	}
}

func TestDuplicateReject(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	s.Start(Real, "d", 5)
	if err := s.Start(Real, "d", 2); !errors.Is(err, errs.IdScheduled) {
		t.Fatalf("expected id scheduled, got %v", err)
	}
	mock.Add(200 * time.Millisecond)
	if got := mustPoll(t, s, 0); len(got) != 0 {
		t.Fatalf("rejected start took effect: %v", got)
	}
	mock.Add(300 * time.Millisecond)
	if got := mustPoll(t, s, 0); !reflect.DeepEqual(got, []string{"d"}) {
		t.Fatalf("expected [d], got %v", got)
	}
}

func TestDuplicateReplace(t *testing.T) {
	s, mock := newTestScheduler(t, Options{Policy: registry.ReplaceDuplicate})
	s.Start(Real, "d", 5)
	if err := s.Start(Real, "d", 2); err != nil {
		t.Fatal(err)
	}
	if s.Pending(Real) != 1 {
		t.Fatalf("pending=%d", s.Pending(Real))
	}
	mock.Add(200 * time.Millisecond)
	if got := mustPoll(t, s, 0); !reflect.DeepEqual(got, []string{"d"}) {
		t.Fatalf("expected [d], got %v", got)
	}
	mock.Add(time.Second)
	if got := mustPoll(t, s, 0); len(got) != 0 {
		t.Fatalf("replaced timer fired: %v", got)
	}
}

func TestReset(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	session := s.Session()
	mustPoll(t, s, 50)
	s.Start(Real, "a", 3)
	s.Start(External, "b", 3)
	s.Reset()
	if s.Session() == session {
		t.Fatal("session not regenerated")
	}
	if s.Pending(Real) != 0 || s.Pending(External) != 0 {
		t.Fatal("timers survived reset")
	}
	mock.Add(time.Second)
	// reset后第一次poll重新记录基准
	if got := mustPoll(t, s, 3); len(got) != 0 {
		t.Fatalf("reset timers fired: %v", got)
	}
	s.Start(External, "c", 1)
	if got := mustPoll(t, s, 4); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("expected [c], got %v", got)
	}
}

func TestParseDomain(t *testing.T) {
	for _, s := range []string{"real", "REALTIME"} {
		if k, err := ParseDomain(s); err != nil || k != Real {
			t.Fatalf("%s -> %v,%v", s, k, err)
		}
	}
	for _, s := range []string{"external", "byond", " ext "} {
		if k, err := ParseDomain(s); err != nil || k != External {
			t.Fatalf("%s -> %v,%v", s, k, err)
		}
	}
	if _, err := ParseDomain("gametime"); !errors.Is(err, errs.Domain) {
		t.Fatalf("expected domain error, got %v", err)
	}
}

func TestBadOptions(t *testing.T) {
	if _, err := New(Options{Tiers: []int{1}}); !errors.Is(err, errs.Config) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRealStartAfterIdle(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	mock.Add(10 * time.Second)
	s.Start(Real, "late", 5)
	mock.Add(400 * time.Millisecond)
	if got := mustPoll(t, s, 0); len(got) != 0 {
		t.Fatalf("idle time counted against a new timer: %v", got)
	}
	mock.Add(100 * time.Millisecond)
	if got := mustPoll(t, s, 0); !reflect.DeepEqual(got, []string{"late"}) {
		t.Fatalf("expected [late], got %v", got)
	}
}

func TestRealDueBeforePoll(t *testing.T) {
	s, mock := newTestScheduler(t, Options{})
	s.Start(Real, "a", 1)
	s.Start(Real, "b", 1)
	mock.Add(200 * time.Millisecond)
	// a和b在追赶时到期, 等下次poll返回
	s.Start(Real, "c", 1)
	if s.Pending(Real) != 1 {
		t.Fatalf("pending=%d", s.Pending(Real))
	}
	if !s.Stop("b") {
		t.Fatal("due timer should still be stoppable")
	}
	mock.Add(100 * time.Millisecond)
	if got := mustPoll(t, s, 0); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("expected [a c], got %v", got)
	}
}
