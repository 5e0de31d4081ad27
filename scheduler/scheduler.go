package scheduler

import (
	"sync/atomic"
	"time"

	bclock "github.com/andres-erbsen/clock"
	"github.com/google/uuid"

	"github.com/fixkme/tickwheel/clock"
	"github.com/fixkme/tickwheel/errs"
	"github.com/fixkme/tickwheel/mlog"
	"github.com/fixkme/tickwheel/registry"
	"github.com/fixkme/tickwheel/util"
	"github.com/fixkme/tickwheel/wheel"
)

type Options struct {
	Tiers         []int                    // 每层格子数, 为空用 wheel.DefaultTiers
	Tick          time.Duration            // real域每个tick的时长
	RealUnit      time.Duration            // real域原始延迟的单位
	ExternalScale uint64                   // external域每个原始单位对应的tick数
	Policy        registry.DuplicatePolicy // 重复id的处理
	Clock         bclock.Clock             // 为空使用系统时钟
}

func (o *Options) fillDefaults() {
	if len(o.Tiers) == 0 {
		o.Tiers = wheel.DefaultTiers
	}
	if o.Tick <= 0 {
		o.Tick = 100 * time.Millisecond
	}
	if o.RealUnit <= 0 {
		o.RealUnit = 100 * time.Millisecond
	}
	if o.ExternalScale == 0 {
		o.ExternalScale = 1
	}
	if o.Clock == nil {
		o.Clock = bclock.New()
	}
}

type Stats struct {
	Started  uint64
	Stopped  uint64
	Expired  uint64
	Rejected uint64
	Polls    uint64
}

// Scheduler 两个互不影响的域: real由墙上时间推进, external由Poll传入的计数推进.
// 不启动任何goroutine, 所有工作都在调用方的Start/Stop/Poll里完成
type Scheduler struct {
	session  atomic.Value // string
	real     *domain
	ext      *domain
	realTime *clock.Real
	extTime  *clock.External

	started, stopped, expired, rejected, polls atomic.Uint64
}

func New(opts Options) (*Scheduler, error) {
	opts.fillDefaults()
	num, den := uint64(opts.RealUnit), uint64(opts.Tick)
	g := util.GcdUint64(num, den)
	realDom, err := newDomain(Real, opts.Tiers, opts.Policy, num/g, den/g)
	if err != nil {
		return nil, err
	}
	extDom, err := newDomain(External, opts.Tiers, opts.Policy, opts.ExternalScale, 1)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		real:     realDom,
		ext:      extDom,
		realTime: clock.NewReal(opts.Clock, opts.Tick),
		extTime:  clock.NewExternal(),
	}
	realDom.elapsed = s.realTime.Elapsed
	s.session.Store(uuid.NewString())
	mlog.Infof("scheduler %s created, tiers:%v, tick:%v, capacity:%d ticks, duplicate policy:%s",
		s.Session(), opts.Tiers, opts.Tick, realDom.wheel.Capacity(), opts.Policy)
	return s, nil
}

// Session 每次New/Reset生成新的会话id
func (s *Scheduler) Session() string {
	return s.session.Load().(string)
}

func (s *Scheduler) domain(kind DomainKind) *domain {
	if kind == External {
		return s.ext
	}
	return s.real
}

// Start 注册一个delay(原始单位)后到期的定时器
func (s *Scheduler) Start(kind DomainKind, id string, delay int64) error {
	err := s.start(kind, id, delay)
	if err != nil {
		s.rejected.Add(1)
		mlog.Debugf("start %s timer %q delay %d rejected: %v", kind, id, delay, err)
		return err
	}
	s.started.Add(1)
	return nil
}

func (s *Scheduler) start(kind DomainKind, id string, delay int64) error {
	if kind != Real && kind != External {
		return errs.Domain.Printf("%d", kind)
	}
	if id == "" {
		return errs.Parse.Print("empty timer id")
	}
	if delay < 0 {
		return errs.InvalidDelay.Printf("%d", delay)
	}
	return s.domain(kind).start(id, uint64(delay))
}

// Stop 返回是否找到, 同一个id两个域里都有时都会删除
func (s *Scheduler) Stop(id string) bool {
	found := s.ext.stop(id)
	if s.real.stop(id) {
		found = true
	}
	if found {
		s.stopped.Add(1)
	}
	return found
}

// Poll 推进两个域并返回本次到期的id: external在前, real在后, 各自按到期顺序
func (s *Scheduler) Poll(externalTicks int64) ([]string, error) {
	if externalTicks < 0 {
		return nil, errs.InvalidTick.Printf("%d", externalTicks)
	}
	s.polls.Add(1)
	var expired []string

	s.ext.mu.Lock()
	n, reset := s.extTime.Elapsed(externalTicks)
	if reset {
		mlog.Warnf("external tick counter went back to %d, treated as a restart", externalTicks)
	}
	expired = s.ext.collect(n, expired)
	s.ext.mu.Unlock()

	s.real.mu.Lock()
	expired = s.real.collect(s.realTime.Elapsed(), expired)
	s.real.mu.Unlock()

	if len(expired) > 0 {
		s.expired.Add(uint64(len(expired)))
	}
	return expired, nil
}

// Reset 丢弃所有定时器, 两个域的时间重新开始
func (s *Scheduler) Reset() {
	s.ext.mu.Lock()
	s.ext.reset()
	s.extTime.Reset()
	s.ext.mu.Unlock()

	s.real.mu.Lock()
	s.real.reset()
	s.realTime.Reset()
	s.real.mu.Unlock()

	s.session.Store(uuid.NewString())
	mlog.Infof("scheduler reset, new session %s", s.Session())
}

func (s *Scheduler) Pending(kind DomainKind) int {
	return s.domain(kind).pending()
}

func (s *Scheduler) Contains(kind DomainKind, id string) bool {
	return s.domain(kind).contains(id)
}

// Remaining 定时器还剩多少tick到期
func (s *Scheduler) Remaining(kind DomainKind, id string) (uint64, bool) {
	return s.domain(kind).remaining(id)
}

// Capacity 单个定时器最大延迟(tick)
func (s *Scheduler) Capacity() uint64 {
	return s.real.wheel.Capacity()
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Started:  s.started.Load(),
		Stopped:  s.stopped.Load(),
		Expired:  s.expired.Load(),
		Rejected: s.rejected.Load(),
		Polls:    s.polls.Load(),
	}
}
