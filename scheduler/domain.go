package scheduler

import (
	"strings"
	"sync"

	"github.com/fixkme/tickwheel/errs"
	"github.com/fixkme/tickwheel/lock"
	"github.com/fixkme/tickwheel/mlog"
	"github.com/fixkme/tickwheel/registry"
	"github.com/fixkme/tickwheel/util"
	"github.com/fixkme/tickwheel/wheel"
)

type DomainKind int

const (
	Real     DomainKind = iota // 墙上时间
	External                   // 调用方提供的tick计数
)

func (k DomainKind) String() string {
	if k == External {
		return "external"
	}
	return "real"
}

func ParseDomain(s string) (DomainKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real", "realtime":
		return Real, nil
	case "external", "ext", "byond", "byondtime":
		return External, nil
	}
	return Real, errs.Domain.Printf("%q", s)
}

// domain 一条独立的时间线, 自己的时间轮和registry, 所有操作在mu内完成
type domain struct {
	kind  DomainKind
	mu    sync.Locker
	wheel *wheel.Wheel
	reg   *registry.Registry
	num   uint64 // 原始延迟单位 -> tick: ceil(raw*num/den)
	den   uint64

	// real域start前先把时间轮追到当前时间, 追赶中到期的id留到下次poll返回
	elapsed func() uint64
	due     []string
}

func newDomain(kind DomainKind, tiers []int, policy registry.DuplicatePolicy, num, den uint64) (*domain, error) {
	w, err := wheel.New(tiers...)
	if err != nil {
		return nil, err
	}
	if num == 0 || den == 0 {
		return nil, errs.Config.Printf("%s domain scale %d/%d", kind, num, den)
	}
	return &domain{
		kind:  kind,
		mu:    lock.NewSpinLock(),
		wheel: w,
		reg:   registry.New(policy),
		num:   num,
		den:   den,
	}, nil
}

func (d *domain) toTicks(raw uint64) (uint64, error) {
	ticks, ok := util.ScaleCeil(raw, d.num, d.den)
	if !ok || ticks > d.wheel.Capacity() {
		return 0, errs.Capacity.Printf("%s delay %d, max %d ticks", d.kind, raw, d.wheel.Capacity())
	}
	return ticks, nil
}

func (d *domain) start(id string, raw uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.elapsed != nil {
		d.due = d.advance(d.elapsed(), d.due)
	}
	ticks, err := d.toTicks(raw)
	if err != nil {
		return err
	}
	if err := d.reg.Check(id); err != nil {
		return err
	}
	tk, err := d.wheel.Insert(id, ticks)
	if err != nil {
		return err
	}
	old, replaced, err := d.reg.Put(id, tk)
	if err != nil {
		d.wheel.Remove(tk)
		return err
	}
	if replaced && !d.wheel.Remove(old) {
		violation("%s: replaced token of %q was not in the wheel", d.kind, id)
	}
	mlog.Tracef("%s timer %q start, ticks:%d, now:%d, tier:%d", d.kind, id, ticks, d.wheel.Now(), tk.Tier())
	return nil
}

func (d *domain) stop(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	tk, ok := d.reg.Remove(id)
	if !ok {
		return d.dropDue(id)
	}
	if !d.wheel.Remove(tk) {
		violation("%s: registry entry %q had no wheel entry", d.kind, id)
	}
	return true
}

// dropDue 已到期但还没被poll取走的也可以stop
func (d *domain) dropDue(id string) bool {
	for i, v := range d.due {
		if v == id {
			d.due = append(d.due[:i], d.due[i+1:]...)
			return true
		}
	}
	return false
}

// collect 调用方持有mu, 先取出追赶中到期的, 再前进n个tick
func (d *domain) collect(n uint64, out []string) []string {
	if len(d.due) > 0 {
		out = append(out, d.due...)
		d.due = d.due[:0]
	}
	return d.advance(n, out)
}

// advance 调用方持有mu
func (d *domain) advance(n uint64, out []string) []string {
	d.wheel.Advance(n, func(id string, seq uint64) {
		tk, ok := d.reg.Get(id)
		if !ok || tk.Seq() != seq {
			// 孤儿节点, 跳过
			violation("%s: wheel entry %q(seq %d) has no registry entry", d.kind, id, seq)
			return
		}
		d.reg.Remove(id)
		out = append(out, id)
	})
	return out
}

func (d *domain) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reg.Len()
}

func (d *domain) contains(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reg.Contains(id)
}

// remaining 距离到期还有多少tick
func (d *domain) remaining(id string) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tk, ok := d.reg.Get(id)
	if !ok || !tk.Valid() {
		return 0, false
	}
	return tk.Deadline() - d.wheel.Now(), true
}

func (d *domain) reset() {
	d.wheel.Reset()
	d.reg.Reset()
	d.due = nil
}
