package clock

import (
	"time"

	bclock "github.com/andres-erbsen/clock"
)

// Real 由墙上时间驱动, 两次Elapsed之间不足一个tick的部分留到下次
type Real struct {
	clk      bclock.Clock
	tick     time.Duration
	lastTime time.Time
}

func NewReal(clk bclock.Clock, tick time.Duration) *Real {
	if clk == nil {
		clk = bclock.New()
	}
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	return &Real{
		clk:      clk,
		tick:     tick,
		lastTime: clk.Now(),
	}
}

func (r *Real) Tick() time.Duration {
	return r.tick
}

// Elapsed 返回上次调用以来经过的完整tick数
func (r *Real) Elapsed() uint64 {
	now := r.clk.Now()
	diff := now.Sub(r.lastTime)
	if diff < 0 {
		// 时钟回拨, 以当前时间为新的起点
		r.lastTime = now
		return 0
	}
	n := diff / r.tick
	if n == 0 {
		return 0
	}
	r.lastTime = r.lastTime.Add(n * r.tick)
	return uint64(n)
}

// Pending 尚未凑满一个tick的时间
func (r *Real) Pending() time.Duration {
	d := r.clk.Now().Sub(r.lastTime)
	if d < 0 {
		return 0
	}
	return d % r.tick
}

func (r *Real) Reset() {
	r.lastTime = r.clk.Now()
}

// External 由调用方提供的计数器驱动, 计数器可以暂停, 也可以和真实时间不同速
type External struct {
	last    int64
	started bool
}

func NewExternal() *External {
	return &External{}
}

// Elapsed 返回和上次计数的差值. 第一次只记录起点; 计数变小视为对方重置, 返回reset=true
func (e *External) Elapsed(counter int64) (n uint64, reset bool) {
	if !e.started {
		e.started = true
		e.last = counter
		return 0, false
	}
	if counter < e.last {
		e.last = counter
		return 0, true
	}
	n = uint64(counter - e.last)
	e.last = counter
	return n, false
}

// Last 上次观察到的计数
func (e *External) Last() (int64, bool) {
	return e.last, e.started
}

func (e *External) Reset() {
	e.last = 0
	e.started = false
}
