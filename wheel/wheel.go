package wheel

import (
	"math"

	"github.com/fixkme/tickwheel/errs"
	"github.com/fixkme/tickwheel/util"
)

// 默认三层: 百毫秒(10格) / 秒(60格) / 分(60格), 基础tick为100ms时覆盖1小时
var DefaultTiers = []int{10, 60, 60}

const _MAX_TIERS = 8

// Token 定时器在时间轮中的位置句柄, 定时器触发或删除后失效
type Token struct {
	e   *entry
	seq uint64
}

func (t Token) Valid() bool {
	return t.e != nil && t.seq != 0 && t.e.seq == t.seq
}

func (t Token) Seq() uint64 {
	return t.seq
}

// Tier 当前所在层, 失效返回-1
func (t Token) Tier() int {
	if !t.Valid() {
		return -1
	}
	return t.e.tier
}

// Slot 当前所在格, 失效返回-1
func (t Token) Slot() int {
	if !t.Valid() {
		return -1
	}
	return t.e.slot
}

// Deadline 到期tick, 失效返回0
func (t Token) Deadline() uint64 {
	if !t.Valid() {
		return 0
	}
	return t.e.deadline
}

type tier struct {
	slots  []*bucket
	size   uint64 // 格子数
	span   uint64 // 每格代表的基础tick数
	cursor uint64
}

// Wheel 多层时间轮, 只由调用方驱动, 不是goroutine safe的
type Wheel struct {
	tiers []tier
	now   uint64 // 已走过的tick数
	limit uint64 // 可接受的最大延迟
	genId uint64
	count int
}

func New(slots ...int) (*Wheel, error) {
	if len(slots) == 0 {
		slots = DefaultTiers
	}
	if len(slots) > _MAX_TIERS {
		return nil, errs.Config.Printf("at most %d tiers, got %d", _MAX_TIERS, len(slots))
	}
	w := &Wheel{tiers: make([]tier, len(slots))}
	span := uint64(1)
	for i, n := range slots {
		if n < 2 {
			return nil, errs.Config.Printf("tier %d needs at least 2 slots, got %d", i, n)
		}
		w.tiers[i] = tier{
			slots: make([]*bucket, n),
			size:  uint64(n),
			span:  span,
		}
		next, ok := util.MulUint64(span, uint64(n))
		if !ok {
			return nil, errs.Config.Printf("tier %d range overflows", i)
		}
		span = next
	}
	w.limit = span
	return w, nil
}

// Now 当前tick
func (w *Wheel) Now() uint64 {
	return w.now
}

// Len 时间轮中的定时器数量
func (w *Wheel) Len() int {
	return w.count
}

// Capacity 单个定时器允许的最大延迟(tick)
func (w *Wheel) Capacity() uint64 {
	return w.limit
}

// Tiers 各层格子数
func (w *Wheel) Tiers() []int {
	out := make([]int, len(w.tiers))
	for i := range w.tiers {
		out[i] = int(w.tiers[i].size)
	}
	return out
}

// Insert 在delay个tick后到期, delay为0视为1(下一个tick)
func (w *Wheel) Insert(id string, delay uint64) (Token, error) {
	if delay == 0 {
		delay = 1
	}
	if delay > w.limit {
		return Token{}, errs.Capacity.Printf("%d ticks, max %d", delay, w.limit)
	}
	if w.now > math.MaxUint64-delay {
		return Token{}, errs.Capacity.Printf("tick counter overflow at %d", w.now)
	}
	w.genId++
	e := &entry{
		id:       id,
		seq:      w.genId,
		deadline: w.now + delay,
	}
	w.place(e)
	w.count++
	return Token{e: e, seq: e.seq}, nil
}

// Remove 失效的token直接忽略
func (w *Wheel) Remove(tk Token) bool {
	if !tk.Valid() {
		return false
	}
	e := tk.e
	b := w.tiers[e.tier].slots[e.slot]
	if b == nil || !b.remove(e) {
		return false
	}
	e.seq = 0
	w.count--
	return true
}

// Advance 前进n个tick, 按到期顺序回调每个到期的定时器
func (w *Wheel) Advance(n uint64, fn func(id string, seq uint64)) {
	if n == 0 {
		return
	}
	if w.count == 0 {
		w.jump(n)
		return
	}
	for ; n > 0; n-- {
		w.tick(fn)
		if w.count == 0 && n > 1 {
			w.jump(n - 1)
			return
		}
	}
}

// Reset 清空所有定时器, 已发出的token全部失效
func (w *Wheel) Reset() {
	for i := range w.tiers {
		t := &w.tiers[i]
		for _, b := range t.slots {
			if b == nil {
				continue
			}
			b.popRange(func(e *entry) { e.seq = 0 })
		}
		t.cursor = 0
	}
	w.now = 0
	w.count = 0
}

// 空轮直接拨动指针
func (w *Wheel) jump(n uint64) {
	w.now += n
	for i := range w.tiers {
		t := &w.tiers[i]
		t.cursor = (w.now / t.span) % t.size
	}
}

func (w *Wheel) tick(fn func(id string, seq uint64)) {
	w.now++
	// 0层触发定时器
	t0 := &w.tiers[0]
	t0.cursor = (t0.cursor + 1) % t0.size
	if b := t0.slots[t0.cursor]; b != nil {
		b.popRange(func(e *entry) {
			w.fire(e, fn)
		})
	}
	// 高层轮动, 下层转完一圈才前进一格
	for i := 1; i < len(w.tiers); i++ {
		if w.tiers[i-1].cursor != 0 {
			break
		}
		t := &w.tiers[i]
		t.cursor = (t.cursor + 1) % t.size
		b := t.slots[t.cursor]
		if b == nil {
			continue
		}
		b.popRange(func(e *entry) {
			// 剩余为0的直接触发, 其余降到更细的层
			if e.deadline <= w.now {
				w.fire(e, fn)
				return
			}
			w.place(e)
		})
	}
}

func (w *Wheel) fire(e *entry, fn func(id string, seq uint64)) {
	seq := e.seq
	e.seq = 0
	w.count--
	if fn != nil {
		fn(e.id, seq)
	}
}

// place 选能容纳剩余延迟的最细一层
func (w *Wheel) place(e *entry) {
	diff := e.deadline - w.now
	last := len(w.tiers) - 1
	level := last
	for i := 0; i < last; i++ {
		if diff < w.tiers[i].span*w.tiers[i].size {
			level = i
			break
		}
	}
	t := &w.tiers[level]
	slot := (e.deadline / t.span) % t.size
	b := t.slots[slot]
	if b == nil {
		b = newBucket()
		t.slots[slot] = b
	}
	e.tier = level
	e.slot = int(slot)
	b.pushBack(e)
}
