package registry

import (
	"github.com/fixkme/tickwheel/errs"
	"github.com/fixkme/tickwheel/wheel"
)

// DuplicatePolicy 同一个id重复start时的处理方式
type DuplicatePolicy int

const (
	RejectDuplicate  DuplicatePolicy = iota // 返回 errs.IdScheduled
	ReplaceDuplicate                        // 覆盖, 旧token交还调用方从时间轮删除
)

func ParsePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "reject":
		return RejectDuplicate, nil
	case "replace":
		return ReplaceDuplicate, nil
	}
	return RejectDuplicate, errs.Config.Printf("unknown duplicate policy %q", s)
}

func (p DuplicatePolicy) String() string {
	if p == ReplaceDuplicate {
		return "replace"
	}
	return "reject"
}

// Registry id -> token, 和时间轮一一对应
type Registry struct {
	locs   map[string]wheel.Token
	policy DuplicatePolicy
}

func New(policy DuplicatePolicy) *Registry {
	return &Registry{
		locs:   make(map[string]wheel.Token),
		policy: policy,
	}
}

func (r *Registry) Policy() DuplicatePolicy {
	return r.policy
}

// Check start之前的重复检查, 不修改状态
func (r *Registry) Check(id string) error {
	if _, ok := r.locs[id]; ok && r.policy == RejectDuplicate {
		return errs.IdScheduled.Printf("%q", id)
	}
	return nil
}

// Put 记录token. replace策略下返回被覆盖的旧token
func (r *Registry) Put(id string, tk wheel.Token) (old wheel.Token, replaced bool, err error) {
	if prev, ok := r.locs[id]; ok {
		if r.policy == RejectDuplicate {
			return wheel.Token{}, false, errs.IdScheduled.Printf("%q", id)
		}
		old, replaced = prev, true
	}
	r.locs[id] = tk
	return
}

func (r *Registry) Get(id string) (wheel.Token, bool) {
	tk, ok := r.locs[id]
	return tk, ok
}

func (r *Registry) Remove(id string) (wheel.Token, bool) {
	tk, ok := r.locs[id]
	if ok {
		delete(r.locs, id)
	}
	return tk, ok
}

func (r *Registry) Contains(id string) bool {
	_, ok := r.locs[id]
	return ok
}

func (r *Registry) Len() int {
	return len(r.locs)
}

// Range 遍历, fn不能修改registry
func (r *Registry) Range(fn func(id string, tk wheel.Token) bool) {
	for id, tk := range r.locs {
		if !fn(id, tk) {
			break
		}
	}
}

func (r *Registry) Reset() {
	r.locs = make(map[string]wheel.Token)
}
