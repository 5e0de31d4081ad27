// Package hostapi 面向嵌入方的字符串接口: 参数和返回值都是字符串, 成功返回空串
package hostapi

import (
	"strconv"
	"strings"

	"github.com/fixkme/tickwheel/errs"
	"github.com/fixkme/tickwheel/scheduler"
)

// Separator Poll结果的分隔符, id里不能出现
const Separator = ","

type Host struct {
	sched *scheduler.Scheduler
}

func New(s *scheduler.Scheduler) *Host {
	return &Host{sched: s}
}

func (h *Host) Scheduler() *scheduler.Scheduler {
	return h.sched
}

// Setup 丢弃所有定时器重新开始
func (h *Host) Setup() string {
	h.sched.Reset()
	return ""
}

// Start domain为real/external, delay为十进制非负整数(域的原始单位)
func (h *Host) Start(domain, id, delay string) string {
	return errString(h.StartTimer(domain, id, delay))
}

// StartTimer 和Start相同, 返回带错误码的error
func (h *Host) StartTimer(domain, id, delay string) error {
	kind, err := scheduler.ParseDomain(domain)
	if err != nil {
		return err
	}
	if err := checkId(id); err != nil {
		return err
	}
	n, err := ParseCount(delay)
	if err != nil {
		if errs.CodeOf(err) == errs.ErrCode_InvalidTick {
			return errs.InvalidDelay.Printf("%q", delay)
		}
		return err
	}
	return h.sched.Start(kind, id, n)
}

func (h *Host) StartReal(id, delay string) string {
	return h.Start("real", id, delay)
}

func (h *Host) StartExternal(id, delay string) string {
	return h.Start("external", id, delay)
}

// Stop 未知id也算成功
func (h *Host) Stop(id string) string {
	h.sched.Stop(id)
	return ""
}

// Poll 返回逗号连接的到期id, 出错时返回错误描述, 用ok区分
func (h *Host) Poll(ticks string) (result string, ok bool) {
	ids, err := h.ExpiredTimers(ticks)
	if err != nil {
		return err.Error(), false
	}
	return strings.Join(ids, Separator), true
}

// ExpiredTimers 和Poll相同, 返回id列表
func (h *Host) ExpiredTimers(ticks string) ([]string, error) {
	n, err := ParseCount(ticks)
	if err != nil {
		return nil, err
	}
	return h.sched.Poll(n)
}

// ParseCount 解析十进制计数, 非数字返回Parse, 负数返回InvalidTick
func ParseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errs.Parse.Printf("%q", s)
	}
	if n < 0 {
		return 0, errs.InvalidTick.Printf("%d", n)
	}
	return n, nil
}

func checkId(id string) error {
	if id == "" {
		return errs.Parse.Print("empty timer id")
	}
	if strings.Contains(id, Separator) {
		return errs.Parse.Printf("timer id %q contains %q", id, Separator)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
