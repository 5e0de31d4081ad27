package mlog

import (
	"fmt"
	"os"
	"sync/atomic"
)

// leveled 实现Logger的全部方法, 具体输出交给emit
type leveled struct {
	level atomic.Uint32
	emit  func(line string)
	exit  func()
}

func (l *leveled) IsLevelEnabled(level Level) bool {
	return Level(l.level.Load()) >= level
}

func (l *leveled) SetLevel(level Level) {
	l.level.Store(uint32(level))
}

func (l *leveled) Log(level Level, args ...any) {
	if l.IsLevelEnabled(level) {
		l.emit(levelTag(level) + fmt.Sprint(args...))
	}
}

func (l *leveled) Logf(level Level, format string, args ...any) {
	if l.IsLevelEnabled(level) {
		l.emit(levelTag(level) + fmt.Sprintf(format, args...))
	}
}

func (l *leveled) Trace(v ...any)                  { l.Log(TraceLevel, v...) }
func (l *leveled) Tracef(format string, v ...any)  { l.Logf(TraceLevel, format, v...) }
func (l *leveled) Debug(v ...any)                  { l.Log(DebugLevel, v...) }
func (l *leveled) Debugf(format string, v ...any)  { l.Logf(DebugLevel, format, v...) }
func (l *leveled) Info(v ...any)                   { l.Log(InfoLevel, v...) }
func (l *leveled) Infof(format string, v ...any)   { l.Logf(InfoLevel, format, v...) }
func (l *leveled) Notice(v ...any)                 { l.Log(NoticeLevel, v...) }
func (l *leveled) Noticef(format string, v ...any) { l.Logf(NoticeLevel, format, v...) }
func (l *leveled) Warn(v ...any)                   { l.Log(WarnLevel, v...) }
func (l *leveled) Warnf(format string, v ...any)   { l.Logf(WarnLevel, format, v...) }
func (l *leveled) Error(v ...any)                  { l.Log(ErrorLevel, v...) }
func (l *leveled) Errorf(format string, v ...any)  { l.Logf(ErrorLevel, format, v...) }

func (l *leveled) Fatal(v ...any) {
	l.Log(FatalLevel, v...)
	l.exitNow()
}

func (l *leveled) Fatalf(format string, v ...any) {
	l.Logf(FatalLevel, format, v...)
	l.exitNow()
}

func (l *leveled) exitNow() {
	if l.exit != nil {
		l.exit()
		return
	}
	os.Exit(1)
}
