//go:build !tickwheel_debug

package scheduler

import "github.com/fixkme/tickwheel/mlog"

// violation wheel和registry不一致, 属于实现bug. release下只记录并跳过
func violation(format string, args ...any) {
	mlog.Errorf("tickwheel consistency violation: "+format, args...)
}
