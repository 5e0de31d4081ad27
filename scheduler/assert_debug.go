//go:build tickwheel_debug

package scheduler

import "fmt"

func violation(format string, args ...any) {
	panic(fmt.Sprintf("tickwheel consistency violation: "+format, args...))
}
