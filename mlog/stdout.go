package mlog

import (
	"io"
	"log"
	"os"
)

type stdoutLogger struct {
	leveled
}

func newStdoutLogger(level Level) *stdoutLogger {
	return newWriterLogger(os.Stdout, level)
}

func newWriterLogger(w io.Writer, level Level) *stdoutLogger {
	ll := log.New(w, "", log.Ldate|log.Lmicroseconds)
	l := &stdoutLogger{}
	l.SetLevel(level)
	l.emit = func(line string) { ll.Println(line) }
	return l
}

// NewWriterLogger 同步写到w, 测试里用来检查日志
func NewWriterLogger(w io.Writer, level Level) Logger {
	return newWriterLogger(w, level)
}
