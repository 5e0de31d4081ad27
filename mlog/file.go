package mlog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultDirMode  os.FileMode = 0755
	defaultFileMode os.FileMode = 0644
	defaultFileFlag int         = os.O_APPEND | os.O_CREATE | os.O_WRONLY

	rotateSize     = int64(100 * 1024 * 1024) // 100 MB
	rotateInterval = 30 * time.Second
)

type fileLogger struct {
	leveled
	file   *os.File
	ll     *log.Logger
	buff   chan string
	stdOut bool
}

func newFileLogger(logpath, logName string, level Level, stdOut bool) (*fileLogger, error) {
	// 默认使用当前路径
	if len(logpath) == 0 {
		logpath = "."
	}
	if logName == "" {
		logName = "tickwheel"
	}
	logfile, err := openFile(filepath.Join(logpath, logName+".log"))
	if err != nil {
		return nil, err
	}
	l := &fileLogger{
		file:   logfile,
		ll:     log.New(logfile, "", log.Ldate|log.Lmicroseconds),
		buff:   make(chan string, 0x10000),
		stdOut: stdOut,
	}
	if stdOut {
		log.SetFlags(log.Ldate | log.Lmicroseconds)
	}
	l.SetLevel(level)
	l.emit = func(line string) { l.buff <- line }
	l.exit = func() {
		time.Sleep(time.Second)
		os.Exit(1)
	}
	return l, nil
}

func (l *fileLogger) write(line string) {
	if l.stdOut {
		log.Println(line)
	}
	l.ll.Println(line)
}

func (l *fileLogger) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("mlog recover error %v\n", r)
			}
			l.file.Close()
			wg.Done()
		}()

		timer := time.NewTimer(rotateInterval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case line := <-l.buff:
						l.write(line)
					default:
						return
					}
				}
			case line := <-l.buff:
				l.write(line)
			case <-timer.C:
				l.rotateIfNeeded()
				timer.Reset(rotateInterval)
			}
		}
	}()
}

func (l *fileLogger) rotateIfNeeded() {
	info, err := os.Stat(l.file.Name())
	if err != nil {
		log.Println("mlog stat error", err)
		return
	}
	if info.Size() <= rotateSize {
		return
	}
	file, err := rotateLogFile(l.file.Name())
	if err != nil {
		log.Println("mlog rotate error", err)
		return
	}
	l.ll.SetOutput(file)
	l.file.Close()
	l.file = file
}

func openFile(fullpath string) (*os.File, error) {
	fullpath = strings.ReplaceAll(fullpath, "\\", "/")
	if err := os.MkdirAll(filepath.Dir(fullpath), defaultDirMode); err != nil {
		return nil, err
	}
	return os.OpenFile(fullpath, defaultFileFlag, defaultFileMode)
}

func rotateLogFile(filePath string) (*os.File, error) {
	newFilePath := fmt.Sprintf("%s.%s", filePath, time.Now().Format("20060102_150405"))
	if err := os.Rename(filePath, newFilePath); err != nil {
		return nil, err
	}
	return os.Create(filePath)
}
