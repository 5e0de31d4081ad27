package config

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fixkme/tickwheel/mlog"
)

const reloadDelay = 250 * time.Millisecond

// Watcher 配置文件变化后重新加载, 校验通过才回调OnChange.
// 作为app模块运行; 时间轮参数改了需要重启, 这里只适合日志级别这类在线可调的字段
type Watcher struct {
	file      string
	envLoader func(*AppConfig) error
	OnChange  func(conf *AppConfig)

	fw      *fsnotify.Watcher
	last    string
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	done    chan struct{}
}

func NewWatcher(file string, envLoader func(*AppConfig) error) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		file:      file,
		envLoader: envLoader,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (w *Watcher) Name() string {
	return "config_watcher"
}

func (w *Watcher) OnInit() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// 监听目录, 编辑器保存时常常是rename替换文件
	if err = fw.Add(filepath.Dir(w.file)); err != nil {
		fw.Close()
		return err
	}
	w.fw = fw
	if Config != nil {
		w.last = Config.JsonFormat()
	}
	return nil
}

func (w *Watcher) Run() {
	w.running.Store(true)
	defer close(w.done)
	base := filepath.Base(w.file)
	var timer *time.Timer
	var reload <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// 合并连续的写事件
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			reload = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			mlog.Warnf("config watcher error: %v", err)
		case <-reload:
			reload = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	conf := Default()
	err := readFile(w.file, conf)
	if err == nil && w.envLoader != nil {
		err = w.envLoader(conf)
	}
	if err == nil {
		err = conf.Validate()
	}
	if err != nil {
		mlog.Warnf("config %s reload rejected: %v", w.file, err)
		return
	}
	cur := conf.JsonFormat()
	if cur == w.last {
		return
	}
	w.last = cur
	mlog.Infof("config %s reloaded", w.file)
	if w.OnChange != nil {
		w.OnChange(conf)
	}
}

func (w *Watcher) Destroy() {
	w.cancel()
	if w.fw != nil {
		w.fw.Close()
	}
	if w.running.Load() {
		<-w.done
	}
}
