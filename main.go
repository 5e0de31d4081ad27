package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/panjf2000/gnet/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fixkme/tickwheel/app"
	"github.com/fixkme/tickwheel/config"
	"github.com/fixkme/tickwheel/hostapi"
	"github.com/fixkme/tickwheel/lock"
	"github.com/fixkme/tickwheel/mlog"
	"github.com/fixkme/tickwheel/scheduler"
	"github.com/fixkme/tickwheel/server"
)

func main() {
	configFile := flag.String("config", "", "json config file, TICKWHEEL_* env overrides it")
	flag.Parse()

	if err := config.LoadConfig(*configFile, config.EnvLoader); err != nil {
		fmt.Fprintf(os.Stderr, "load config error: %v\n", err)
		os.Exit(1)
	}
	conf := config.Config

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	if conf.LogPath != "" {
		if err := mlog.UseFileLogger(ctx, wg, conf.LogPath, conf.LogName, conf.Level(), conf.LogStdOut); err != nil {
			fmt.Fprintf(os.Stderr, "open log file error: %v\n", err)
			os.Exit(1)
		}
	} else {
		mlog.UseStdLogger(conf.Level())
	}
	if conf.IsDebug {
		mlog.Debugf("config: %s", conf.JsonFormat())
	}

	err := run(conf, *configFile)
	if err != nil {
		mlog.Errorf("tickwheel exit with error: %v", err)
	}
	cancel()
	wg.Wait()
	if err != nil {
		os.Exit(1)
	}
}

func run(conf *config.AppConfig, configFile string) error {
	opts, err := conf.SchedulerOptions()
	if err != nil {
		return err
	}
	sched, err := scheduler.New(opts)
	if err != nil {
		return err
	}

	a := app.New()
	var mods []app.Module
	if conf.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
		})
		owner := lock.NewOwner(rdb, conf.LockKey, conf.LockTTL())
		owner.OnLost = func(err error) {
			mlog.Errorf("lost owner lock %s, stopping", conf.LockKey)
			a.Stop()
		}
		mods = append(mods, owner)
	}
	if configFile != "" {
		watcher := config.NewWatcher(configFile, config.EnvLoader)
		watcher.OnChange = func(next *config.AppConfig) {
			mlog.SetLevel(next.Level())
			mlog.Infof("log level now %s, other changes take effect after restart", next.Level())
		}
		mods = append(mods, watcher)
	}
	srv := server.NewServer(hostapi.New(sched), &server.ServerOptions{
		Options: gnet.Options{
			Multicore: conf.Multicore,
			Logger:    mlog.Get(),
		},
		Addr:          conf.ListenAddr,
		StatsInterval: conf.StatsInterval(),
		OnRunError:    func(error) { a.Stop() },
	})
	mods = append(mods, srv)
	return a.Run(mods...)
}
