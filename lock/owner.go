package lock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fixkme/tickwheel/mlog"
)

// Owner 进程持有期间定期续期的锁, 作为app模块运行.
// 续期失败(锁过期或被别人拿走)时调用OnLost
type Owner struct {
	lock    *RedLock
	rdb     redis.UniversalClient
	key     string
	ttl     time.Duration
	OnLost  func(err error)
	running atomic.Bool
	quit    chan struct{}
	done    chan struct{}
}

func NewOwner(rdb redis.UniversalClient, key string, ttl time.Duration) *Owner {
	return &Owner{
		lock: NewRedLock(rdb, ""),
		rdb:  rdb,
		key:  key,
		ttl:  ttl,
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (o *Owner) Name() string {
	return "owner_lock"
}

func (o *Owner) Entity() string {
	return o.lock.Entity()
}

// OnInit 拿不到锁说明已有进程在服务同一个key
func (o *Owner) OnInit() error {
	ctx, cancel := context.WithTimeout(context.Background(), o.ttl)
	defer cancel()
	if err := o.lock.Lock(ctx, o.key, o.ttl, o.ttl/4); err != nil {
		return err
	}
	mlog.Infof("owner lock %s acquired by %s", o.key, o.lock.Entity())
	return nil
}

func (o *Owner) Run() {
	o.running.Store(true)
	defer close(o.done)
	ticker := time.NewTicker(o.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-o.quit:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), o.ttl/3)
			err := o.lock.Refresh(ctx, o.key, o.ttl)
			cancel()
			if err == nil {
				continue
			}
			mlog.Errorf("owner lock %s refresh error: %v", o.key, err)
			if err == ErrNotOwner {
				if o.OnLost != nil {
					o.OnLost(err)
				}
				return
			}
		}
	}
}

func (o *Owner) Destroy() {
	close(o.quit)
	if o.running.Load() {
		<-o.done
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if ok, err := o.lock.UnLock(ctx, o.key); err != nil || !ok {
		mlog.Warnf("owner lock %s release: %v %v", o.key, ok, err)
	}
	if err := o.rdb.Close(); err != nil {
		mlog.Warnf("redis close error: %v", err)
	}
}
