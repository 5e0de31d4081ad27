package lock

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

var (
	ErrFailedLock = errors.New("failed to acquire lock")
	ErrNotOwner   = errors.New("lock is not held by this entity")
)

// RedLock 基于redis的单实例锁, 保证同一个定时器会话只有一个进程持有
type RedLock struct {
	rdb    redis.Cmdable
	entity string //请求锁的唯一实例
}

func NewRedLock(rdb redis.Cmdable, entity string) *RedLock {
	if entity == "" {
		entity = GeneLockEntity()
	}
	return &RedLock{rdb: rdb, entity: entity}
}

func (l *RedLock) Entity() string {
	return l.entity
}

// lockKey:分布式锁, expiry:锁超时时间，checkInterval：检测锁的频率
func (l *RedLock) Lock(ctx context.Context, lockKey string, expiry time.Duration, checkInterval time.Duration) error {
	if checkInterval <= 0 {
		checkInterval = expiry
	}
	lockTries := int(expiry/checkInterval) + 1
	for i := 0; i < lockTries; i++ {
		if i != 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(checkInterval):
			}
		}
		ok, err := l.rdb.SetNX(ctx, lockKey, l.entity, expiry).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrFailedLock
}

// lockKey:分布式锁，expiry:锁超时时间
func (l *RedLock) TryLock(ctx context.Context, lockKey string, expiry time.Duration) bool {
	val, err := l.rdb.SetNX(ctx, lockKey, l.entity, expiry).Result()
	if err != nil {
		return false
	}
	return val
}

const (
	unlockScriptLua = `
		if redis.call("get",KEYS[1]) == ARGV[1] then
			return redis.call("del",KEYS[1])
		else
			return 0
		end
	`
	refreshScriptLua = `
		if redis.call("get",KEYS[1]) == ARGV[1] then
			return redis.call("pexpire",KEYS[1],ARGV[2])
		else
			return 0
		end
	`
)

var (
	unlockScript  = redis.NewScript(unlockScriptLua)
	refreshScript = redis.NewScript(refreshScriptLua)
)

func (l *RedLock) UnLock(ctx context.Context, lockKey string) (bool, error) {
	return l.runOwned(ctx, unlockScript, lockKey)
}

// Refresh 续期, 锁已经被别人拿走时返回 ErrNotOwner
func (l *RedLock) Refresh(ctx context.Context, lockKey string, expiry time.Duration) error {
	ok, err := l.runOwned(ctx, refreshScript, lockKey, expiry.Milliseconds())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOwner
	}
	return nil
}

func (l *RedLock) runOwned(ctx context.Context, script *redis.Script, lockKey string, args ...any) (bool, error) {
	argv := append([]any{l.entity}, args...)
	num, err := script.Run(ctx, l.rdb, []string{lockKey}, argv...).Int64()
	if err != nil {
		return false, err
	}
	return num != 0, nil
}

// 生成请求锁的唯一实例
func GeneLockEntity() string {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "GeneLockEntity rand.Read err:%v", err)
		return xid.New().String()
	}
	return base64.StdEncoding.EncodeToString(b)
}
