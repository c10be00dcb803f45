package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// DistributedLock Redis SetNX 互斥锁
// value 标识持有者，释放时校验，避免误删他人持有的锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 非阻塞获取锁，SET key value NX EX，过期时间兜底防死锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 阻塞式获取锁，按固定间隔重试
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，Lua 脚本保证"校验持有者 + 删除"的原子性
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ArchiveLocker 按账户维度串行化归档操作
// 归档写入本身幂等，锁的作用只是避免同账户并发归档时重复扫描同一区间
type ArchiveLocker struct {
	client *redis.Client
}

func NewArchiveLocker(client *redis.Client) *ArchiveLocker {
	return &ArchiveLocker{client: client}
}

// Acquire 获取账户归档锁，返回释放函数
func (l *ArchiveLocker) Acquire(ctx context.Context, accountID int64) (func(), error) {
	dl := NewDistributedLock(
		l.client,
		fmt.Sprintf("archive:lock:account:%d", accountID),
		strconv.FormatInt(time.Now().UnixNano(), 10),
		30*time.Second,
	)
	if err := dl.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, err
	}
	return func() {
		_ = dl.Unlock(context.Background())
	}, nil
}
