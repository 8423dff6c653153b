package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/medsupply/pkg/errors"
)

// DedupStore 采购请求去重窗口
// 设计说明：
// 1. 用SET NX EX实现"窗口内只下一单"
//    Key设计：medsupply:reorder:{item_id}:{location_id}
// 2. 为什么放Redis而不是MySQL？
//    去重是跨实例的（多副本部署时两个引擎实例不能重复下单），
//    且窗口过期要自动清理，Redis的TTL天然匹配
// 3. 下单失败时主动Release，让下个周期可以立即重试
type DedupStore struct {
	client *redis.Client
}

// NewDedupStore 创建去重窗口
func NewDedupStore(client *redis.Client) *DedupStore {
	return &DedupStore{client: client}
}

func dedupKey(itemID, locationID uint) string {
	return fmt.Sprintf("medsupply:reorder:%d:%d", itemID, locationID)
}

// Acquire 尝试占用(物资, 库位)的去重窗口
// 返回true表示占用成功（可以下单），false表示窗口内已有请求
func (s *DedupStore) Acquire(ctx context.Context, itemID, locationID uint, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, dedupKey(itemID, locationID), time.Now().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "占用去重窗口失败")
	}
	return ok, nil
}

// Release 释放去重窗口（下单失败时调用，允许尽快重试）
func (s *DedupStore) Release(ctx context.Context, itemID, locationID uint) error {
	if err := s.client.Del(ctx, dedupKey(itemID, locationID)).Err(); err != nil {
		return apperrors.Wrap(err, "释放去重窗口失败")
	}
	return nil
}

// CycleLock 调度周期抢占锁（多实例部署用）
// 设计说明：
// 同一时刻全网只允许一个实例跑周期，
// 锁TTL略大于周期超时，实例崩溃后锁自动过期
type CycleLock struct {
	client *redis.Client
	key    string
}

// NewCycleLock 创建周期抢占锁
func NewCycleLock(client *redis.Client, key string) *CycleLock {
	if key == "" {
		key = "medsupply:cycle:leader"
	}
	return &CycleLock{client: client, key: key}
}

// TryLock 尝试抢占（token用于释放时校验归属）
func (l *CycleLock) TryLock(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "抢占周期锁失败")
	}
	return ok, nil
}

// Unlock 释放锁（只释放自己持有的）
// 教学要点：GET+DEL必须原子，否则可能误删别人的锁
// （自己的锁过期后被其他实例抢走，再DEL就删错了）
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *CycleLock) Unlock(ctx context.Context, token string) error {
	if err := unlockScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return apperrors.Wrap(err, "释放周期锁失败")
	}
	return nil
}
