// Package idempotency защищает обработчики платёжных колбеков от повторов.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper отсекает повторную обработку одного и того же события по ключу
// в Redis. Ключ живёт ограниченное время: повтор после истечения TTL
// отсекается проверками статусов в базе.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDeduper создаёт deduper с заданным TTL ключей.
func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce пытается захватить ключ для события. Возвращает true при
// первой обработке и false при повторе. Если Redis недоступен, обработка
// не блокируется: защита от повторов остаётся на проверках статусов.
func (d *Deduper) AcquireOnce(ctx context.Context, scope, eventID string) bool {
	if d == nil || d.rdb == nil {
		return true
	}

	key := fmt.Sprintf("dedup:%s:%s", scope, eventID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Release снимает ключ, если обработка завершилась ошибкой и событие
// должно быть обработано повторно.
func (d *Deduper) Release(ctx context.Context, scope, eventID string) {
	if d == nil || d.rdb == nil {
		return
	}
	d.rdb.Del(ctx, fmt.Sprintf("dedup:%s:%s", scope, eventID))
}
