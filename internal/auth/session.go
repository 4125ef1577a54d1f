package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyFmt = "session:%s"

func SetSession(rdb *redis.Client, subject, token string, duration time.Duration) error {
	ctx := context.Background()
	key := fmt.Sprintf(sessionKeyFmt, subject)
	return rdb.Set(ctx, key, token, duration).Err()
}

func GetSession(rdb *redis.Client, subject string) (string, error) {
	ctx := context.Background()
	key := fmt.Sprintf(sessionKeyFmt, subject)
	return rdb.Get(ctx, key).Result()
}

func DeleteSession(rdb *redis.Client, subject string) error {
	ctx := context.Background()
	key := fmt.Sprintf(sessionKeyFmt, subject)
	return rdb.Del(ctx, key).Err()
}
