package utils

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leyuan/points-mall/config"
)

func smsKey(parts ...string) string {
	return "sms:" + strings.Join(parts, ":")
}

// SMSDailyLimitCheck allows up to N codes per phone per day.
func SMSDailyLimitCheck(phone string) bool {
	cfg := config.Get()
	limit := cfg.SMSMaxPerPhoneDay
	if limit <= 0 {
		return true
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := smsKey("phoneday", phone, time.Now().Format("20060102"))
	n, err := cli.Get(ctx, key).Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return true // fail-open
	}
	return n < limit
}

// SMSDailyIncrement increments the per-phone counter for today.
func SMSDailyIncrement(phone string) {
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := smsKey("phoneday", phone, time.Now().Format("20060102"))
	if err := cli.Incr(ctx, key).Err(); err == nil {
		ttl := time.Until(time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour))
		_ = cli.Expire(ctx, key, ttl).Err()
	}
}

// SMSIPHourlyRecord increments the per-IP send counter for the current hour
// and reports whether the caller is still under the limit.
func SMSIPHourlyRecord(ip string) bool {
	cfg := config.Get()
	limit := cfg.SMSMaxPerIPHour
	if limit <= 0 {
		return true
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := smsKey("iphour", ip, time.Now().Format("2006010215"))
	n, err := cli.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	_ = cli.Expire(ctx, key, time.Hour).Err()
	return int(n) <= limit
}
