package ratelimiter

import (
	"sync"
	"time"
)

// RateLimiter は固定ウィンドウで操作の頻度を制限します。並行利用可能。
type RateLimiter struct {
	mu        sync.Mutex
	limit     int           // ウィンドウあたりの上限
	interval  time.Duration // ウィンドウ幅
	count     int
	lastReset time.Time
	now       func() time.Time
}

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。limit<=0 なら無制限。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// Allow は1回分を消費できればtrue、上限に達していれば次のウィンドウまでの残り時間とfalseを返します。
func (rl *RateLimiter) Allow() (bool, time.Duration) {
	if rl.limit <= 0 {
		return true, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// interval を過ぎたらカウントリセット
	if now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = now
	}
	if rl.count >= rl.limit {
		return false, rl.interval - now.Sub(rl.lastReset)
	}
	rl.count++
	return true, 0
}
