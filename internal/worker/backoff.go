package worker

import (
	"math/rand/v2"
	"time"
)

// RetryDelay computes the jittered back-off before the next delivery
// attempt: retry_count^4 + 15 + r*(retry_count+1) seconds, with r drawn
// uniformly from [0, 30). Same curve Sidekiq uses for its retry set.
func RetryDelay(retryCount int) time.Duration {
	n := int64(retryCount)
	r := int64(rand.IntN(30))
	seconds := n*n*n*n + 15 + r*(n+1)
	return time.Duration(seconds) * time.Second
}
