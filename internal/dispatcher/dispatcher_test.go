package dispatcher_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slotwise/reservation-engine/internal/config"
	"github.com/slotwise/reservation-engine/internal/dispatcher"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

func newTestDispatcher(maxDelay time.Duration) *dispatcher.Dispatcher {
	return dispatcher.New(nil, config.Webhook{
		RequestTimeout: 5 * time.Second,
		MaxRetryDelay:  maxDelay,
	}, logger.New("debug"))
}

func TestNextRetryDelay_Exponential(t *testing.T) {
	d := newTestDispatcher(60 * time.Second)

	assert.Equal(t, 1*time.Second, d.NextRetryDelay(0))
	assert.Equal(t, 2*time.Second, d.NextRetryDelay(1))
	assert.Equal(t, 4*time.Second, d.NextRetryDelay(2))
	assert.Equal(t, 32*time.Second, d.NextRetryDelay(5))
}

func TestNextRetryDelay_ClampedToMax(t *testing.T) {
	d := newTestDispatcher(60 * time.Second)

	assert.Equal(t, 60*time.Second, d.NextRetryDelay(6))  // 2^6=64 > 60
	assert.Equal(t, 60*time.Second, d.NextRetryDelay(30)) // 2^30s is far above the 60s cap
}

func TestNextRetryDelay_NegativeTreatedAsZero(t *testing.T) {
	d := newTestDispatcher(60 * time.Second)
	assert.Equal(t, 1*time.Second, d.NextRetryDelay(-1))
}
