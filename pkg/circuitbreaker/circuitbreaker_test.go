package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCircuitBreakerStates 测试熔断器状态转换
func TestCircuitBreakerStates(t *testing.T) {
	t.Run("初始状态为CLOSED", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{
			MaxRequests: 1,
			Interval:    time.Second,
			Timeout:     time.Second,
			ReadyToTrip: func(counts Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})

		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("连续失败达到阈值后转为OPEN", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})

		failingCall := func() error {
			return errors.New("下游服务不可用")
		}

		// 前两次失败，仍然是CLOSED
		for i := 0; i < 2; i++ {
			err := cb.Execute(failingCall)
			require.Error(t, err)
			assert.Equal(t, StateClosed, cb.State())
		}

		// 第三次失败，触发熔断
		err := cb.Execute(failingCall)
		require.Error(t, err)
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("OPEN状态下请求快速失败", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts Counts) bool {
				return counts.ConsecutiveFailures >= 1
			},
		})

		// 触发熔断
		_ = cb.Execute(func() error { return errors.New("失败") })
		require.Equal(t, StateOpen, cb.State())

		// 熔断后请求不会调用下游
		called := false
		err := cb.Execute(func() error {
			called = true
			return nil
		})

		assert.ErrorIs(t, err, ErrOpenState)
		assert.False(t, called, "OPEN状态下不应调用下游")
	})

	t.Run("超时后转为HALF_OPEN并允许探测", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     50 * time.Millisecond,
			ReadyToTrip: func(counts Counts) bool {
				return counts.ConsecutiveFailures >= 1
			},
		})

		// 触发熔断
		_ = cb.Execute(func() error { return errors.New("失败") })
		require.Equal(t, StateOpen, cb.State())

		// 等待超时
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		// 探测成功，转为CLOSED
		err := cb.Execute(func() error { return nil })
		require.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("HALF_OPEN状态下失败立即转回OPEN", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     50 * time.Millisecond,
			ReadyToTrip: func(counts Counts) bool {
				return counts.ConsecutiveFailures >= 1
			},
		})

		_ = cb.Execute(func() error { return errors.New("失败") })
		time.Sleep(60 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())

		// 探测失败
		_ = cb.Execute(func() error { return errors.New("仍然失败") })
		assert.Equal(t, StateOpen, cb.State())
	})
}

// TestCircuitBreakerStateChangeCallback 测试状态变化回调
func TestCircuitBreakerStateChangeCallback(t *testing.T) {
	cb := NewCircuitBreaker("procurement-gateway", Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	type transition struct {
		name string
		from State
		to   State
	}
	var transitions []transition

	cb.SetStateChangeCallback(func(name string, from State, to State) {
		transitions = append(transitions, transition{name, from, to})
	})

	_ = cb.Execute(func() error { return errors.New("失败") })
	_ = cb.Execute(func() error { return errors.New("失败") })

	require.Len(t, transitions, 1)
	assert.Equal(t, "procurement-gateway", transitions[0].name)
	assert.Equal(t, StateClosed, transitions[0].from)
	assert.Equal(t, StateOpen, transitions[0].to)
}

// TestCircuitBreakerFailureRate 测试基于失败率的熔断策略
func TestCircuitBreakerFailureRate(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			// 至少5次请求且失败率超过50%
			return counts.Requests >= 5 && counts.FailureRate() > 0.5
		},
	})

	// 2成功 + 2失败：失败率50%，不触发
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errors.New("失败") })
	_ = cb.Execute(func() error { return errors.New("失败") })
	assert.Equal(t, StateClosed, cb.State())

	// 第5次失败：失败率60%，触发熔断
	_ = cb.Execute(func() error { return errors.New("失败") })
	assert.Equal(t, StateOpen, cb.State())
}

// mockSupplierGateway 模拟供应商下单网关
//
// 模拟真实场景：
// - 采购子系统故障时，所有下单请求都失败
// - 恢复后，请求正常
type mockSupplierGateway struct {
	healthy bool
}

func (g *mockSupplierGateway) placeOrder() error {
	if !g.healthy {
		return errors.New("采购子系统不可用")
	}
	return nil
}

// TestCircuitBreakerWithSupplierGateway 模拟引擎下单场景
func TestCircuitBreakerWithSupplierGateway(t *testing.T) {
	gateway := &mockSupplierGateway{healthy: false}

	cb := NewCircuitBreaker("procurement-gateway", Config{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     50 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	placeOrder := func() error {
		return cb.Execute(gateway.placeOrder)
	}

	// 阶段1：采购子系统故障，连续失败触发熔断
	for i := 0; i < 3; i++ {
		err := placeOrder()
		require.Error(t, err)
	}
	assert.Equal(t, StateOpen, cb.State())

	// 阶段2：熔断期间快速失败，不再冲击下游
	err := placeOrder()
	assert.ErrorIs(t, err, ErrOpenState)

	// 阶段3：下游恢复，熔断超时后探测成功
	gateway.healthy = true
	time.Sleep(60 * time.Millisecond)

	err = placeOrder()
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())

	// 阶段4：恢复正常下单
	err = placeOrder()
	assert.NoError(t, err)
}

// BenchmarkCircuitBreakerExecute 性能基准测试
func BenchmarkCircuitBreakerExecute(b *testing.B) {
	cb := NewCircuitBreaker("bench", Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(func() error { return nil })
	}
}
