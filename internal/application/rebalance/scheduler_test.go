package rebalance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/medsupply/internal/domain/alert"
	apperrors "github.com/xiebiao/medsupply/pkg/errors"
)

// stubRunner 可编程的周期执行器
type stubRunner struct {
	mu    sync.Mutex
	runs  int
	err   error
	delay time.Duration
}

func (r *stubRunner) RunCycle(ctx context.Context) (*CycleSummary, error) {
	r.mu.Lock()
	r.runs++
	err := r.err
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &CycleSummary{CycleID: "stub", StartedAt: time.Now()}, nil
}

func (r *stubRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func (r *stubRunner) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// stubLock 可编程的周期抢占锁
type stubLock struct {
	mu      sync.Mutex
	busy    bool
	locks   int
	unlocks int
}

func (l *stubLock) TryLock(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return false, nil
	}
	l.locks++
	return true, nil
}

func (l *stubLock) Unlock(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocks++
	return nil
}

func newTestScheduler(runner CycleRunner, alerts alert.Repository, lock LeaderLock) *Scheduler {
	// 间隔拉长到测试不会自然触发第二轮，节拍由TriggerNow驱动
	return NewScheduler(runner, alerts, lock, time.Hour, time.Hour, time.Minute, 2)
}

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		s.Stop()
	})

	// 等启动时的首个周期跑完
	waitForIdle(t, s)
}

// waitForIdle 等首个runOnce完成（NextRunAt在每次runOnce结束时写入）
func waitForIdle(t *testing.T, s *Scheduler) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := s.Status()
		if st.State == StateIdle && !st.NextRunAt.IsZero() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("调度器未回到IDLE状态")
}

func TestSchedulerRunsImmediatelyOnStart(t *testing.T) {
	runner := &stubRunner{}
	s := newTestScheduler(runner, newFakeAlertRepo(), nil)
	startScheduler(t, s)

	assert.Equal(t, 1, runner.runCount(), "启动后应立即执行首个周期")
	st := s.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, 0, st.ConsecutiveFailures)
	require.NotNil(t, st.LastCycle)
	assert.Equal(t, "stub", st.LastCycle.CycleID)
}

func TestSchedulerTriggerNow(t *testing.T) {
	runner := &stubRunner{}
	s := newTestScheduler(runner, newFakeAlertRepo(), nil)
	startScheduler(t, s)

	require.NoError(t, s.TriggerNow())
	assert.Equal(t, 2, runner.runCount())
}

func TestSchedulerRejectsTriggerWhileRunning(t *testing.T) {
	runner := &stubRunner{delay: 200 * time.Millisecond}
	s := newTestScheduler(runner, newFakeAlertRepo(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		s.Stop()
	})

	// 等首个周期进入RUNNING
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && s.Status().State != StateRunning {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, StateRunning, s.Status().State)

	err := s.TriggerNow()
	assert.ErrorIs(t, err, apperrors.ErrCycleRunning, "执行中应拒绝手动触发, 而不是排队")

	waitForIdle(t, s)
	assert.Equal(t, 1, runner.runCount())
}

func TestSchedulerEscalatesAfterConsecutiveFailures(t *testing.T) {
	runner := &stubRunner{}
	alerts := newFakeAlertRepo()
	s := newTestScheduler(runner, alerts, nil)
	startScheduler(t, s)

	runner.setErr(errors.New("数据库连接失败"))

	// escalateAfter=2：第一次失败不升级
	require.Error(t, s.TriggerNow())
	assert.Equal(t, 0, alerts.openCount())
	assert.Equal(t, 1, s.Status().ConsecutiveFailures)

	// 第二次失败升级为周期级告警
	require.Error(t, s.TriggerNow())
	assert.Equal(t, 1, alerts.openCount())
	assert.Equal(t, 2, s.Status().ConsecutiveFailures)

	// 第三次失败不重复告警（Raise幂等）
	require.Error(t, s.TriggerNow())
	assert.Equal(t, 1, alerts.openCount())

	// 恢复后计数清零、告警解除
	runner.setErr(nil)
	require.NoError(t, s.TriggerNow())
	assert.Equal(t, 0, s.Status().ConsecutiveFailures)
	assert.Equal(t, 0, alerts.openCount())
}

func TestSchedulerSkipsWhenNotLeader(t *testing.T) {
	runner := &stubRunner{}
	lock := &stubLock{busy: true}
	s := newTestScheduler(runner, newFakeAlertRepo(), lock)
	startScheduler(t, s)

	assert.Equal(t, 0, runner.runCount(), "没抢到锁不应执行周期")

	// 对方实例释放后恢复执行
	lock.mu.Lock()
	lock.busy = false
	lock.mu.Unlock()

	require.NoError(t, s.TriggerNow())
	assert.Equal(t, 1, runner.runCount())
	assert.Equal(t, 1, lock.locks)
	assert.Equal(t, 1, lock.unlocks, "周期结束后应释放锁")
}

func TestSchedulerStatusTracksLastError(t *testing.T) {
	runner := &stubRunner{}
	s := newTestScheduler(runner, newFakeAlertRepo(), nil)
	startScheduler(t, s)

	runner.setErr(errors.New("快照读取超时"))
	require.Error(t, s.TriggerNow())

	st := s.Status()
	assert.Contains(t, st.LastError, "快照读取超时")
	assert.False(t, st.NextRunAt.IsZero())
}
