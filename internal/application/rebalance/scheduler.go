package rebalance

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiebiao/medsupply/internal/domain/alert"
	apperrors "github.com/xiebiao/medsupply/pkg/errors"
)

// SchedulerState 调度器状态
type SchedulerState string

const (
	StateIdle    SchedulerState = "IDLE"
	StateRunning SchedulerState = "RUNNING"
)

// LeaderLock 多实例部署时的周期抢占锁（Redis实现）
// nil表示单实例部署，永远是leader
type LeaderLock interface {
	TryLock(ctx context.Context, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, token string) error
}

// SchedulerStatus 对外暴露的调度器快照
type SchedulerStatus struct {
	State               SchedulerState `json:"state"`
	LastCycle           *CycleSummary  `json:"last_cycle,omitempty"`
	LastError           string         `json:"last_error,omitempty"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	NextRunAt           time.Time      `json:"next_run_at"`
}

// Scheduler 周期调度器
//
// 教学要点：
// 1. 跳过而不是排队
//     到点时上个周期还在跑，本次直接跳过，
//     排队会让周期在数据库慢的时候无限堆积
//
// 2. 失败退避
//     周期失败后用更短的退避间隔重试（失败多半是暂时的），
//     连续失败达到阈值时升级为周期级告警
//
// 3. 手动触发复用同一条执行路径
//     TriggerNow只是把"到点"提前，互斥逻辑完全一致
type Scheduler struct {
	runner        CycleRunner
	alerts        alert.Repository
	lock          LeaderLock
	checkInterval time.Duration
	backoff       time.Duration
	lockTTL       time.Duration
	escalateAfter int

	mu        sync.Mutex
	state     SchedulerState
	lastCycle *CycleSummary
	lastError error
	failures  int
	nextRunAt time.Time

	trigger chan chan error
	done    chan struct{}
	stopped chan struct{}
}

// NewScheduler 创建调度器
// lock 传nil表示单实例部署
func NewScheduler(
	runner CycleRunner,
	alerts alert.Repository,
	lock LeaderLock,
	checkInterval time.Duration,
	backoff time.Duration,
	cycleTimeout time.Duration,
	escalateAfter int,
) *Scheduler {
	return &Scheduler{
		runner:        runner,
		alerts:        alerts,
		lock:          lock,
		checkInterval: checkInterval,
		backoff:       backoff,
		// 锁TTL略大于周期超时，崩溃实例的锁能自动过期
		lockTTL:       cycleTimeout + 30*time.Second,
		escalateAfter: escalateAfter,
		state:         StateIdle,
		trigger:       make(chan chan error),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Start 启动调度循环（阻塞，通常在goroutine中调用）
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.stopped)

	log.Printf("⏰ 调度器启动: 周期间隔=%v, 失败退避=%v", s.checkInterval, s.backoff)

	// 启动后立即跑第一个周期，而不是等一个完整间隔
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏰ 调度器收到退出信号")
			return
		case <-s.done:
			log.Println("⏰ 调度器停止")
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(s.nextInterval())
		case reply := <-s.trigger:
			reply <- s.runOnce(ctx)
			// 手动触发后重置节拍，避免紧接着又跑一次
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.nextInterval())
		}
	}
}

// Stop 停止调度器并等待循环退出
func (s *Scheduler) Stop() {
	close(s.done)
	<-s.stopped
}

// TriggerNow 手动触发一次周期（同步等待结果）
// 正在执行时返回ErrCycleRunning
func (s *Scheduler) TriggerNow() error {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return apperrors.ErrCycleRunning
	}
	s.mu.Unlock()

	reply := make(chan error, 1)
	select {
	case s.trigger <- reply:
		return <-reply
	case <-s.stopped:
		return fmt.Errorf("调度器已停止")
	}
}

// Status 当前状态快照
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SchedulerStatus{
		State:               s.state,
		LastCycle:           s.lastCycle,
		ConsecutiveFailures: s.failures,
		NextRunAt:           s.nextRunAt,
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	return st
}

// runOnce 执行一次周期（含多实例抢占）
func (s *Scheduler) runOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return apperrors.ErrCycleRunning
	}
	s.state = StateRunning
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		s.nextRunAt = time.Now().Add(s.nextIntervalLocked())
		s.mu.Unlock()
	}()

	// 多实例抢占：没抢到说明别的实例在跑，本次静默跳过
	if s.lock != nil {
		token := uuid.New().String()
		ok, err := s.lock.TryLock(ctx, token, s.lockTTL)
		if err != nil {
			log.Printf("⚠️ 周期锁抢占失败, 本次跳过: %v", err)
			return err
		}
		if !ok {
			log.Println("⏭️ 其他实例正在执行周期, 本次跳过")
			return nil
		}
		defer func() {
			if err := s.lock.Unlock(ctx, token); err != nil {
				log.Printf("⚠️ 周期锁释放失败（将随TTL过期）: %v", err)
			}
		}()
	}

	summary, err := s.runner.RunCycle(ctx)

	s.mu.Lock()
	s.lastCycle = summary
	s.lastError = err
	if err != nil {
		s.failures++
	} else {
		s.failures = 0
	}
	failures := s.failures
	s.mu.Unlock()

	if err != nil {
		log.Printf("❌ 周期执行失败(连续%d次): %v", failures, err)
		s.maybeEscalate(ctx, failures, err)
		return err
	}

	// 成功后解除之前的周期级告警
	s.resolveEscalation(ctx)
	return nil
}

// maybeEscalate 连续失败达到阈值时发周期级告警
func (s *Scheduler) maybeEscalate(ctx context.Context, failures int, cause error) {
	if s.escalateAfter <= 0 || failures < s.escalateAfter {
		return
	}

	_, created, err := s.alerts.Raise(ctx, &alert.Alert{
		Type:    alert.TypeCycleFailure,
		Message: fmt.Sprintf("重平衡周期连续失败%d次, 最近错误: %v", failures, cause),
	})
	if err != nil {
		log.Printf("⚠️ 周期级告警写入失败: %v", err)
		return
	}
	if created {
		log.Printf("🚨 周期级告警已发起: 连续失败%d次", failures)
	}
}

func (s *Scheduler) resolveEscalation(ctx context.Context) {
	resolved, err := s.alerts.ResolveIfOpen(ctx, 0, 0, alert.TypeCycleFailure)
	if err != nil {
		log.Printf("⚠️ 周期级告警解除失败: %v", err)
		return
	}
	if resolved {
		log.Println("✅ 周期恢复正常, 周期级告警已解除")
	}
}

// nextInterval 下一轮等待时长（失败后退避）
func (s *Scheduler) nextInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIntervalLocked()
}

func (s *Scheduler) nextIntervalLocked() time.Duration {
	if s.failures > 0 && s.backoff > 0 {
		return s.backoff
	}
	return s.checkInterval
}
