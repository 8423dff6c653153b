package mysql

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/medsupply/internal/domain/activity"
)

// ActivityRecorder 活动日志记录器(异步落库)
//
// 教学要点:
// 1. 为什么异步?
//    活动日志是运维视角的流水,不是业务凭证。
//    主管线(调拨/采购)不应该因为日志写入慢而变慢,
//    Append把条目丢进缓冲通道立即返回,后台goroutine批量落库
// 2. 通道满时丢弃并打日志
//    宁可丢流水也不阻塞调度周期(调拨记录/采购单仍然完整)
type ActivityRecorder struct {
	db      *gorm.DB
	entries chan *activity.Entry
	done    chan struct{}
}

// 缓冲大小:一个周期内的条目数通常在百级
const activityBufferSize = 1024

// NewActivityRecorder 创建活动日志记录器并启动后台写入goroutine
func NewActivityRecorder(db *gorm.DB) *ActivityRecorder {
	r := &ActivityRecorder{
		db:      db,
		entries: make(chan *activity.Entry, activityBufferSize),
		done:    make(chan struct{}),
	}
	go r.drain()
	return r
}

// Append 追加一条活动日志(fire-and-forget)
func (r *ActivityRecorder) Append(entry *activity.Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	select {
	case r.entries <- entry:
	default:
		// 通道满,丢弃
		log.Printf("⚠️ 活动日志缓冲已满, 丢弃条目: type=%s item=%d", entry.Type, entry.ItemID)
	}
}

// Close 停止后台写入(进程退出前调用,冲刷剩余条目)
func (r *ActivityRecorder) Close() {
	close(r.entries)
	<-r.done
}

// drain 后台消费循环
func (r *ActivityRecorder) drain() {
	defer close(r.done)

	for entry := range r.entries {
		model := &ActivityLogModel{
			CycleID:       entry.CycleID,
			Type:          string(entry.Type),
			ItemID:        entry.ItemID,
			LocationID:    entry.LocationID,
			QuantityDelta: entry.QuantityDelta,
			Detail:        entry.Detail,
			CreatedAt:     entry.CreatedAt,
		}
		if err := r.db.Create(model).Error; err != nil {
			log.Printf("⚠️ 活动日志写入失败: %v", err)
		}
	}
}
