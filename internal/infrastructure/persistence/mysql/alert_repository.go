package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/medsupply/internal/domain/alert"
	apperrors "github.com/xiebiao/medsupply/pkg/errors"
)

// alertRepository 告警仓储实现(MySQL)
// 设计说明:
// 幂等性在事务+行锁里保证:先锁定未解除告警行,
// 存在则直接返回,不存在才插入(防止并发周期重复告警)
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository 创建告警仓储
func NewAlertRepository(db *gorm.DB) alert.Repository {
	return &alertRepository{db: db}
}

// Raise 发起告警(幂等)
// 同一(物资, 库位, 类型)存在未解除告警时不新建
func (r *alertRepository) Raise(ctx context.Context, a *alert.Alert) (uint, bool, error) {
	var id uint
	var created bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 锁定已有的未解除告警
		var existing AlertModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("item_id = ? AND location_id = ? AND type = ? AND is_resolved = ?",
				a.ItemID, a.LocationID, string(a.Type), false).
			First(&existing).Error

		if err == nil {
			// 已有未解除告警,幂等返回
			id = existing.ID
			created = false
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(err, "查询告警失败")
		}

		// 2. 不存在则创建
		model := &AlertModel{
			ItemID:     a.ItemID,
			LocationID: a.LocationID,
			Type:       string(a.Type),
			Message:    a.Message,
			IsResolved: false,
			CreatedAt:  time.Now(),
		}
		if err := tx.Create(model).Error; err != nil {
			return apperrors.Wrap(err, "创建告警失败")
		}

		id = model.ID
		created = true
		return nil
	})

	if err != nil {
		return 0, false, err
	}

	a.ID = id
	return id, created, nil
}

// ResolveIfOpen 解除指定键上的未解除告警
// 教学要点:条件UPDATE天然幂等,RowsAffected=0表示没有可解除的告警
func (r *alertRepository) ResolveIfOpen(ctx context.Context, itemID, locationID uint, t alert.Type) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&AlertModel{}).
		Where("item_id = ? AND location_id = ? AND type = ? AND is_resolved = ?",
			itemID, locationID, string(t), false).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": now,
		})

	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "解除告警失败")
	}

	return result.RowsAffected > 0, nil
}
