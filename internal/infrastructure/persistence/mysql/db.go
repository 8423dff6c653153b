package mysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/medsupply/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. 自动迁移表结构（AutoMigrate）
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	// 1. 构建DSN连接字符串
	dsn := cfg.Database.DSN()

	// 2. 配置GORM日志
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	// 3. 连接数据库
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			// 使用UTC+8时间（配合MySQL的TZ=Asia/Shanghai）
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 4. 配置连接池
	// 学习要点：合理的连接池配置对性能至关重要
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	// 最大打开连接数（建议：CPU核数 * 2 + 磁盘数量）
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	// 最大空闲连接数（建议：MaxOpenConns的1/4到1/2）
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// 连接最大存活时间（防止数据库主动断开连接）
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// 5. 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Println("✓ 数据库连接成功")

	// 6. 自动迁移表结构（开发环境）
	// 注意：生产环境应使用专门的迁移工具（如golang-migrate）
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// autoMigrate 自动迁移表结构
// 学习要点：
// 1. AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
// 2. 生产环境应使用版本化的迁移脚本，不要依赖AutoMigrate
func autoMigrate(db *gorm.DB) error {
	// 定义需要迁移的模型
	// 注意：这里需要使用GORM的模型定义（带tag），不是domain层的实体
	return db.AutoMigrate(
		&LocationStockModel{},
		&TransferRecordModel{},
		&PurchaseOrderModel{},
		&AlertModel{},
		&ActivityLogModel{},
	)
}

// LocationStockModel GORM库位库存模型
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain/stock/entity.go是领域实体，不依赖GORM
// 3. Repository负责两者之间的转换
// 4. (item_id, location_id)有复合唯一索引，同一库位同一物资只有一行
type LocationStockModel struct {
	ID               uint      `gorm:"primaryKey"`
	ItemID           uint      `gorm:"uniqueIndex:idx_item_location;not null;comment:物资ID"`
	LocationID       uint      `gorm:"uniqueIndex:idx_item_location;not null;comment:库位ID"`
	Quantity         int       `gorm:"not null;default:0;comment:当前数量"`
	MinimumThreshold int       `gorm:"not null;default:0;comment:最低阈值"`
	MaximumCapacity  int       `gorm:"not null;default:0;comment:最大容量(0表示不限)"`
	CreatedAt        time.Time `gorm:"comment:创建时间"`
	UpdatedAt        time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (LocationStockModel) TableName() string {
	return "location_stocks"
}

// TransferRecordModel GORM调拨流水模型
// 教学要点:
// 1. 每次调拨尝试都落一条流水(成功和失败都要记录)
// 2. Status使用int存储(节省空间,便于索引)
type TransferRecordModel struct {
	ID            uint      `gorm:"primaryKey"`
	ItemID        uint      `gorm:"index;not null;comment:物资ID"`
	SourceID      uint      `gorm:"not null;comment:源库位ID"`
	DestinationID uint      `gorm:"not null;comment:目标库位ID"`
	Quantity      int       `gorm:"not null;comment:调拨数量"`
	Rationale     string    `gorm:"size:32;not null;comment:调拨理由"`
	Status        int       `gorm:"index;type:tinyint;default:1;comment:状态(1待执行2已完成3失败)"`
	FailReason    string    `gorm:"size:255;comment:失败原因"`
	CreatedAt     time.Time `gorm:"index;comment:创建时间"`
	UpdatedAt     time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (TransferRecordModel) TableName() string {
	return "transfer_records"
}

// PurchaseOrderModel GORM采购单模型
// 教学要点:
// 1. OrderNo有唯一索引(业务主键)
// 2. 采购单创建后进入人工审批流，引擎只负责创建
type PurchaseOrderModel struct {
	ID            uint      `gorm:"primaryKey"`
	OrderNo       string    `gorm:"uniqueIndex;size:32;not null;comment:采购单号"`
	ItemID        uint      `gorm:"index;not null;comment:物资ID"`
	DestinationID uint      `gorm:"index;not null;comment:收货库位ID"`
	Quantity      int       `gorm:"not null;comment:采购数量"`
	Priority      string    `gorm:"size:16;not null;comment:优先级"`
	Reason        string    `gorm:"size:255;comment:采购原因"`
	TotalShortage int       `gorm:"comment:下单时的全网缺口"`
	Status        int       `gorm:"index;type:tinyint;default:1;comment:状态(1待审批2已批准3已驳回)"`
	CreatedAt     time.Time `gorm:"index;comment:创建时间"`
	UpdatedAt     time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// AlertModel GORM告警模型
// 设计说明:
// 1. (item_id, location_id, type, is_resolved)组合查询频繁,加复合索引
// 2. 同一(物资,库位,类型)最多一条未解除告警,由Repository的Raise保证
type AlertModel struct {
	ID         uint       `gorm:"primaryKey"`
	ItemID     uint       `gorm:"index:idx_alert_open;not null;comment:物资ID"`
	LocationID uint       `gorm:"index:idx_alert_open;not null;comment:库位ID"`
	Type       string     `gorm:"index:idx_alert_open;size:32;not null;comment:告警类型"`
	Message    string     `gorm:"size:255;comment:告警描述"`
	IsResolved bool       `gorm:"index:idx_alert_open;not null;default:false;comment:是否已解除"`
	CreatedAt  time.Time  `gorm:"index;comment:创建时间"`
	ResolvedAt *time.Time `gorm:"comment:解除时间"`
}

// TableName 指定表名
func (AlertModel) TableName() string {
	return "alerts"
}

// ActivityLogModel GORM活动流水模型
// 设计说明:
// 流水是追加式的,只插入不更新,按周期ID和创建时间查询
type ActivityLogModel struct {
	ID            uint      `gorm:"primaryKey"`
	CycleID       string    `gorm:"index;size:36;comment:周期ID"`
	Type          string    `gorm:"index;size:32;not null;comment:条目类型"`
	ItemID        uint      `gorm:"index;comment:物资ID"`
	LocationID    uint      `gorm:"comment:库位ID"`
	QuantityDelta int       `gorm:"comment:数量变化"`
	Detail        string    `gorm:"size:500;comment:详情"`
	CreatedAt     time.Time `gorm:"index;comment:创建时间"`
}

// TableName 指定表名
func (ActivityLogModel) TableName() string {
	return "activity_logs"
}
