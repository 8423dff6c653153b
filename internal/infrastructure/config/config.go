package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、环境变量覆盖、配置热重载
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MQ       MQConfig       `mapstructure:"mq"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 生成MySQL连接字符串
// 格式：user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
// 注意：loc参数需要URL编码（Asia/Shanghai → Asia%2FShanghai）
func (d DatabaseConfig) DSN() string {
	// URL编码loc参数
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type MQConfig struct {
	// URL RabbitMQ连接地址（为空时不发布事件）
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// EngineConfig 调度引擎参数
//
// 设计说明：
// 这里的阈值类参数（surplus_floor等）是全网统一的策略参数，
// 按物资/库位的个性化阈值存在库存表的minimum_threshold字段里
type EngineConfig struct {
	CheckInterval  time.Duration `mapstructure:"check_interval"`          // 周期间隔
	FailureBackoff time.Duration `mapstructure:"failure_backoff"`         // 失败后的退避时间
	CycleTimeout   time.Duration `mapstructure:"cycle_timeout"`           // 单个周期的最长执行时间
	MaxConcurrency int           `mapstructure:"max_concurrency"`         // 并发处理的物资数上限
	SurplusFloor   int           `mapstructure:"surplus_floor"`           // 盈余判定门槛
	ReserveBuffer  int           `mapstructure:"reserve_buffer"`          // 盈余库位自留缓冲
	SafetyMargin   int           `mapstructure:"safety_margin"`           // 采购安全余量
	BufferFloor    int           `mapstructure:"buffer_surplus_floor"`    // 缓冲再分配捐赠门槛
	OrderDedupTTL  time.Duration `mapstructure:"order_dedup_window"`      // 采购去重窗口
	EscalateAfter  int           `mapstructure:"escalate_after_failures"` // 连续失败多少次后升级告警
	LeaderLockKey  string        `mapstructure:"leader_lock_key"`         // 多实例部署时的周期抢占锁
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	CollectorURL string `mapstructure:"collector_url"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

// Load 加载配置文件
// 支持：
// 1. 默认加载config/config.yaml
// 2. 通过环境变量MEDSUPPLY_ENV指定环境（如config.prod.yaml）
// 3. 环境变量覆盖（如MEDSUPPLY_DATABASE_PASSWORD）
func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 环境特定配置（如config.prod.yaml）
	if env := viper.GetString("env"); env != "" {
		v.SetConfigName("config." + env)
	}

	// 引擎参数默认值（配置文件可覆盖）
	setEngineDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 环境变量绑定（自动转换，如MEDSUPPLY_DATABASE_PASSWORD → database.password）
	v.SetEnvPrefix("MEDSUPPLY")
	v.AutomaticEnv()

	// 解析到结构体
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 配置验证
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setEngineDefaults 引擎参数默认值
func setEngineDefaults(v *viper.Viper) {
	v.SetDefault("engine.check_interval", "5m")
	v.SetDefault("engine.failure_backoff", "1m")
	v.SetDefault("engine.cycle_timeout", "3m")
	v.SetDefault("engine.max_concurrency", 4)
	v.SetDefault("engine.surplus_floor", 5)
	v.SetDefault("engine.reserve_buffer", 2)
	v.SetDefault("engine.safety_margin", 20)
	v.SetDefault("engine.buffer_surplus_floor", 3)
	v.SetDefault("engine.order_dedup_window", "30m")
	v.SetDefault("engine.escalate_after_failures", 3)
	v.SetDefault("mq.exchange", "medsupply.events")
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if cfg.Engine.CheckInterval <= 0 {
		return fmt.Errorf("无效的周期间隔: %v", cfg.Engine.CheckInterval)
	}

	if cfg.Engine.MaxConcurrency <= 0 {
		return fmt.Errorf("无效的并发上限: %d", cfg.Engine.MaxConcurrency)
	}

	if cfg.Engine.CycleTimeout <= 0 || cfg.Engine.CycleTimeout >= cfg.Engine.CheckInterval {
		return fmt.Errorf("周期超时必须小于周期间隔: timeout=%v, interval=%v",
			cfg.Engine.CycleTimeout, cfg.Engine.CheckInterval)
	}

	return nil
}
