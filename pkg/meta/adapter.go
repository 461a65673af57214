package meta

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 数据库配置
type Config struct {
	Driver   string // "postgres" 或 "sqlite"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable" for local
	Path     string // sqlite 文件路径
}

// DB 封装了 GORM 实例，作为元数据层的入口
type DB struct {
	conn *gorm.DB
}

// dialector 根据驱动类型构造 GORM Dialector
func (cfg Config) dialector() (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// NewDB 初始化数据库连接
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 获取底层 sql.DB 以配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 验证连接是否存活
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	// 自动迁移表结构
	if err := db.AutoMigrate(&SnapshotModel{}); err != nil {
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}

	return &DB{conn: db}, nil
}

// NewWithConn 允许使用现有的 GORM 连接初始化 DB。
// 这对于依赖注入、复用连接池或单元测试非常有用。
func NewWithConn(conn *gorm.DB) *DB {
	return &DB{conn: conn}
}

// AutoMigrate 自动迁移表结构
func (d *DB) AutoMigrate(models ...any) error {
	return d.conn.AutoMigrate(models...)
}

func (d *DB) GetConn() *gorm.DB {
	return d.conn
}

// Close 关闭底层连接池
func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
