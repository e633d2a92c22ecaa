// Package mysql 基于MySQL的图书存储
//
// 图书记录是开放结构,不适合映射成固定列。这里把MySQL当作文档库使用:
//
//	book_documents
//	├─ seq     BIGINT 自增主键(插入顺序)
//	├─ doc_id  CHAR(24) 唯一索引(记录标识,十六进制)
//	└─ body    LONGTEXT 记录JSON(保持字段顺序,JSON函数可以直接解析)
//
// 查询条件编译为 JSON_EXTRACT 表达式,合并更新在事务中 SELECT ... FOR UPDATE 后整体回写。
package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明:
// 1. 使用GORM v2作为数据访问层
// 2. 配置连接池参数(MaxOpenConns、MaxIdleConns、ConnMaxLifetime)
// 3. 开发环境打印SQL,日志统一输出到zap
// 4. 按配置自动迁移文档表
func NewDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true, // 唯一索引冲突 → gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info("MySQL连接成功", zap.String("dbname", cfg.Database.DBName))

	// 注意:生产环境应使用版本化的迁移脚本,可以关闭 database.auto_migrate
	if cfg.Database.AutoMigrate {
		if err := db.Table(cfg.Database.Table).AutoMigrate(&DocumentModel{}); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

// DocumentModel 文档表模型
// 说明:infrastructure层的数据模型,领域层的 book.Record 不依赖GORM
type DocumentModel struct {
	Seq       uint64    `gorm:"column:seq;primaryKey;autoIncrement;comment:插入顺序"`
	DocID     string    `gorm:"column:doc_id;type:char(24);uniqueIndex;not null;comment:记录标识"`
	Body      string    `gorm:"column:body;type:longtext;not null;comment:记录JSON"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}
