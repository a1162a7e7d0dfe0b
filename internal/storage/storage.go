package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/logger"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("storage: not found")

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis
}

// Components 需要初始化的组件
type Components struct {
	MinIO    bool
	RabbitMQ bool
	MySQL    bool
	Redis    bool
}

// NewStorage 创建存储管理器。单个组件初始化失败只记录警告，全部失败才返回错误。
func NewStorage(ctx context.Context, cfg *config.Config, want Components) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	lg := logger.Component("storage")

	storage := &Storage{}
	var err error
	var initErrors []string
	requested := 0

	if want.MinIO && cfg.MinIO.Endpoint != "" {
		requested++
		storage.MinIO, err = NewMinIO(ctx, &cfg.MinIO, lg)
		if err != nil {
			lg.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if want.RabbitMQ && cfg.RabbitMQ.URL != "" {
		requested++
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, lg)
		if err != nil {
			lg.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if want.MySQL && cfg.MySQL.Host != "" {
		requested++
		storage.MySQL, err = NewMySQL(&cfg.MySQL, lg)
		if err != nil {
			lg.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if want.Redis && cfg.Redis.Address != "" {
		requested++
		storage.Redis, err = NewRedisAdapter(ctx, &cfg.Redis)
		if err != nil {
			lg.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	if requested > 0 && len(initErrors) == requested {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		lg.Warn().Str("failed", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	lg := logger.Component("storage")
	for name, c := range map[string]interface{ Close() error }{
		"RabbitMQ": s.RabbitMQ,
		"MySQL":    s.MySQL,
		"Redis":    s.Redis,
	} {
		if err := c.Close(); err != nil {
			lg.Error().Err(err).Str("component", name).Msg("关闭连接失败")
		}
	}
	// MinIO 客户端无需显式关闭
}
