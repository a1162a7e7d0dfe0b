package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/types"
)

// MinIO 保存上传的原始简历，供异步解析任务下载
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	logger         *zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, lg *zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if lg == nil {
		nop := zerolog.Nop()
		lg = &nop
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, cfg: cfg, originalBucket: cfg.OriginalsBucket, logger: lg}
	if err := m.ensureBucketExists(ctx, m.originalBucket, cfg.Location); err != nil {
		return nil, err
	}
	if cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalBucket, "expire-originals", cfg.OriginalFileExpireDays); err != nil {
			// 生命周期规则设置失败不影响上传下载
			lg.Warn().Err(err).Str("bucket", m.originalBucket).Msg("设置生命周期规则失败")
		}
	}

	lg.Info().Str("endpoint", cfg.Endpoint).Str("bucket", m.originalBucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	m.logger.Info().Str("bucket", bucketName).Msg("存储桶已创建")
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// OriginalObjectKey 原始文件的对象路径
func OriginalObjectKey(jobID string, format types.DocumentFormat) string {
	return fmt.Sprintf("resume/%s/original%s", jobID, format.Extension())
}

// UploadOriginal 上传原始文件，返回对象路径
func (m *MinIO) UploadOriginal(ctx context.Context, jobID string, doc types.RawDocument) (string, error) {
	objectKey := OriginalObjectKey(jobID, doc.Format)
	info, err := m.client.PutObject(ctx, m.originalBucket, objectKey, bytes.NewReader(doc.Data), int64(doc.Len()),
		minio.PutObjectOptions{ContentType: doc.Format.ContentType()})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.originalBucket, objectKey, err)
	}
	m.logger.Debug().Str("object_key", objectKey).Str("etag", info.ETag).Int64("size", info.Size).Msg("原始文件已上传")
	return objectKey, nil
}

// DownloadOriginal 下载原始文件，对象不存在时返回 ErrNotFound
func (m *MinIO) DownloadOriginal(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.originalBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.originalBucket, objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("对象 %s/%s: %w", m.originalBucket, objectKey, ErrNotFound)
		}
		return nil, fmt.Errorf("读取对象 %s/%s 失败: %w", m.originalBucket, objectKey, err)
	}
	return data, nil
}

// DeleteOriginal 删除原始文件，用于入队失败时回滚
func (m *MinIO) DeleteOriginal(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.originalBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s/%s 失败: %w", m.originalBucket, objectKey, err)
	}
	return nil
}
