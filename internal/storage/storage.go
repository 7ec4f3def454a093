package storage

import (
	"go.uber.org/zap"

	"scenarioflow/internal/config"
	"scenarioflow/internal/port"
	"scenarioflow/internal/storage/noop"
	s3storage "scenarioflow/internal/storage/s3"
)

// New returns the archive backend selected by cfg: S3 when enabled, a
// discarding no-op store otherwise.
func New(cfg *config.ArchiveConfig, logger *zap.Logger) (port.ObjectStorage, error) {
	if !cfg.Enabled {
		return noop.NewNoopStorage(logger), nil
	}
	logger.Info("archiving rejected responses",
		zap.String("bucket", cfg.Bucket),
		zap.String("prefix", cfg.Prefix),
		zap.String("region", cfg.Region))
	return s3storage.NewS3Client(cfg)
}
