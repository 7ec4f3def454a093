package noop

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"scenarioflow/internal/port"
)

type noopStorage struct {
	logger *zap.Logger
}

// NewNoopStorage creates an ObjectStorage that discards uploads and logs the
// key it would have written. Used when the archive is disabled.
func NewNoopStorage(logger *zap.Logger) port.ObjectStorage {
	return &noopStorage{logger: logger.Named("archive.noop")}
}

func (s *noopStorage) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	n, _ := io.Copy(io.Discard, input.Body)
	s.logger.Debug("archive disabled, dropping object",
		zap.String("bucket", input.Bucket),
		zap.String("key", input.Key),
		zap.Int64("bytes", n))
	return &port.UploadOutput{Location: fmt.Sprintf("noop://%s/%s", input.Bucket, input.Key)}, nil
}

func (s *noopStorage) Download(_ context.Context, bucket, key string) ([]byte, error) {
	return nil, fmt.Errorf("archive disabled: cannot download %s/%s", bucket, key)
}
