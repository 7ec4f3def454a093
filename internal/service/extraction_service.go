package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scenarioflow/internal/config"
	"scenarioflow/internal/domain"
	"scenarioflow/internal/port"
)

// ExtractInput is the DTO for extracting a payload from a supplied raw response.
type ExtractInput struct {
	Response  interface{}
	RequestID string
}

// GenerateInput is the DTO for a prompt-then-extract request.
type GenerateInput struct {
	Prompt    string
	System    string
	MaxTokens int
	RequestID string
}

// ReplayInput identifies an archived rejected response to run through the extractor again.
type ReplayInput struct {
	Key       string
	RequestID string
}

// ExtractionService defines the extraction contract.
type ExtractionService interface {
	Extract(ctx context.Context, input *ExtractInput) (*domain.ExtractionResult, error)
	Generate(ctx context.Context, input *GenerateInput) (*domain.ExtractionResult, error)
	Replay(ctx context.Context, input *ReplayInput) (*domain.ExtractionResult, error)
	ProviderConfigured() bool
}

type extractionService struct {
	extractor  port.ResponseExtractor
	client     port.CompletionClient
	storage    port.ObjectStorage
	archiveCfg *config.ArchiveConfig
	logger     *zap.Logger
}

// NewExtractionService creates a new ExtractionService implementation.
// client may be nil when no provider is configured; storage may be nil when
// rejected responses should not be archived.
func NewExtractionService(
	extractor port.ResponseExtractor,
	client port.CompletionClient,
	storage port.ObjectStorage,
	archiveCfg *config.ArchiveConfig,
	logger *zap.Logger,
) ExtractionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if archiveCfg == nil {
		archiveCfg = &config.ArchiveConfig{}
	}
	return &extractionService{
		extractor:  extractor,
		client:     client,
		storage:    storage,
		archiveCfg: archiveCfg,
		logger:     logger.Named("service.extraction"),
	}
}

func (s *extractionService) ProviderConfigured() bool {
	return s.client != nil
}

func (s *extractionService) Extract(ctx context.Context, input *ExtractInput) (*domain.ExtractionResult, error) {
	return s.extract(ctx, input.Response, input.RequestID, "", "", true)
}

func (s *extractionService) Generate(ctx context.Context, input *GenerateInput) (*domain.ExtractionResult, error) {
	if s.client == nil {
		return nil, domain.ErrProviderNotConfigured
	}
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}

	out, err := s.client.Complete(ctx, port.CompletionInput{
		Prompt:    input.Prompt,
		System:    input.System,
		MaxTokens: input.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("completion failed",
			zap.String("request_id", input.RequestID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderFailed, err)
	}

	s.logger.Info("completion received",
		zap.String("request_id", input.RequestID),
		zap.String("provider", out.Provider),
		zap.String("model", out.Model))

	return s.extract(ctx, out.Raw, input.RequestID, out.Provider, out.Model, true)
}

func (s *extractionService) Replay(ctx context.Context, input *ReplayInput) (*domain.ExtractionResult, error) {
	if s.storage == nil || !s.archiveCfg.Enabled {
		return nil, domain.ErrArchiveDisabled
	}

	data, err := s.storage.Download(ctx, s.archiveCfg.Bucket, input.Key)
	if err != nil {
		return nil, fmt.Errorf("downloading archived response: %w", err)
	}

	var rec domain.RejectedResponse
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding archived response %s: %w", input.Key, err)
	}

	s.logger.Info("replaying archived response",
		zap.String("key", input.Key),
		zap.String("original_request_id", rec.RequestID),
		zap.String("original_reason", rec.Reason))

	// A replayed reject is already in the archive.
	return s.extract(ctx, rec.Raw, input.RequestID, rec.Provider, rec.Model, false)
}

func (s *extractionService) extract(
	ctx context.Context,
	raw interface{},
	requestID, provider, model string,
	archive bool,
) (*domain.ExtractionResult, error) {
	ext, err := s.extractor.Extract(raw)
	if err != nil {
		if archive && isRejection(err) {
			s.archiveRejected(ctx, raw, err, requestID, provider, model)
		}
		return nil, err
	}

	return &domain.ExtractionResult{
		RequestID:   requestID,
		Payload:     ext.Payload,
		Shape:       ext.Shape,
		Scenarios:   ext.Scenarios,
		Citations:   ext.Citations,
		Provider:    provider,
		Model:       model,
		ExtractedAt: time.Now().UTC(),
	}, nil
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrMissingMarkers) ||
		errors.Is(err, domain.ErrMalformedJSON) ||
		errors.Is(err, domain.ErrSchemaViolation)
}

// archiveRejected stores the raw response for later diagnosis. Failures are
// logged only; the caller still gets the extraction error.
func (s *extractionService) archiveRejected(
	ctx context.Context,
	raw interface{},
	cause error,
	requestID, provider, model string,
) {
	if s.storage == nil || !s.archiveCfg.Enabled {
		return
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	rec := domain.RejectedResponse{
		ID:         id,
		RequestID:  requestID,
		Reason:     cause.Error(),
		Raw:        raw,
		Provider:   provider,
		Model:      model,
		RejectedAt: now,
	}

	body, err := json.Marshal(rec)
	if err != nil {
		// Raw came from somewhere json cannot represent; keep its printed form.
		rec.Raw = fmt.Sprintf("%v", raw)
		if body, err = json.Marshal(rec); err != nil {
			s.logger.Error("encoding rejected response", zap.Error(err))
			return
		}
	}

	key := ArchiveKey(s.archiveCfg.Prefix, now, id)
	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.archiveCfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
	})
	if err != nil {
		s.logger.Error("archiving rejected response",
			zap.String("request_id", requestID),
			zap.String("key", key),
			zap.Error(err))
		return
	}

	s.logger.Info("archived rejected response",
		zap.String("request_id", requestID),
		zap.String("location", out.Location))
}

// ArchiveKey builds the object key for an archived rejected response.
func ArchiveKey(prefix string, at time.Time, id string) string {
	prefix = strings.Trim(prefix, "/")
	day := at.UTC().Format("2006-01-02")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.json", day, id)
	}
	return fmt.Sprintf("%s/%s/%s.json", prefix, day, id)
}
