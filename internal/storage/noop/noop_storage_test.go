package noop_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scenarioflow/internal/port"
	"scenarioflow/internal/storage/noop"
)

func TestNoopStorage_UploadDiscards(t *testing.T) {
	store := noop.NewNoopStorage(zap.NewNop())

	out, err := store.Upload(context.Background(), port.UploadInput{
		Bucket: "rejects",
		Key:    "rejected/2026-10-17/abc.json",
		Body:   strings.NewReader(`{"a":1}`),
	})

	require.NoError(t, err)
	assert.Equal(t, "noop://rejects/rejected/2026-10-17/abc.json", out.Location)
}

func TestNoopStorage_DownloadFails(t *testing.T) {
	store := noop.NewNoopStorage(zap.NewNop())

	data, err := store.Download(context.Background(), "rejects", "missing.json")

	assert.Nil(t, data)
	assert.Error(t, err)
}
