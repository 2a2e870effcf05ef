package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func TestMemorySlotRepository(t *testing.T) {
	repo := NewMemorySlotRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, "lms:courses")
	assert.True(t, appErrors.Is(err, appErrors.ErrSlotNotFound))

	payload := []byte(`[]`)
	require.NoError(t, repo.Set(ctx, "lms:courses", payload))
	payload[0] = 'x'

	got, err := repo.Get(ctx, "lms:courses")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got), "stored payload must not alias caller memory")

	boom := errors.New("disk full")
	repo.FailOn("lms:courses", boom)
	assert.ErrorIs(t, repo.Set(ctx, "lms:courses", []byte(`[1]`)), boom)
	_, err = repo.Get(ctx, "lms:courses")
	assert.ErrorIs(t, err, boom)

	repo.FailOn("lms:courses", nil)
	repo.Put("lms:courses", []byte(`{broken`))
	got, err = repo.Get(ctx, "lms:courses")
	require.NoError(t, err)
	assert.Equal(t, `{broken`, string(got))
}
