package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCachedZeroTTLReturnsNext(t *testing.T) {
	next := NewMockEmbedder(gomock.NewController(t))
	assert.Same(t, next, Cached(next, 0))
}

func TestCachedEmbedsMissesOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockEmbedder(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		next.EXPECT().Embed(ctx, []string{"a", "b"}, gomock.Any()).
			Return([][]float64{{1}, {2}}, nil),
		next.EXPECT().Embed(ctx, []string{"c"}, gomock.Any()).
			Return([][]float64{{3}}, nil),
	)

	c := Cached(next, time.Minute)

	got, err := c.Embed(ctx, []string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, {2}}, got)

	got, err = c.Embed(ctx, []string{"b", "c", "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2}, {3}, {1}}, got)

	got, err = c.Embed(ctx, []string{"c"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3}}, got)
}

func TestCachedKeysByOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockEmbedder(ctrl)
	ctx := context.Background()

	next.EXPECT().Embed(ctx, []string{"q"}, Options{"model": "small"}).Return([][]float64{{1}}, nil)
	next.EXPECT().Embed(ctx, []string{"q"}, Options{"model": "large"}).Return([][]float64{{2}}, nil)

	c := Cached(next, time.Minute)
	for i := 0; i < 2; i++ {
		got, err := c.Embed(ctx, []string{"q"}, Options{"model": "small"})
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1}}, got)

		got, err = c.Embed(ctx, []string{"q"}, Options{"model": "large"})
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{2}}, got)
	}
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockEmbedder(ctrl)
	ctx := context.Background()
	boom := errors.New("unavailable")

	gomock.InOrder(
		next.EXPECT().Embed(ctx, []string{"q"}, gomock.Any()).Return(nil, boom),
		next.EXPECT().Embed(ctx, []string{"q"}, gomock.Any()).Return([][]float64{{1}}, nil),
	)

	c := Cached(next, time.Minute)
	_, err := c.Embed(ctx, []string{"q"}, nil)
	assert.ErrorIs(t, err, boom)

	got, err := c.Embed(ctx, []string{"q"}, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}}, got)
}

func TestCachedRejectsShortResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockEmbedder(ctrl)

	next.EXPECT().Embed(gomock.Any(), gomock.Any(), gomock.Any()).Return([][]float64{{1}}, nil)

	_, err := Cached(next, time.Minute).Embed(context.Background(), []string{"a", "b"}, nil)
	assert.ErrorContains(t, err, "expected 2 embeddings, got 1")
}

func TestCachedRejectsUnencodableOptions(t *testing.T) {
	next := NewMockEmbedder(gomock.NewController(t))

	_, err := Cached(next, time.Minute).Embed(context.Background(), []string{"a"}, Options{"fn": func() {}})
	assert.ErrorContains(t, err, "not cacheable")
}
