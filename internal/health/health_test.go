package health

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRunAll_CollectsResults(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("language", func(ctx context.Context) Status { return StatusOK })
	c.Register("cache", func(ctx context.Context) Status { return StatusDegraded })

	results := c.RunAll(context.Background())
	assert.Equal(t, StatusOK, results["language"])
	assert.Equal(t, StatusDegraded, results["cache"])
}

func TestIsReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, c.IsReady(context.Background()), "no checks means ready")

	c.Register("language", func(ctx context.Context) Status { return StatusOK })
	assert.True(t, c.IsReady(context.Background()))

	c.Register("qna", func(ctx context.Context) Status { return StatusDown })
	assert.False(t, c.IsReady(context.Background()))
}

func TestIsReady_DegradedStillReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("language", func(ctx context.Context) Status { return StatusDegraded })
	assert.True(t, c.IsReady(context.Background()))
}
