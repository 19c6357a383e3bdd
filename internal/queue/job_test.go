package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSynthesisJob(t *testing.T) {
	job := NewSynthesisJob("req-1", noop)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "req-1", job.Scope)
	assert.False(t, job.CreatedAt.IsZero())
	assert.True(t, job.StartedAt.IsZero())
	assert.Zero(t, job.Waited())
}

func TestNewSynthesisJob_UniqueIDs(t *testing.T) {
	a := NewSynthesisJob("req", noop)
	b := NewSynthesisJob("req", noop)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSynthesisJob_Waited(t *testing.T) {
	job := NewSynthesisJob("req", func(context.Context) error { return nil })
	job.StartedAt = job.CreatedAt.Add(250 * time.Millisecond)

	assert.Equal(t, 250*time.Millisecond, job.Waited())
}
