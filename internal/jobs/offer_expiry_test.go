package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"arc_community_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireDue(ctx context.Context) (int, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("run without timeout")
	}
	return 3, c.err
}

func TestOfferExpiryJob_EmptyScheduleDisablesJob(t *testing.T) {
	expirer := &countingExpirer{}
	job := NewOfferExpiryJob(expirer, zap.NewNop(), &config.Config{})
	require.NoError(t, job.SetupAndStart())
	assert.Empty(t, job.cronScheduler.Entries())
	job.Stop()
}

func TestOfferExpiryJob_InvalidSchedule(t *testing.T) {
	job := NewOfferExpiryJob(&countingExpirer{}, zap.NewNop(), &config.Config{OfferExpiryJobSchedule: "every now and then"})
	assert.Error(t, job.SetupAndStart())
}

func TestOfferExpiryJob_Runs(t *testing.T) {
	expirer := &countingExpirer{}
	job := NewOfferExpiryJob(expirer, zap.NewNop(), &config.Config{OfferExpiryJobSchedule: "@every 1s"})
	require.NoError(t, job.SetupAndStart())
	defer job.Stop()

	assert.Len(t, job.cronScheduler.Entries(), 1)
	assert.Eventually(t, func() bool { return expirer.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestOfferExpiryJob_RunJobLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	expirer := &countingExpirer{err: errors.New("db down")}
	job := NewOfferExpiryJob(expirer, zap.New(core), &config.Config{})

	job.runJob()
	require.Equal(t, 1, logs.FilterMessage("Offer expiry job run failed").Len())

	expirer.err = nil
	job.runJob()
	assert.Equal(t, 1, logs.FilterMessage("Offer expiry job run completed").Len())
}
