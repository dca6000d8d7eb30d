package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linelogic/internal/recommend"
	"github.com/yourusername/linelogic/internal/settlement"
)

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) RecommendDate(ctx context.Context, date time.Time) (*recommend.Report, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recommend.Report), args.Error(1)
}

type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) SettleDate(ctx context.Context, date time.Time) (*settlement.Summary, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Summary), args.Error(1)
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := NewScheduler(loc, time.Minute, logger)
	// 02:30 UTC is still the previous evening in New York.
	s.now = func() time.Time { return time.Date(2024, 3, 5, 2, 30, 0, 0, time.UTC) }
	return s
}

func TestRecommendJobUsesLocalDay(t *testing.T) {
	s := newTestScheduler(t)
	rec := new(MockRecommender)
	want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	rec.On("RecommendDate", mock.Anything, want).Return(&recommend.Report{TotalStaked: decimal.Zero}, nil)

	id, err := s.ScheduleRecommend("0 10 * * *", rec)
	require.NoError(t, err)
	require.NoError(t, s.RunNow(id))

	rec.AssertExpectations(t)
}

func TestSettleJobUsesPreviousDay(t *testing.T) {
	s := newTestScheduler(t)
	st := new(MockSettler)
	want := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	st.On("SettleDate", mock.Anything, want).Return(&settlement.Summary{ProfitLoss: decimal.Zero}, nil)

	id, err := s.ScheduleSettle("0 6 * * *", st)
	require.NoError(t, err)
	require.NoError(t, s.RunNow(id))

	st.AssertExpectations(t)
}

func TestJobErrorIsReturned(t *testing.T) {
	s := newTestScheduler(t)
	boom := errors.New("provider down")
	err := s.run("failing", 0, func(ctx context.Context, day time.Time) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSchedulerLifecycle(t *testing.T) {
	s := newTestScheduler(t)

	assert.Error(t, s.Start(), "no jobs scheduled")

	_, err := s.Schedule("bad", "not a cron line", 0, func(context.Context, time.Time) error { return nil })
	assert.Error(t, err)

	_, err = s.Schedule("noop", "@every 1h", 0, func(context.Context, time.Time) error { return nil })
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 1)
	assert.True(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.False(t, s.GetNextRun().IsZero())

	_, err = s.Schedule("late", "@every 1h", 0, func(context.Context, time.Time) error { return nil })
	assert.Error(t, err)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop())

	assert.Error(t, s.RunNow(999))
}
