package delivery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/site-api/internal/channel"
	"github.com/meridianlabs/site-api/internal/config"
	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/repository"
	"github.com/meridianlabs/site-api/pkg/logger"
	"github.com/meridianlabs/site-api/pkg/metrics"
)

type fakeChannel struct {
	name      string
	available bool
	receipt   *channel.Receipt
	err       error

	mu    sync.Mutex
	calls int
}

func (c *fakeChannel) Name() string    { return c.name }
func (c *fakeChannel) Available() bool { return c.available }

func (c *fakeChannel) Deliver(ctx context.Context, s *model.Submission) (*channel.Receipt, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.receipt != nil {
		return c.receipt, nil
	}
	return &channel.Receipt{Channel: c.name}, nil
}

func (c *fakeChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type memoryRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.Submission

	createErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[uuid.UUID]*model.Submission)}
}

func (r *memoryRepo) Create(ctx context.Context, s *model.Submission) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.New()
	s.Status = model.StatusPending
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	clone := *s
	r.records[s.ID] = &clone
	return nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus, via, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	if rec.Status.IsTerminal() {
		return repository.ErrTerminalStatus
	}
	rec.Status = status
	rec.DeliveredVia = via
	rec.StatusNote = note
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	clone := *rec
	return &clone, nil
}

func (r *memoryRepo) List(ctx context.Context, filter *model.SubmissionFilter) ([]*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Submission
	for _, rec := range r.records {
		clone := *rec
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memoryRepo) MarkStalePending(ctx context.Context, cutoff time.Time, note string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.Status == model.StatusPending && rec.CreatedAt.Before(cutoff) {
			rec.Status = model.StatusFailed
			rec.StatusNote = note
			n++
		}
	}
	return n, nil
}

func newTestService(repo *memoryRepo, channels ...channel.Channel) Service {
	return NewService(
		repo,
		channels,
		config.DeliveryConfig{ChannelTimeout: time.Second},
		config.ContactConfig{DirectAddress: "hello@meridianlabs.io"},
		logger.NewLogger(nil),
		metrics.NewTestMetrics(),
	)
}

func newContactSubmission() *model.Submission {
	return model.NewSubmission(model.KindContactMessage, model.Fields{
		model.FieldFirstName: "Ada",
		model.FieldLastName:  "Lovelace",
		model.FieldEmail:     "ada@example.com",
		model.FieldMessage:   "Hello",
	})
}

func TestSubmit_FirstChannelWins(t *testing.T) {
	repo := newMemoryRepo()
	first := &fakeChannel{name: "smtp", available: true}
	second := &fakeChannel{name: "sendgrid", available: true}

	svc := newTestService(repo, first, second)
	outcome, err := svc.Submit(context.Background(), newContactSubmission())
	require.NoError(t, err)

	assert.True(t, outcome.Delivered())
	assert.Equal(t, "smtp", outcome.Channel)
	assert.Equal(t, 1, first.callCount())
	assert.Equal(t, 0, second.callCount(), "later channels must not be attempted after a success")

	rec, err := repo.Get(context.Background(), uuid.MustParse(outcome.SubmissionID))
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, rec.Status)
	assert.Equal(t, "smtp", rec.DeliveredVia)
}

func TestSubmit_SkipsUnavailableChannels(t *testing.T) {
	repo := newMemoryRepo()
	unavailable := &fakeChannel{name: "smtp", available: false}
	fallback := &fakeChannel{name: "sendgrid", available: true}

	svc := newTestService(repo, unavailable, fallback)
	outcome, err := svc.Submit(context.Background(), newContactSubmission())
	require.NoError(t, err)

	assert.True(t, outcome.Delivered())
	assert.Equal(t, "sendgrid", outcome.Channel)
	assert.Equal(t, 0, unavailable.callCount())
}

func TestSubmit_FallsThroughOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	broken := &fakeChannel{name: "smtp", available: true, err: fmt.Errorf("connection refused")}
	working := &fakeChannel{name: "form_relay", available: true}

	svc := newTestService(repo, broken, working)
	outcome, err := svc.Submit(context.Background(), newContactSubmission())
	require.NoError(t, err)

	assert.True(t, outcome.Delivered())
	assert.Equal(t, "form_relay", outcome.Channel)
	assert.Equal(t, 1, broken.callCount())
	assert.Equal(t, 1, working.callCount())
}

func TestSubmit_AllChannelsFail(t *testing.T) {
	repo := newMemoryRepo()
	a := &fakeChannel{name: "smtp", available: true, err: fmt.Errorf("timeout")}
	b := &fakeChannel{name: "sendgrid", available: true, err: fmt.Errorf("401")}

	svc := newTestService(repo, a, b)
	outcome, err := svc.Submit(context.Background(), newContactSubmission())
	require.NoError(t, err)

	assert.False(t, outcome.Delivered())
	assert.Equal(t, model.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Message, "hello@meridianlabs.io")

	rec, err := repo.Get(context.Background(), uuid.MustParse(outcome.SubmissionID))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Contains(t, rec.StatusNote, "timeout")
	assert.Contains(t, rec.StatusNote, "401")
}

func TestSubmit_ManualFallback(t *testing.T) {
	repo := newMemoryRepo()
	manual := &fakeChannel{
		name:      "mailto",
		available: true,
		receipt: &channel.Receipt{
			Channel:        "mailto",
			ManualRequired: true,
			ActionURL:      "mailto:hello@meridianlabs.io?subject=hi",
		},
	}

	svc := newTestService(repo, manual)
	outcome, err := svc.Submit(context.Background(), newContactSubmission())
	require.NoError(t, err)

	assert.False(t, outcome.Delivered(), "manual handoff is not a delivery")
	assert.Equal(t, model.StatusManualRequired, outcome.Status)
	assert.Equal(t, "mailto:hello@meridianlabs.io?subject=hi", outcome.ActionURL)

	rec, err := repo.Get(context.Background(), uuid.MustParse(outcome.SubmissionID))
	require.NoError(t, err)
	assert.Equal(t, model.StatusManualRequired, rec.Status)
	assert.Equal(t, "mailto", rec.DeliveredVia)
}

func TestSubmit_PersistenceFailureAbortsDelivery(t *testing.T) {
	repo := newMemoryRepo()
	repo.createErr = fmt.Errorf("connection reset")
	ch := &fakeChannel{name: "smtp", available: true}

	svc := newTestService(repo, ch)
	outcome, err := svc.Submit(context.Background(), newContactSubmission())

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, 0, ch.callCount(), "no delivery may be attempted for an unrecorded submission")
}

func TestSubmit_CancelledRequestStillSettles(t *testing.T) {
	repo := newMemoryRepo()
	ch := &fakeChannel{name: "smtp", available: true}
	svc := newTestService(repo, ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := svc.Submit(ctx, newContactSubmission())
	require.NoError(t, err)
	assert.True(t, outcome.Delivered())

	rec, err := repo.Get(context.Background(), uuid.MustParse(outcome.SubmissionID))
	require.NoError(t, err)
	assert.True(t, rec.Status.IsTerminal(), "record must not be left pending after client cancellation")
}

func TestSubmit_ConcurrentSubmissionsGetDistinctRecords(t *testing.T) {
	repo := newMemoryRepo()
	ch := &fakeChannel{name: "smtp", available: true}
	svc := newTestService(repo, ch)

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := svc.Submit(context.Background(), newContactSubmission())
			if assert.NoError(t, err) {
				ids <- outcome.SubmissionID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate submission id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, ch.callCount())
}

func TestSubmit_StatusWrittenOnlyOnce(t *testing.T) {
	repo := newMemoryRepo()
	sub := newContactSubmission()
	require.NoError(t, repo.Create(context.Background(), sub))

	require.NoError(t, repo.UpdateStatus(context.Background(), sub.ID, model.StatusDelivered, "smtp", ""))
	err := repo.UpdateStatus(context.Background(), sub.ID, model.StatusFailed, "", "late failure")
	assert.ErrorIs(t, err, repository.ErrTerminalStatus)

	rec, err := repo.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, rec.Status)
}
