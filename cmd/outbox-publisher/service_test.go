package main

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	"github.com/brianmwirigi/sokofresh-backend/pkg/db/models"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox/registry"
)

type stubRepo struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (r *stubRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	events := r.pending
	r.pending = nil
	return events, nil
}

func (r *stubRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *stubRepo) MarkFailed(id uuid.UUID, err error) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *stubRepo) MarkTerminal(id uuid.UUID, err error, maxAttempts int) error {
	r.terminal = append(r.terminal, id)
	return nil
}

type stubRegistry struct {
	err error
}

func (s *stubRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         "test-topic",
		},
		Envelope: outbox.PayloadEnvelope{EventID: uuid.NewString()},
	}, nil
}

type stubResult struct {
	err error
}

func (r stubResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type stubPublisher struct {
	err      error
	messages []*gcppubsub.Message
}

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return stubResult{err: p.err}
}

func newTestService(t *testing.T, repo *stubRepo, reg registryResolver, pub *stubPublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-test"}),
		Repository: repo,
		Registry:   reg,
		PublisherFactory: func(topic string) publisher {
			return pub
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func pendingEvent() models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderConfirmed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"event_id":"x","data":{}}`),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	t.Parallel()

	event := pendingEvent()
	repo := &stubRepo{pending: []models.OutboxEvent{event}}
	pub := &stubPublisher{}
	svc := newTestService(t, repo, &stubRegistry{}, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("expected event marked published, got %v", repo.published)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.messages))
	}
	if got := pub.messages[0].Attributes["event_type"]; got != string(enums.EventOrderConfirmed) {
		t.Fatalf("unexpected event_type attribute %q", got)
	}
}

func TestProcessBatchMarksFailedOnPublishError(t *testing.T) {
	t.Parallel()

	event := pendingEvent()
	repo := &stubRepo{pending: []models.OutboxEvent{event}}
	pub := &stubPublisher{err: errors.New("broker unavailable")}
	svc := newTestService(t, repo, &stubRegistry{}, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.failed) != 1 || repo.failed[0] != event.ID {
		t.Fatalf("expected event marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 0 {
		t.Fatal("failed event must not be marked published")
	}
}

func TestProcessBatchRetiresUnresolvableEvents(t *testing.T) {
	t.Parallel()

	event := pendingEvent()
	repo := &stubRepo{pending: []models.OutboxEvent{event}}
	reg := &stubRegistry{err: registry.NewNonRetryableError(errors.New("unknown event type"))}
	svc := newTestService(t, repo, reg, &stubPublisher{})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected event marked terminal, got %v", repo.terminal)
	}
}

func TestProcessBatchRetiresNonRetryablePublishError(t *testing.T) {
	t.Parallel()

	event := pendingEvent()
	repo := &stubRepo{pending: []models.OutboxEvent{event}}
	pub := &stubPublisher{err: registry.NewNonRetryableError(errors.New("topic deleted"))}
	svc := newTestService(t, repo, &stubRegistry{}, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected event marked terminal, got %v", repo.terminal)
	}
	if len(repo.failed) != 0 {
		t.Fatal("non-retryable error must not enter the retry path")
	}
}

func TestProcessBatchIdleWhenEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubRepo{}, &stubRegistry{}, &stubPublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed {
		t.Fatal("expected idle batch")
	}
}
