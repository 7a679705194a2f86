package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedash/internal/amqp"
	"tradedash/internal/services"
)

type fakeReloader struct {
	id    string
	calls atomic.Int32
	err   error
}

func (f *fakeReloader) Reload(context.Context) (services.Stats, error) {
	f.calls.Add(1)
	if f.err != nil {
		return services.Stats{}, f.err
	}
	return services.Stats{Loaded: true, Rows: 11}, nil
}

func (f *fakeReloader) InstanceID() string {
	if f.id == "" {
		return "server-1"
	}
	return f.id
}

// fakeConsumer replays msgs to the handler then waits for cancellation.
type fakeConsumer struct {
	msgs    []*amqp.DatasetReloadedMessage
	handled chan error
	err     error
}

func (c *fakeConsumer) ConsumeDatasetReloaded(ctx context.Context, handler func(context.Context, *amqp.DatasetReloadedMessage) error) error {
	if c.err != nil {
		return c.err
	}
	for _, m := range c.msgs {
		c.handled <- handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHandleReloadMessage(t *testing.T) {
	r := &fakeReloader{}
	w := NewReloadWorker(r, nil, 0)

	err := w.HandleReloadMessage(context.Background(), &amqp.DatasetReloadedMessage{Origin: "server-1"})
	require.NoError(t, err)
	assert.Zero(t, r.calls.Load(), "own notifications are skipped")

	err = w.HandleReloadMessage(context.Background(), &amqp.DatasetReloadedMessage{Origin: "importer"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.calls.Load())

	r.err = errors.New("source unavailable")
	err = w.HandleReloadMessage(context.Background(), &amqp.DatasetReloadedMessage{Origin: "importer"})
	assert.EqualError(t, err, "source unavailable")
}

func TestRun_ConsumesNotifications(t *testing.T) {
	r := &fakeReloader{}
	c := &fakeConsumer{
		msgs: []*amqp.DatasetReloadedMessage{
			{Origin: "importer", Rows: 11},
			{Origin: "server-1"},
		},
		handled: make(chan error, 2),
	}
	w := NewReloadWorker(r, c, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for range c.msgs {
		select {
		case err := <-c.handled:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for handler")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestRun_ConsumerFailure(t *testing.T) {
	c := &fakeConsumer{err: errors.New("access refused")}
	w := NewReloadWorker(&fakeReloader{}, c, 0)

	err := w.Run(context.Background())
	assert.EqualError(t, err, "access refused")
}

func TestRun_PeriodicReload(t *testing.T) {
	r := &fakeReloader{}
	w := NewReloadWorker(r, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRun_Disabled(t *testing.T) {
	w := NewReloadWorker(&fakeReloader{}, nil, 0)
	assert.False(t, w.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Run(ctx))
}

// fanoutExchange hands every published message to every subscriber, the way
// a direct exchange does when each instance binds its own queue.
type fanoutExchange struct {
	mu     sync.Mutex
	queues []chan *amqp.DatasetReloadedMessage
	ready  sync.WaitGroup
}

func (e *fanoutExchange) subscriber() *queueConsumer {
	e.ready.Add(1)
	return &queueConsumer{exchange: e}
}

func (e *fanoutExchange) publish(msg *amqp.DatasetReloadedMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, q := range e.queues {
		q <- msg
	}
}

type queueConsumer struct {
	exchange *fanoutExchange
}

func (c *queueConsumer) ConsumeDatasetReloaded(ctx context.Context, handler func(context.Context, *amqp.DatasetReloadedMessage) error) error {
	q := make(chan *amqp.DatasetReloadedMessage, 8)
	c.exchange.mu.Lock()
	c.exchange.queues = append(c.exchange.queues, q)
	c.exchange.mu.Unlock()
	c.exchange.ready.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-q:
			_ = handler(ctx, msg)
		}
	}
}

func TestRun_EveryInstanceReloadsOnForeignNotification(t *testing.T) {
	exchange := &fanoutExchange{}
	a := &fakeReloader{id: "server-a"}
	b := &fakeReloader{id: "server-b"}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, r := range []*fakeReloader{a, b} {
		w := NewReloadWorker(r, exchange.subscriber(), 0)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Run(ctx))
		}()
	}
	exchange.ready.Wait()

	exchange.publish(&amqp.DatasetReloadedMessage{Origin: "importer", Rows: 11})
	assert.Eventually(t, func() bool {
		return a.calls.Load() == 1 && b.calls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// server-a announces its own reload: only server-b follows.
	exchange.publish(&amqp.DatasetReloadedMessage{Origin: "server-a", Rows: 11})
	assert.Eventually(t, func() bool { return b.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), a.calls.Load())

	cancel()
	wg.Wait()
}
