package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/api/metrics"
)

type sent struct {
	to, subject, body string
}

type recordingSender struct {
	mu   sync.Mutex
	got  []sent
	fail map[string]bool
	wg   *sync.WaitGroup
	gate chan struct{}
	// observe runs at the start of every delivery.
	observe func()
}

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	defer s.wg.Done()
	if s.observe != nil {
		s.observe()
	}
	if s.gate != nil {
		<-s.gate
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fail[to] {
		return errors.New("smtp unavailable")
	}
	s.mu.Lock()
	s.got = append(s.got, sent{to, subject, body})
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) forRecipient(to string) []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sent
	for _, m := range s.got {
		if m.to == to {
			out = append(out, m)
		}
	}
	return out
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for deliveries")
	}
}

func TestMailDispatcher_DeliversInOrderPerRecipient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	sender := &recordingSender{wg: &wg}
	d := NewMailDispatcher(3, sender, zerolog.Nop())
	d.Start(ctx)

	recipients := []string{"a@example.com", "b@example.com", "c@example.com"}
	subjects := []string{"first", "second", "third", "fourth"}
	wg.Add(len(recipients) * len(subjects))
	for _, subject := range subjects {
		for _, to := range recipients {
			if err := d.Send(ctx, to, subject, "body"); err != nil {
				t.Fatalf("send: %v", err)
			}
		}
	}
	waitTimeout(t, &wg)

	for _, to := range recipients {
		got := sender.forRecipient(to)
		if len(got) != len(subjects) {
			t.Fatalf("%s: expected %d messages, got %d", to, len(subjects), len(got))
		}
		for i, m := range got {
			if m.subject != subjects[i] {
				t.Fatalf("%s: message %d out of order: %q", to, i, m.subject)
			}
		}
	}
}

func TestMailDispatcher_FailureDoesNotStopWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	sender := &recordingSender{wg: &wg, fail: map[string]bool{"bad@example.com": true}}
	d := NewMailDispatcher(1, sender, zerolog.Nop())
	d.Start(ctx)

	wg.Add(2)
	_ = d.Send(ctx, "bad@example.com", "verify", "body")
	_ = d.Send(ctx, "good@example.com", "verify", "body")
	waitTimeout(t, &wg)

	if len(sender.forRecipient("good@example.com")) != 1 {
		t.Fatalf("message after a failed delivery was not sent")
	}
}

func TestMailDispatcher_ShardIsStable(t *testing.T) {
	d := NewMailDispatcher(0, &recordingSender{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	if d.shardIndex("x@example.com") != d.shardIndex("x@example.com") {
		t.Fatalf("shard index must be deterministic")
	}
}

func queueDepth(t *testing.T, worker string) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.MailQueueDepth.WithLabelValues(worker).Write(&m); err != nil {
		t.Fatalf("read gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestMailDispatcher_DrainsQueueOnStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	gate := make(chan struct{})
	sender := &recordingSender{wg: &wg, gate: gate}
	d := NewMailDispatcher(1, sender, zerolog.Nop())
	d.Start(ctx)

	const n = 5
	wg.Add(n)
	for i := 0; i < n; i++ {
		if err := d.Send(ctx, "a@example.com", "verify", "body"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	cancel()
	<-d.done
	close(gate)

	waitCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if err := d.Wait(waitCtx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := len(sender.forRecipient("a@example.com")); got != n {
		t.Fatalf("expected %d queued messages delivered after stop, got %d", n, got)
	}
}

func TestMailDispatcher_QueueDepthNeverNegative(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewMailDispatcher(1, nil, zerolog.Nop())
	worker := "0"
	base := queueDepth(t, worker)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		lowest = base
	)
	d.sender = &recordingSender{wg: &wg, observe: func() {
		v := queueDepth(t, worker)
		mu.Lock()
		if v < lowest {
			lowest = v
		}
		mu.Unlock()
	}}
	d.Start(ctx)

	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		if err := d.Send(ctx, "a@example.com", "s", "b"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	waitTimeout(t, &wg)

	if lowest < base {
		t.Fatalf("queue depth dropped below its starting value: %v < %v", lowest, base)
	}
	if got := queueDepth(t, worker); got != base {
		t.Fatalf("queue depth must return to %v after delivery, got %v", base, got)
	}
}

func TestMailDispatcher_SendAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewMailDispatcher(1, &recordingSender{wg: &sync.WaitGroup{}}, zerolog.Nop())
	d.Start(ctx)
	cancel()
	<-d.done

	if err := d.Send(context.Background(), "a@example.com", "s", "b"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
