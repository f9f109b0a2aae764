package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"funpay-agent/internal/domain"
)

// scriptedSource отдаёт заготовленные пачки, затем останавливает цикл.
type scriptedSource struct {
	batches [][]domain.Event
	errs    []error
	cancel  context.CancelFunc
	calls   int
}

func (s *scriptedSource) Poll(context.Context) ([]domain.Event, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.errs) && s.errs[s.calls] != nil {
		return nil, s.errs[s.calls]
	}
	if s.calls < len(s.batches) {
		return s.batches[s.calls], nil
	}
	s.cancel()
	return nil, nil
}

// recordingDispatcher запоминает события в порядке доставки.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) snapshot() []domain.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Event(nil), d.events...)
}

func TestRunDeliversBatchesInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &scriptedSource{
		batches: [][]domain.Event{
			{domain.NewMessageEvent{NodeID: 1}, domain.NewMessageEvent{NodeID: 2}},
			{domain.OrderChangeEvent{Buyer: 1}},
		},
		cancel: cancel,
	}
	dispatcher := &recordingDispatcher{}
	svc := New(zerolog.Nop(), source, dispatcher, time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("цикл не остановился")
	}

	deadline := time.Now().Add(time.Second)
	for {
		events := dispatcher.snapshot()
		if len(events) == 3 {
			if events[0].(domain.NewMessageEvent).NodeID != 1 || events[1].(domain.NewMessageEvent).NodeID != 2 {
				t.Fatalf("порядок событий нарушен: %v", events)
			}
			if _, ok := events[2].(domain.OrderChangeEvent); !ok {
				t.Fatalf("ожидали OrderChangeEvent третьим: %v", events)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("ожидали 3 события, получили %d", len(events))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunSurvivesPollErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &scriptedSource{
		errs:    []error{errors.New("сеть недоступна")},
		batches: [][]domain.Event{nil, {domain.NewMessageEvent{NodeID: 9}}},
		cancel:  cancel,
	}
	dispatcher := &recordingDispatcher{}
	svc := New(zerolog.Nop(), source, dispatcher, time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("цикл не остановился")
	}

	deadline := time.Now().Add(time.Second)
	for {
		events := dispatcher.snapshot()
		if len(events) == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("после ошибки цикл должен продолжать работу")
		}
		time.Sleep(time.Millisecond)
	}
}
