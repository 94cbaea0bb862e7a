package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	mrand "math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/shared/kafka"
	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) fulfillments(t *testing.T) []events.RandomnessFulfilled {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]events.RandomnessFulfilled, 0, len(w.msgs))
	for _, m := range w.msgs {
		var f events.RandomnessFulfilled
		if err := json.Unmarshal(m.Value, &f); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if string(m.Key) != f.RequestID {
			t.Errorf("expected key %s, got %s", f.RequestID, m.Key)
		}
		out = append(out, f)
	}
	return out
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func request(t *testing.T, id string, offset int64) kafka.Message {
	t.Helper()
	b, err := json.Marshal(events.RandomnessRequested{RequestID: id, NumWords: 1})
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Key: []byte(id), Value: b, Offset: offset}
}

func fixed(v int64) func() (*big.Int, error) {
	return func() (*big.Int, error) { return big.NewInt(v), nil }
}

func newSim(w *fakeWriter) *Simulator {
	return &Simulator{
		Log:     zap.NewNop(),
		Writer:  w,
		Metrics: NewMetrics(prometheus.NewRegistry()),
		Rand:    mrand.New(mrand.NewPCG(1, 2)),
		Value:   fixed(7),
	}
}

func TestRandomValueRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		v, err := RandomValue()
		if err != nil {
			t.Fatal(err)
		}
		if v.Sign() < 0 || v.Cmp(maxValue) >= 0 {
			t.Fatalf("value out of range: %s", v)
		}
	}
}

func TestHandle_FulfillsOnce(t *testing.T) {
	w := &fakeWriter{}
	s := newSim(w)

	s.Handle(context.Background(), request(t, "req-1", 0))
	s.Wait()

	got := w.fulfillments(t)
	if len(got) != 1 {
		t.Fatalf("expected 1 fulfillment, got %d", len(got))
	}
	if got[0].RequestID != "req-1" || got[0].RandomValue != "7" {
		t.Errorf("unexpected fulfillment %+v", got[0])
	}
	if n := testutil.ToFloat64(s.Metrics.Fulfillments); n != 1 {
		t.Errorf("expected fulfillments metric 1, got %v", n)
	}
}

func TestHandle_DropAndDuplicate(t *testing.T) {
	w := &fakeWriter{}
	s := newSim(w)
	s.DropRate = 1

	s.Handle(context.Background(), request(t, "req-1", 0))
	s.Wait()
	if len(w.fulfillments(t)) != 0 {
		t.Fatal("dropped request must never be answered")
	}
	if n := testutil.ToFloat64(s.Metrics.Dropped); n != 1 {
		t.Errorf("expected dropped metric 1, got %v", n)
	}

	s.DropRate, s.DuplicateRate = 0, 1
	s.Handle(context.Background(), request(t, "req-2", 1))
	s.Wait()

	got := w.fulfillments(t)
	if len(got) != 2 {
		t.Fatalf("expected 2 fulfillments, got %d", len(got))
	}
	if got[0].RandomValue != got[1].RandomValue {
		t.Errorf("duplicates must carry the same value: %s vs %s", got[0].RandomValue, got[1].RandomValue)
	}
	if n := testutil.ToFloat64(s.Metrics.Duplicated); n != 1 {
		t.Errorf("expected duplicated metric 1, got %v", n)
	}
}

func TestHandle_InvalidRequest(t *testing.T) {
	w := &fakeWriter{}
	s := newSim(w)

	s.Handle(context.Background(), kafka.Message{Value: []byte("{")})
	s.Handle(context.Background(), request(t, "", 1))
	s.Wait()

	if len(w.fulfillments(t)) != 0 {
		t.Error("invalid requests must not be answered")
	}
	if n := testutil.ToFloat64(s.Metrics.Errors.WithLabelValues("decode")); n != 2 {
		t.Errorf("expected 2 decode errors, got %v", n)
	}
}

func TestHandle_CancelledBeforeDelay(t *testing.T) {
	w := &fakeWriter{}
	s := newSim(w)
	s.MaxDelay = time.Hour
	s.Rand = mrand.New(mrand.NewPCG(3, 4))

	ctx, cancel := context.WithCancel(context.Background())
	s.Handle(ctx, request(t, "req-1", 0))
	cancel()
	s.Wait()

	if len(w.fulfillments(t)) != 0 {
		t.Error("expected no fulfillment after cancellation")
	}
}

func TestRun_CommitsAndDrains(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &fakeWriter{}
	r := &fakeReader{
		msgs:   []kafka.Message{request(t, "req-1", 5), request(t, "req-2", 6)},
		cancel: cancel,
	}
	s := newSim(w)
	s.Reader = r

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(r.committed) != 2 || r.committed[0] != 5 || r.committed[1] != 6 {
		t.Errorf("expected offsets 5 and 6 committed, got %v", r.committed)
	}
	if n := testutil.ToFloat64(s.Metrics.Requests); n != 2 {
		t.Errorf("expected 2 requests, got %v", n)
	}
}

func TestValidate(t *testing.T) {
	s := &Simulator{DropRate: 0.1, DuplicateRate: 0.2}
	if err := s.Validate(); err != nil {
		t.Errorf("expected valid rates, got %v", err)
	}
	s.DropRate = 1.5
	if err := s.Validate(); err == nil {
		t.Error("expected error for drop rate above 1")
	}
	s.DropRate, s.DuplicateRate = 0, -0.1
	if err := s.Validate(); err == nil {
		t.Error("expected error for negative duplicate rate")
	}
}
