package kafka

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
)

type captureWriter struct{ msgs []Message }

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestBrokers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"localhost:9092", []string{"localhost:9092"}},
		{"a:9092, b:9092,,", []string{"a:9092", "b:9092"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := Brokers(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Brokers(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	w := &captureWriter{}
	if err := WriteJSON(context.Background(), w, "req-1", map[string]int{"n": 1}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "req-1" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	var got map[string]int
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil || got["n"] != 1 {
		t.Errorf("unexpected payload %s (%v)", w.msgs[0].Value, err)
	}

	if err := WriteJSON(context.Background(), w, "k", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}
