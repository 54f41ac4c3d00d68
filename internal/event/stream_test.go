package event

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/lumipallolabs/shr/internal/paths"
)

func TestStreamOrderAndClose(t *testing.T) {
	s := NewStream()
	for i := 1; i <= 3; i++ {
		if !s.Send(FileDone(paths.ID(i), paths.None, uint64(i))) {
			t.Fatalf("send %d failed", i)
		}
	}
	s.CloseSend()

	if s.Send(FileDone(9, paths.None, 9)) {
		t.Error("expected send after CloseSend to fail")
	}

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		ev, ok := s.Recv(ctx)
		if !ok {
			t.Fatalf("expected event %d", i)
		}
		if ev.Path != paths.ID(i) {
			t.Errorf("expected path %d, got %d", i, ev.Path)
		}
	}
	if _, ok := s.Recv(ctx); ok {
		t.Error("expected end of stream")
	}
}

func TestStreamManyProducers(t *testing.T) {
	s := NewStream()
	const producers = 8
	const perProducer = 2000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				s.Send(Entered(1, paths.None))
			}
		}()
	}
	go func() {
		wg.Wait()
		s.CloseSend()
	}()

	count := 0
	for {
		_, ok := s.Recv(context.Background())
		if !ok {
			break
		}
		count++
	}
	if count != producers*perProducer {
		t.Errorf("expected %d events, got %d", producers*perProducer, count)
	}
}

func TestStreamDropDiscardsSends(t *testing.T) {
	s := NewStream()
	s.Send(Entered(1, paths.None))
	s.Drop()

	if s.Send(Entered(2, 1)) {
		t.Error("expected send after Drop to report failure")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty queue after Drop, got %d", s.Len())
	}
}

func TestStreamRecvContextCancel(t *testing.T) {
	s := NewStream()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := s.Recv(ctx); ok {
		t.Error("expected Recv to give up when context expires")
	}
}

func TestStreamRecvBatch(t *testing.T) {
	s := NewStream()
	for i := 1; i <= 10; i++ {
		s.Send(Entered(paths.ID(i), paths.None))
	}
	s.CloseSend()

	batch, ok := s.RecvBatch(context.Background(), nil, 4)
	if !ok || len(batch) != 4 {
		t.Fatalf("expected batch of 4, got %d (ok=%v)", len(batch), ok)
	}
	if batch[0].Path != 1 || batch[3].Path != 4 {
		t.Errorf("unexpected batch order: %+v", batch)
	}
}

type mapResolver map[paths.ID]string

func (m mapResolver) Resolve(id paths.ID) (string, bool) {
	p, ok := m[id]
	return p, ok
}

func TestRecordJSON(t *testing.T) {
	r := mapResolver{1: "/root", 2: "/root/a"}

	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"dir root", Entered(1, paths.None), `{"type":"dir","path":"/root","parent":null}`},
		{"file", FileDone(2, 1, 10), `{"type":"fileFinish","path":"/root/a","parent":"/root","size":10}`},
		{"dir done", DirDone(1, 35, 3), `{"type":"dirFinish","path":"/root","size":35,"numFiles":3}`},
		{"unknown path", FileDone(7, 1, 1), `{"type":"fileFinish","path":null,"parent":"/root","size":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(Resolve(tt.ev, r))
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if DirEntered.String() != "dir" || FileCompleted.String() != "fileFinish" || DirCompleted.String() != "dirFinish" {
		t.Error("unexpected wire tags")
	}
}
