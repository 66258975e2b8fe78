package consumer

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"io"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	errs      []error
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return kafkago.Message{}, err
	}
	if len(f.queue) == 0 {
		return kafkago.Message{}, io.EOF
	}
	m := f.queue[0]
	f.queue = f.queue[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func msg(offset int64, value string) kafkago.Message {
	return kafkago.Message{Topic: "audio.raw", Offset: offset, Value: []byte(value)}
}

func TestSource_DecodesRecords(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("MOCK_AUDIO_BINARY_DATA"))
	r := &fakeReader{queue: []kafkago.Message{
		msg(0, `{"path":"/a.mp3","content":"`+audio+`","additional_field":"v"}`),
	}}
	s := NewSourceFromReader(r, []string{"audio.raw"}, "g", []string{"content"}, nil)

	rec, ok, err := s.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("Next = %v %v", ok, err)
	}
	if b, _ := rec.Get("content"); string(b.([]byte)) != "MOCK_AUDIO_BINARY_DATA" {
		t.Errorf("content = %v", b)
	}
	if got := rec.Keys(); len(got) != 3 || got[0] != "path" {
		t.Errorf("keys = %v", got)
	}

	_, ok, err = s.Next(context.Background())
	if ok || err != nil {
		t.Errorf("closed reader should end the stream, got %v %v", ok, err)
	}
}

func TestSource_AckCommitsInOrder(t *testing.T) {
	r := &fakeReader{queue: []kafkago.Message{
		msg(0, `{"path":"0"}`),
		msg(1, `not json`),
		msg(2, `{"path":"2"}`),
		msg(3, `[1,2]`),
	}}
	s := NewSourceFromReader(r, nil, "g", nil, nil)
	ctx := context.Background()

	if _, ok, _ := s.Next(ctx); !ok {
		t.Fatal("expected record 0")
	}
	if _, ok, _ := s.Next(ctx); !ok {
		t.Fatal("expected record 2")
	}
	if s.Pending() != 2 {
		t.Fatalf("pending = %d", s.Pending())
	}
	if _, ok, _ := s.Next(ctx); ok {
		t.Fatal("expected end of stream")
	}
	if len(r.committed) != 0 {
		t.Fatalf("nothing may be committed before acks, got %v", r.committed)
	}

	if err := s.Ack(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Ack(ctx); err != nil {
		t.Fatal(err)
	}
	want := []int64{0, 1, 2, 3}
	if len(r.committed) != len(want) {
		t.Fatalf("committed = %v, want %v", r.committed, want)
	}
	for i := range want {
		if r.committed[i] != want[i] {
			t.Fatalf("committed = %v, want %v", r.committed, want)
		}
	}
	if err := s.Ack(ctx); err == nil {
		t.Error("ack without pending message should fail")
	}
}

func TestSource_UndecodableWithNothingPendingIsCommitted(t *testing.T) {
	r := &fakeReader{queue: []kafkago.Message{msg(7, `{`), msg(8, `{"path":"x"}`)}}
	s := NewSourceFromReader(r, nil, "g", nil, nil)

	if _, ok, err := s.Next(context.Background()); !ok || err != nil {
		t.Fatalf("Next = %v %v", ok, err)
	}
	if len(r.committed) != 1 || r.committed[0] != 7 {
		t.Errorf("committed = %v", r.committed)
	}
}

func TestSource_BacksOffOnFetchErrors(t *testing.T) {
	r := &fakeReader{
		errs:  []error{stderrors.New("broker not available"), stderrors.New("broker not available")},
		queue: []kafkago.Message{msg(0, `{"path":"x"}`)},
	}
	s := NewSourceFromReader(r, nil, "g", nil, nil)
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if _, ok, err := s.Next(context.Background()); !ok || err != nil {
		t.Fatalf("Next = %v %v", ok, err)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("slept = %v", slept)
	}
	if s.failures != 0 {
		t.Errorf("failures should reset after a successful fetch, got %d", s.failures)
	}
}

func TestSource_CancelledContext(t *testing.T) {
	r := &fakeReader{errs: []error{context.Canceled}}
	s := NewSourceFromReader(r, nil, "g", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok, err := s.Next(ctx); ok || !stderrors.Is(err, context.Canceled) {
		t.Errorf("Next = %v %v", ok, err)
	}
	if err := s.Close(); err != nil || !r.closed {
		t.Error("Close should close the reader")
	}
}
