package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/audiotranscriber/logger"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)

	cfg := Config{Enabled: true, Addr: mini.Addr()}
	cfg.ApplyDefaults()
	client, err := New(cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, mini
}

func TestTypedStore_RoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[Mark](client, "marks")
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if got, err := store.Load(ctx, "sha256:00"); err != nil || got != nil {
		t.Fatalf("Load missing = %+v, %v", got, err)
	}
	if err := store.Save(ctx, "sha256:00", &Mark{MarkedAt: at, Service: "a"}, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "sha256:00", &Mark{MarkedAt: at, Service: "b"}, 0); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, "sha256:00")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Service != "b" || !got.MarkedAt.Equal(at) {
		t.Fatalf("Load = %+v, want last write", got)
	}

	if err := store.Delete(ctx, "sha256:00"); err != nil {
		t.Fatal(err)
	}
	if ok, err := store.Exists(ctx, "sha256:00"); err != nil || ok {
		t.Fatalf("Exists after delete = %v, %v", ok, err)
	}
}

func TestTypedStore_Keys(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"audiotranscriber:dedupe", "audiotranscriber:dedupe:path:/a.wav"},
		{"", "path:/a.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			client, mini := newTestClient(t)
			store := NewTypedStore[Mark](client, tt.prefix)
			if err := store.Save(context.Background(), "path:/a.wav", &Mark{}, 0); err != nil {
				t.Fatal(err)
			}
			if !mini.Exists(tt.want) {
				t.Errorf("key %q not stored; have %v", tt.want, mini.Keys())
			}
		})
	}
}

func TestTypedStore_Expiry(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[Mark](client, "")
	ctx := context.Background()

	if err := store.Save(ctx, "k", &Mark{}, time.Minute); err != nil {
		t.Fatal(err)
	}
	mini.FastForward(30 * time.Second)
	if ok, _ := store.Exists(ctx, "k"); !ok {
		t.Fatal("expired early")
	}
	mini.FastForward(time.Minute)
	if got, err := store.Load(ctx, "k"); err != nil || got != nil {
		t.Fatalf("Load after expiry = %+v, %v", got, err)
	}
}

func TestClient_GetMissing(t *testing.T) {
	client, _ := newTestClient(t)
	if _, err := client.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}
