package kafka

import (
	"context"
	"strings"
	"testing"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/logger"
)

type closer struct{ closed int }

func (c *closer) Close() error {
	c.closed++
	return nil
}

func TestComponent_Lifecycle(t *testing.T) {
	c := NewComponent(Config{Enabled: true, Topics: []string{"audio.raw"}}, logger.NewNop())
	p := &closer{}
	c.SetProducer(p)
	c.SetConsuming(true)

	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy || h.Message != "kafka not started" {
		t.Errorf("health before start = %+v", h)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.closed != 1 {
		t.Errorf("producer closed %d times", p.closed)
	}

	d := c.Describe()
	for _, want := range []string{"brokers=localhost:9092", "group=audiotranscriber", "topics=audio.raw", "producer=yes"} {
		if !strings.Contains(d.Details, want) {
			t.Errorf("details %q missing %q", d.Details, want)
		}
	}
}
