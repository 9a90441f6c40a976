package metrics

import (
	"strings"
	"testing"
)

func TestCounter_IncAndRender(t *testing.T) {
	c := NewMetricsCollector()
	ctr := c.CounterNamed("test_counter_total", "A test counter")
	ctr.Inc()
	ctr.Add(2)

	if ctr.Value() != 3 {
		t.Fatalf("expected 3, got %d", ctr.Value())
	}

	out := c.Render()
	if !strings.Contains(out, "test_counter_total 3") {
		t.Fatalf("render missing counter line:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE test_counter_total counter") {
		t.Fatalf("render missing TYPE line:\n%s", out)
	}
}

func TestGauge_SetIncDec(t *testing.T) {
	c := NewMetricsCollector()
	g := c.GaugeNamed("test_gauge", "A test gauge")
	g.Set(5)
	g.Inc()
	g.Dec()
	g.Dec()

	if g.Value() != 4 {
		t.Fatalf("expected 4, got %d", g.Value())
	}
}

func TestNamed_SameInstance(t *testing.T) {
	c := NewMetricsCollector()
	a := c.CounterNamed("dup_total", "dup")
	b := c.CounterNamed("dup_total", "dup")
	a.Inc()
	if b.Value() != 1 {
		t.Fatal("expected the same counter instance for the same name")
	}
}
