package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.VotesCast.Inc()
	m.Eliminations.WithLabelValues("IMPOSTER").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{"imposter_votes_cast_total", "imposter_eliminations_total"} {
		if !found[name] {
			t.Fatalf("metric %s not gathered", name)
		}
	}
}

func TestNewWithoutRegistry(t *testing.T) {
	m := New(nil)
	m.SessionsCreated.Inc()
	m.ActiveTimers.Set(2)
}
