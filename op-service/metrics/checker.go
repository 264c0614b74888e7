package metrics

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	gocl "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// MetricChecker gathers a registry once and looks up metrics in tests.
type MetricChecker struct {
	families []*gocl.MetricFamily
	t        require.TestingT
}

func NewMetricChecker(t require.TestingT, g prometheus.Gatherer) *MetricChecker {
	families, err := g.Gather()
	require.NoError(t, err, "must gather metrics")
	return &MetricChecker{families: families, t: t}
}

// Find returns the single metric of the named family carrying all the given labels.
// It fails the test if there is none, or more than one.
func (c *MetricChecker) Find(name string, labels map[string]string) *gocl.Metric {
	var fam *gocl.MetricFamily
	for _, f := range c.families {
		if f.GetName() == name {
			fam = f
			break
		}
	}
	require.NotNil(c.t, fam, "cannot find metric family %s", name)

	var found *gocl.Metric
	for _, m := range fam.Metric {
		if hasAllLabels(m, labels) {
			require.Nil(c.t, found, "more than one %s metric matches %v", name, labels)
			found = m
		}
	}
	require.NotNil(c.t, found, "cannot find %s metric with labels %v", name, labels)
	return found
}

// Has reports whether a family with the given name was gathered.
func (c *MetricChecker) Has(name string) bool {
	for _, f := range c.families {
		if f.GetName() == name {
			return true
		}
	}
	return false
}

// Dump returns the gathered metrics as indented json, for debugging.
func (c *MetricChecker) Dump() string {
	out, _ := json.MarshalIndent(c.families, "  ", "  ")
	return string(out)
}

func hasAllLabels(m *gocl.Metric, labels map[string]string) bool {
	for k, v := range labels {
		found := false
		for _, lab := range m.Label {
			if lab.GetName() == k && lab.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
