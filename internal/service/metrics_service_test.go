package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordJobAttempt(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordJobAttempt(ReminderJobKind, nil)
	metrics.RecordJobAttempt(ReminderJobKind, errors.New("smtp down"))
	metrics.RecordJobAttempt("missing", errors.New("no handler"))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "background_job_attempts_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			var kind, result string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "kind":
					kind = l.GetValue()
				case "result":
					result = l.GetValue()
				}
			}
			counts[kind+"/"+result] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, counts[ReminderJobKind+"/ok"])
	assert.Equal(t, 1.0, counts[ReminderJobKind+"/failed"])
	assert.Equal(t, 1.0, counts["missing/failed"])
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *MetricsService
	assert.NotPanics(t, func() { metrics.RecordJobAttempt("x", nil) })
}
