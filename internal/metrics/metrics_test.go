package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ozhvac/airtouchd/internal/model"
)

func ptr(f float64) *float64 { return &f }

func TestObserveSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	snap := &model.Snapshot{
		Units: []model.Unit{
			{ID: 0, Name: "Living AC", Power: model.PowerOn, Temperature: ptr(24.5)},
		},
		Zones: []model.Zone{
			{ID: 0, Name: "Living Room", UnitID: 0, Contract: model.ContractThermostatic,
				Power: model.PowerOn, Temperature: ptr(23.0), TargetSetpoint: ptr(22.0)},
			{ID: 1, Name: "Study", UnitID: 0, Contract: model.ContractPercentage,
				Power: model.PowerOff, OpenPercent: 60},
		},
	}
	c.ObserveSnapshot(snap)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.available))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pollTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unitPower.WithLabelValues("0", "Living AC")))
	assert.Equal(t, 24.5, testutil.ToFloat64(c.unitTemp.WithLabelValues("0", "Living AC")))
	assert.Equal(t, 22.0, testutil.ToFloat64(c.zoneSet.WithLabelValues("0", "Living Room")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.zonePower.WithLabelValues("1", "Study")))
	assert.Equal(t, 60.0, testutil.ToFloat64(c.zoneAperture.WithLabelValues("1", "Study")))
}

func TestObservePollFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveSnapshot(&model.Snapshot{})
	c.ObservePollFailure()

	assert.Equal(t, 0.0, testutil.ToFloat64(c.available))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pollTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pollFails))
}

func TestObserveAdjustment(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveAdjustment(2, "Study", 23.5, 55)

	assert.Equal(t, 23.5, testutil.ToFloat64(c.controllerTarget.WithLabelValues("2", "Study")))
	assert.Equal(t, 55.0, testutil.ToFloat64(c.controllerAperture.WithLabelValues("2", "Study")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.adjustments))
}
