// Package metrics exposes daemon state as Prometheus metrics alongside
// the health endpoints.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ozhvac/airtouchd/internal/model"
)

// Collector holds the gauges and counters derived from snapshots and
// controller activity.
type Collector struct {
	available prometheus.Gauge
	pollTotal prometheus.Counter
	pollFails prometheus.Counter

	unitPower    *prometheus.GaugeVec
	unitTemp     *prometheus.GaugeVec
	zonePower    *prometheus.GaugeVec
	zoneTemp     *prometheus.GaugeVec
	zoneSet      *prometheus.GaugeVec
	zoneAperture *prometheus.GaugeVec

	controllerTarget   *prometheus.GaugeVec
	controllerAperture *prometheus.GaugeVec
	adjustments        prometheus.Counter
}

// NewCollector creates and registers the collector on the registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	unitLabels := []string{"unit_id", "unit_name"}
	zoneLabels := []string{"zone_id", "zone_name"}

	c := &Collector{
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airtouchd_gateway_available",
			Help: "Whether the last gateway poll succeeded (1=yes, 0=no)",
		}),
		pollTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airtouchd_polls_total",
			Help: "Total gateway polls attempted",
		}),
		pollFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airtouchd_poll_failures_total",
			Help: "Gateway polls that failed",
		}),
		unitPower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airtouchd_unit_power_on",
			Help: "Unit power state (1=on, 0=off)",
		}, unitLabels),
		unitTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airtouchd_unit_temperature_celsius",
			Help: "Device-reported unit temperature",
		}, unitLabels),
		zonePower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airtouchd_zone_power_on",
			Help: "Zone power state (1=on, 0=off)",
		}, zoneLabels),
		zoneTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airtouchd_zone_temperature_celsius",
			Help: "Device-reported zone temperature (thermostatic zones)",
		}, zoneLabels),
		zoneSet: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airtouchd_zone_setpoint_celsius",
			Help: "Device-held zone setpoint (thermostatic zones)",
		}, zoneLabels),
		zoneAperture: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airtouchd_zone_open_percent",
			Help: "Damper aperture (percentage zones)",
		}, zoneLabels),
		controllerTarget: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airtouchd_controller_target_celsius",
			Help: "Operator target per controlled zone",
		}, zoneLabels),
		controllerAperture: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airtouchd_controller_aperture_percent",
			Help: "Last aperture issued by the zone controller",
		}, zoneLabels),
		adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airtouchd_controller_adjustments_total",
			Help: "Aperture commands issued by the zone controller",
		}),
	}

	reg.MustRegister(
		c.available, c.pollTotal, c.pollFails,
		c.unitPower, c.unitTemp,
		c.zonePower, c.zoneTemp, c.zoneSet, c.zoneAperture,
		c.controllerTarget, c.controllerAperture, c.adjustments,
	)
	return c
}

// ObserveSnapshot updates all per-entity gauges from a committed
// snapshot. Intended as a coordinator subscriber.
func (c *Collector) ObserveSnapshot(snap *model.Snapshot) {
	c.pollTotal.Inc()
	c.available.Set(1)

	for i := range snap.Units {
		u := &snap.Units[i]
		labels := prometheus.Labels{"unit_id": strconv.Itoa(u.ID), "unit_name": u.Name}
		c.unitPower.With(labels).Set(boolGauge(u.Power == model.PowerOn))
		if u.Temperature != nil {
			c.unitTemp.With(labels).Set(*u.Temperature)
		}
	}

	for i := range snap.Zones {
		z := &snap.Zones[i]
		labels := prometheus.Labels{"zone_id": strconv.Itoa(z.ID), "zone_name": z.Name}
		c.zonePower.With(labels).Set(boolGauge(z.Power == model.PowerOn))
		switch z.Contract {
		case model.ContractThermostatic:
			if z.Temperature != nil {
				c.zoneTemp.With(labels).Set(*z.Temperature)
			}
			if z.TargetSetpoint != nil {
				c.zoneSet.With(labels).Set(*z.TargetSetpoint)
			}
		case model.ContractPercentage:
			c.zoneAperture.With(labels).Set(float64(z.OpenPercent))
		}
	}
}

// ObservePollFailure records a failed poll.
func (c *Collector) ObservePollFailure() {
	c.pollTotal.Inc()
	c.pollFails.Inc()
	c.available.Set(0)
}

// ObserveAdjustment records an issued controller command.
func (c *Collector) ObserveAdjustment(zoneID int, zoneName string, target float64, aperture int) {
	labels := prometheus.Labels{"zone_id": strconv.Itoa(zoneID), "zone_name": zoneName}
	c.controllerTarget.With(labels).Set(target)
	c.controllerAperture.With(labels).Set(float64(aperture))
	c.adjustments.Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
