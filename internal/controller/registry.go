package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ozhvac/airtouchd/internal/coordinator"
	"github.com/ozhvac/airtouchd/internal/driver"
	"github.com/ozhvac/airtouchd/internal/model"
	"github.com/ozhvac/airtouchd/internal/sensor"
)

// ErrNoController is returned when a target is set for a zone that has
// no controller (not percentage-actuated, unbound, or torn down).
var ErrNoController = errors.New("zone has no controller")

// TargetStore persists operator targets across restarts. A nil store
// keeps targets in memory only.
type TargetStore interface {
	Target(zoneID int) (float64, bool, error)
	SetTarget(zoneID int, target float64) error
	DeleteTarget(zoneID int) error
}

// ZoneController is the controller state of one percentage zone bound to
// an external sensor.
type ZoneController struct {
	ZoneID    int
	Name      string
	SensorRef string

	mu           sync.Mutex
	target       float64
	lastAperture int
}

// Target returns the operator target.
func (z *ZoneController) Target() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.target
}

// LastAperture returns the last aperture this controller issued, or 0
// if it has not acted yet.
func (z *ZoneController) LastAperture() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.lastAperture
}

func (z *ZoneController) setTarget(t float64) {
	z.mu.Lock()
	z.target = t
	z.mu.Unlock()
}

func (z *ZoneController) setLastAperture(a int) {
	z.mu.Lock()
	z.lastAperture = a
	z.mu.Unlock()
}

// Registry holds one controller per bound percentage zone and drives
// them all on a fixed tick, independent of the coordinator's poll tick.
// Controllers are created when their zone first appears in a snapshot
// and destroyed when it disappears.
type Registry struct {
	drv      driver.Driver
	coord    *coordinator.Coordinator
	src      sensor.Source
	store    TargetStore
	bindings map[int]string // zone id -> sensor reference
	interval time.Duration

	mu    sync.RWMutex
	zones map[int]*ZoneController

	onAdjust func(zoneID, aperture int)
}

// NewRegistry creates an empty registry. bindings maps zone ids to
// sensor references; zones without a binding never get a controller.
func NewRegistry(
	drv driver.Driver,
	coord *coordinator.Coordinator,
	src sensor.Source,
	store TargetStore,
	bindings map[int]string,
	interval time.Duration,
) *Registry {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Registry{
		drv:      drv,
		coord:    coord,
		src:      src,
		store:    store,
		bindings: bindings,
		interval: interval,
		zones:    make(map[int]*ZoneController),
	}
}

// OnAdjust registers a callback invoked after every issued aperture
// command (used for metrics).
func (r *Registry) OnAdjust(fn func(zoneID, aperture int)) {
	r.onAdjust = fn
}

// Sync reconciles the controller set against a committed snapshot.
// Intended as a coordinator subscriber.
func (r *Registry) Sync(snap *model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]bool)
	for i := range snap.Zones {
		z := &snap.Zones[i]
		if z.Contract != model.ContractPercentage {
			continue
		}
		ref, bound := r.bindings[z.ID]
		if !bound {
			continue
		}
		seen[z.ID] = true
		if _, ok := r.zones[z.ID]; ok {
			continue
		}

		zc := &ZoneController{
			ZoneID:    z.ID,
			Name:      z.Name,
			SensorRef: ref,
			target:    DefaultTarget,
		}
		if r.store != nil {
			if t, ok, err := r.store.Target(z.ID); err != nil {
				log.Warn().Err(err).Int("zone", z.ID).Msg("Failed to load stored target, using default")
			} else if ok {
				zc.target = t
			}
		}
		r.zones[z.ID] = zc
		log.Info().
			Int("zone", z.ID).
			Str("name", z.Name).
			Str("sensor", ref).
			Float64("target", zc.target).
			Msg("Zone controller created")
	}

	for id := range r.zones {
		if !seen[id] {
			delete(r.zones, id)
			log.Info().Int("zone", id).Msg("Zone controller removed")
		}
	}
}

// Get returns the controller for a zone, if one exists.
func (r *Registry) Get(zoneID int) (*ZoneController, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	zc, ok := r.zones[zoneID]
	return zc, ok
}

// SetTarget updates the operator target for a zone and persists it.
func (r *Registry) SetTarget(zoneID int, target float64) error {
	zc, ok := r.Get(zoneID)
	if !ok {
		return ErrNoController
	}
	zc.setTarget(target)
	if r.store != nil {
		if err := r.store.SetTarget(zoneID, target); err != nil {
			log.Warn().Err(err).Int("zone", zoneID).Msg("Failed to persist target")
		}
	}
	log.Info().Int("zone", zoneID).Float64("target", target).Msg("Zone target updated")
	return nil
}

// Run drives the adjustment tick until the context is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	log.Info().Dur("interval", r.interval).Msg("Zone controller tick started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Zone controller tick stopping")
			return nil
		case <-ticker.C:
			r.AdjustAll(ctx)
		}
	}
}

// AdjustAll runs one adjustment pass over every controller. A failing
// zone is logged and does not stop the others.
func (r *Registry) AdjustAll(ctx context.Context) {
	r.mu.RLock()
	controllers := make([]*ZoneController, 0, len(r.zones))
	for _, zc := range r.zones {
		controllers = append(controllers, zc)
	}
	r.mu.RUnlock()

	for _, zc := range controllers {
		if ctx.Err() != nil {
			return
		}
		if err := r.adjust(ctx, zc); err != nil {
			log.Error().Err(err).Int("zone", zc.ZoneID).Msg("Zone adjustment failed")
		}
	}
}

// adjust evaluates one zone. Preconditions are checked in order and any
// failure means no driver call this tick.
func (r *Registry) adjust(ctx context.Context, zc *ZoneController) error {
	snap := r.coord.Latest()
	if snap == nil {
		return nil
	}

	zone, ok := snap.Zone(zc.ZoneID)
	if !ok {
		log.Debug().Int("zone", zc.ZoneID).Msg("Zone missing from snapshot, skipping adjustment")
		return nil
	}
	if zone.Power != model.PowerOn {
		log.Debug().Int("zone", zc.ZoneID).Msg("Zone is off, skipping adjustment")
		return nil
	}

	owner, ok := snap.OwnerOf(zone)
	if !ok {
		log.Debug().Int("zone", zc.ZoneID).Int("unit", zone.UnitID).Msg("Owning unit missing, skipping adjustment")
		return nil
	}
	if owner.Power != model.PowerOn {
		log.Debug().Int("zone", zc.ZoneID).Int("unit", owner.ID).Msg("Owning unit is off, skipping adjustment")
		return nil
	}

	reading, ok := r.src.Read(zc.SensorRef)
	if !ok {
		log.Debug().Int("zone", zc.ZoneID).Str("sensor", zc.SensorRef).Msg("Sensor unavailable, skipping adjustment")
		return nil
	}

	target := zc.Target()
	raw, act := DesiredAperture(reading, target, owner.Mode)
	if !act {
		// Fan-only or unmapped unit mode: defer to whatever the device
		// or the operator set manually.
		log.Debug().
			Int("zone", zc.ZoneID).
			Str("unit_mode", string(owner.Mode)).
			Msg("Unit mode outside control families, leaving aperture unchanged")
		return nil
	}

	aperture := RoundStep(raw)
	log.Debug().
		Int("zone", zc.ZoneID).
		Float64("reading", reading).
		Float64("target", target).
		Str("unit_mode", string(owner.Mode)).
		Int("aperture", aperture).
		Msg("Issuing aperture command")

	if _, err := r.drv.SetZoneAperture(ctx, zc.ZoneID, aperture); err != nil {
		return err
	}
	zc.setLastAperture(aperture)
	if r.onAdjust != nil {
		r.onAdjust(zc.ZoneID, aperture)
	}
	return nil
}
