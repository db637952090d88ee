// Package bridge is the host-platform surface of the daemon: it mirrors
// every committed snapshot's entity views onto MQTT and feeds command
// messages into the dispatcher.
package bridge

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ozhvac/airtouchd/internal/config"
	"github.com/ozhvac/airtouchd/internal/controller"
	"github.com/ozhvac/airtouchd/internal/coordinator"
	"github.com/ozhvac/airtouchd/internal/dispatch"
	"github.com/ozhvac/airtouchd/internal/model"
	"github.com/ozhvac/airtouchd/internal/sensor"
	"github.com/ozhvac/airtouchd/internal/view"
)

// Broker is the piece of the MQTT client the bridge needs.
type Broker interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, cb func(topic string, payload []byte)) error
}

// command is the payload accepted on */set topics. Absent fields are
// ignored, so one message can carry several changes.
type command struct {
	Mode     *string  `json:"mode,omitempty"`
	Power    *bool    `json:"power,omitempty"`
	FanSpeed *string  `json:"fan_speed,omitempty"`
	Setpoint *float64 `json:"setpoint,omitempty"`
	Target   *float64 `json:"target,omitempty"`
	Percent  *int     `json:"percent,omitempty"`
}

// Bridge publishes entity views and consumes commands.
type Bridge struct {
	broker   Broker
	coord    *coordinator.Coordinator
	disp     *dispatch.Dispatcher
	reg      *controller.Registry
	src      sensor.Source
	prefix   string
	setup    string
	bindings map[int]string

	cmdTimeout time.Duration
}

// New creates a bridge. setup selects the percentage-zone projection
// (actuator or manual climate) and bindings supplies the sensor
// references for manual climate views.
func New(
	b Broker,
	coord *coordinator.Coordinator,
	disp *dispatch.Dispatcher,
	reg *controller.Registry,
	src sensor.Source,
	prefix, setup string,
	bindings map[int]string,
) *Bridge {
	return &Bridge{
		broker:     b,
		coord:      coord,
		disp:       disp,
		reg:        reg,
		src:        src,
		prefix:     prefix,
		setup:      setup,
		bindings:   bindings,
		cmdTimeout: 30 * time.Second,
	}
}

// Start subscribes to command topics and begins mirroring snapshots.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.broker.Subscribe(b.prefix+"/unit/+/set", func(topic string, payload []byte) {
		b.handleUnitCommand(ctx, topic, payload)
	}); err != nil {
		return err
	}
	if err := b.broker.Subscribe(b.prefix+"/zone/+/set", func(topic string, payload []byte) {
		b.handleZoneCommand(ctx, topic, payload)
	}); err != nil {
		return err
	}

	b.coord.Subscribe(b.PublishSnapshot)
	log.Info().Str("prefix", b.prefix).Msg("MQTT bridge started")
	return nil
}

// PublishSnapshot mirrors one snapshot's entity views as retained state
// topics. Intended as a coordinator subscriber.
func (b *Bridge) PublishSnapshot(snap *model.Snapshot) {
	for i := range snap.Units {
		u := &snap.Units[i]
		uv, err := view.ForUnit(snap, u.ID)
		if err != nil {
			continue
		}
		b.publish("unit", u.ID, uv)
	}

	for i := range snap.Zones {
		z := &snap.Zones[i]
		switch z.Contract {
		case model.ContractThermostatic:
			zv, err := view.ForThermoZone(snap, z.ID)
			if err != nil {
				continue
			}
			b.publish("zone", z.ID, zv)
		case model.ContractPercentage:
			b.publishPercentZone(snap, z)
		}
	}
}

func (b *Bridge) publishPercentZone(snap *model.Snapshot, z *model.Zone) {
	if b.setup == config.SetupClimate {
		if zc, ok := b.reg.Get(z.ID); ok {
			var reading *float64
			if v, ok := b.src.Read(zc.SensorRef); ok {
				reading = &v
			}
			mv, err := view.ForManualZone(snap, z.ID, reading, zc.Target())
			if err == nil {
				b.publish("zone", z.ID, mv)
				return
			}
		}
	}
	av, err := view.ForActuator(snap, z.ID)
	if err != nil {
		return
	}
	b.publish("zone", z.ID, av)
}

func (b *Bridge) publish(kind string, id int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Int("id", id).Msg("Failed to encode view")
		return
	}
	topic := b.prefix + "/" + kind + "/" + strconv.Itoa(id) + "/state"
	if err := b.broker.Publish(topic, payload, true); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Publish failed")
	}
}

func (b *Bridge) handleUnitCommand(ctx context.Context, topic string, payload []byte) {
	id, cmd, ok := b.parse(topic, payload)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, b.cmdTimeout)
	defer cancel()

	if cmd.Mode != nil {
		if err := b.disp.SetUnitMode(ctx, id, view.Mode(*cmd.Mode)); err != nil {
			log.Warn().Err(err).Int("unit", id).Msg("Unit mode command rejected")
		}
	}
	if cmd.Power != nil {
		if err := b.disp.SetUnitPower(ctx, id, *cmd.Power); err != nil {
			log.Warn().Err(err).Int("unit", id).Msg("Unit power command rejected")
		}
	}
	if cmd.FanSpeed != nil {
		if err := b.disp.SetUnitFanSpeed(ctx, id, view.Speed(*cmd.FanSpeed)); err != nil {
			log.Warn().Err(err).Int("unit", id).Msg("Unit fan speed command rejected")
		}
	}
}

func (b *Bridge) handleZoneCommand(ctx context.Context, topic string, payload []byte) {
	id, cmd, ok := b.parse(topic, payload)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, b.cmdTimeout)
	defer cancel()

	if cmd.Mode != nil {
		if err := b.disp.SetZoneMode(ctx, id, view.Mode(*cmd.Mode)); err != nil {
			log.Warn().Err(err).Int("zone", id).Msg("Zone mode command rejected")
		}
	}
	if cmd.Power != nil {
		if err := b.disp.SetZonePower(ctx, id, *cmd.Power); err != nil {
			log.Warn().Err(err).Int("zone", id).Msg("Zone power command rejected")
		}
	}
	if cmd.Setpoint != nil {
		if err := b.disp.SetZoneSetpoint(ctx, id, *cmd.Setpoint); err != nil {
			log.Warn().Err(err).Int("zone", id).Msg("Zone setpoint command rejected")
		}
	}
	if cmd.Target != nil {
		if err := b.disp.SetZoneTarget(id, *cmd.Target); err != nil {
			log.Warn().Err(err).Int("zone", id).Msg("Zone target command rejected")
		}
	}
	if cmd.Percent != nil {
		if err := b.disp.SetZoneAperture(ctx, id, *cmd.Percent); err != nil {
			log.Warn().Err(err).Int("zone", id).Msg("Zone aperture command rejected")
		}
	}
}

// parse extracts the entity id from <prefix>/<kind>/<id>/set and decodes
// the command payload.
func (b *Bridge) parse(topic string, payload []byte) (int, command, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return 0, command{}, false
	}
	id, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		log.Warn().Str("topic", topic).Msg("Command topic has no numeric id")
		return 0, command{}, false
	}

	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Malformed command payload")
		return 0, command{}, false
	}
	return id, cmd, true
}
