package sim

// NewDemo creates a gateway seeded with a small household topology: one
// AC unit, two thermostatic zones and two percentage zones. Used by the
// simulate mode of the daemon.
func NewDemo() *Gateway {
	g := New()

	g.AddUnit(Unit{
		ID:          0,
		Name:        "Living AC",
		Power:       "On",
		Mode:        "Cool",
		FanSpeed:    "Auto",
		Temperature: 24.5,
		MinSetpoint: 16,
		MaxSetpoint: 30,
	})

	g.AddZone(Zone{
		ID:             0,
		Name:           "Living Room",
		UnitID:         0,
		ControlMethod:  "TemperatureControl",
		Power:          "On",
		Temperature:    24.0,
		TargetSetpoint: 23.0,
	})
	g.AddZone(Zone{
		ID:             1,
		Name:           "Master Bedroom",
		UnitID:         0,
		ControlMethod:  "TemperatureControl",
		Power:          "Off",
		Temperature:    22.5,
		TargetSetpoint: 21.0,
	})
	g.AddZone(Zone{
		ID:            2,
		Name:          "Study",
		UnitID:        0,
		ControlMethod: "PercentageControl",
		Power:         "On",
		OpenPercent:   60,
	})
	g.AddZone(Zone{
		ID:            3,
		Name:          "Kids Room",
		UnitID:        0,
		ControlMethod: "PercentageControl",
		Power:         "Off",
		OpenPercent:   0,
	})

	return g
}
