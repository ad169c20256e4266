package main

import (
	"machine"

	"github.com/brakeguard/BladeContactSensor/classify"
	"github.com/brakeguard/BladeContactSensor/devices/pcf8574"
	"github.com/brakeguard/BladeContactSensor/emit"
)

// probeActuator selects the brake output path: a PCF8574 expander when one
// answers on the bus, direct pins otherwise.
func probeActuator() emit.Actuator {
	println("Probing PCF8574 brake expander")
	for _, i2cAddress := range []uint8{0x20, 0x21, 0x22, 0x23} {
		// Create address and try to release all outputs
		dev := pcf8574.New(machine.I2C0, i2cAddress)
		if err := dev.Reset(); err == nil {
			// Found valid PCF8574
			println("Found PCF8574 at address: ", i2cAddress)
			return &pcfActuator{dev: dev}
		}
	}
	println("No PCF8574 found, using direct actuator pins")
	return &pinActuator{}
}

// pinActuator drives the brake interlock and indicators on native pins.
type pinActuator struct{}

func (a *pinActuator) Signal(s classify.State) error {
	pinBrake.Set(s.Alarming())
	pinProximityLed.Set(s == classify.Proximity)
	pinFaultLed.Set(s == classify.Fault)
	return nil
}

// pcfActuator routes the same signals through the PCF8574 expander.
type pcfActuator struct {
	dev *pcf8574.Device
}

func (a *pcfActuator) Signal(s classify.State) error {
	bits := uint8(0)
	if s.Alarming() {
		bits |= pcf8574.BitBrake
	}
	if s == classify.Proximity {
		bits |= pcf8574.BitProximity
	}
	if s == classify.Fault {
		bits |= pcf8574.BitFault
	}
	return a.dev.WriteBits(bits)
}
