// Package pcf8574 drives the brake interlock and indicator outputs through
// a PCF8574 I2C expander, on board variants where the actuator is not wired
// to a native pin.
package pcf8574

import (
	"fmt"
	"machine"
)

// Output bit assignment on the expander.
const (
	// BitBrake asserts the brake interlock line.
	BitBrake = 1 << 0
	// BitProximity drives the proximity warning indicator.
	BitProximity = 1 << 1
	// BitFault drives the sensor-fault indicator.
	BitFault = 1 << 2
)

// Device implements access to a PCF8574 device.
type Device struct {
	i2c        *machine.I2C
	i2cAddress uint8
}

// New initializes a new device attached to given I2C bus.
func New(i2c *machine.I2C, i2cAddress uint8) *Device {
	return &Device{
		i2c:        i2c,
		i2cAddress: i2cAddress,
	}
}

// Reset releases all outputs (brake deasserted, indicators off).
func (dev *Device) Reset() error {
	if err := dev.WriteBits(0); err != nil {
		return fmt.Errorf("WriteBits failed: %w", err)
	}
	return nil
}

// WriteBits sets all 8 output pins at once.
func (dev *Device) WriteBits(value uint8) error {
	w := [1]uint8{value}
	if err := dev.i2c.Tx(uint16(dev.i2cAddress), w[:], nil); err != nil {
		return err
	}
	return nil
}
