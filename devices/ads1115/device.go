// Package ads1115 implements the external ADC option for the blade return
// path. It exposes the single-shot conversion surface the sampler polls:
// Start / Busy / Result.
package ads1115

import (
	"fmt"
	"machine"
)

// Device implements access to an ADS1115 device.
type Device struct {
	i2c        *machine.I2C
	i2cAddress uint8
}

const (
	// ADS1115 I2C addresses
	I2CAddressGround = 0b1001000
	I2CAddressVDD    = 0b1001001
	I2CAddressSDA    = 0b1001010
	I2CAddressSCL    = 0b1001011

	// ADS1115 registers
	regConversion = 0x00
	regConfig     = 0x01

	// Input multiplexer: single-ended channel N against ground
	muxSingleChannel0 uint16 = 0x4000
	muxChannelInc     uint16 = 0x1000

	// Full-scale ranges
	Range6144 uint16 = 0x0000 // +/- 6144 mV
	Range4096 uint16 = 0x0200 // +/- 4096 mV
	Range2048 uint16 = 0x0400 // +/- 2048 mV (default)
	rangeMask uint16 = 0b11110001_11111111

	configDefault uint16 = 0x8583
	configOSBit   uint16 = 0x8000
)

// New initializes a new device attached to given I2C bus.
func New(i2c *machine.I2C, i2cAddress uint8) *Device {
	return &Device{
		i2c:        i2c,
		i2cAddress: i2cAddress,
	}
}

// Configure resets the device, then selects the return-path input channel
// (0-3, single-ended) and full-scale range.
func (dev *Device) Configure(channel uint8, fsRange uint16) error {
	if err := dev.writeRegister(regConfig, configDefault); err != nil {
		return fmt.Errorf("writeRegister failed: %w", err)
	}
	currentConfReg, err := dev.readRegister(regConfig)
	if err != nil {
		return fmt.Errorf("readRegister failed: %w", err)
	}
	currentConfReg &= rangeMask
	currentConfReg &= 0x0fff
	currentConfReg |= fsRange
	currentConfReg |= muxSingleChannel0 + muxChannelInc*uint16(channel)
	if err := dev.writeRegister(regConfig, currentConfReg); err != nil {
		return fmt.Errorf("writeRegister failed: %w", err)
	}
	return nil
}

// Start begins a single conversion on the configured channel.
func (dev *Device) Start() error {
	currentConfReg, err := dev.readRegister(regConfig)
	if err != nil {
		return fmt.Errorf("readRegister failed: %w", err)
	}
	currentConfReg |= configOSBit
	if err := dev.writeRegister(regConfig, currentConfReg); err != nil {
		return fmt.Errorf("writeRegister failed: %w", err)
	}
	return nil
}

// Busy returns true while a conversion is ongoing.
func (dev *Device) Busy() (bool, error) {
	currentConfReg, err := dev.readRegister(regConfig)
	if err != nil {
		return false, fmt.Errorf("readRegister failed: %w", err)
	}
	busy := (currentConfReg & configOSBit) == 0
	return busy, nil
}

// Result returns the current conversion value in raw counts.
func (dev *Device) Result() (uint16, error) {
	result, err := dev.readRegister(regConversion)
	if err != nil {
		return 0, fmt.Errorf("readRegister failed: %w", err)
	}
	return result, nil
}

// Read a 16-bit register
func (dev *Device) readRegister(reg uint8) (uint16, error) {
	w := [1]uint8{reg}
	var r [2]uint8
	if err := dev.i2c.Tx(uint16(dev.i2cAddress), w[:], r[:]); err != nil {
		return 0, err
	}
	result := (uint16(r[0]) << 8) | uint16(r[1]) // MSB first
	return result, nil
}

// Write a 16-bit register
func (dev *Device) writeRegister(reg uint8, value uint16) error {
	w := [3]uint8{reg, uint8((value >> 8) & 0xff), uint8(value & 0xff)}
	if err := dev.i2c.Tx(uint16(dev.i2cAddress), w[:], nil); err != nil {
		return err
	}
	return nil
}
