package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"github.com/brakeguard/BladeContactSensor/acquire"
	"github.com/brakeguard/BladeContactSensor/devices/ads1115"
)

const (
	// Return path input on the external ADC
	adsReturnPathChannel = uint8(0)

	// Volts per count for the on-chip ADC (16-bit left-adjusted, 3.3V ref)
	onchipScale = 3.3 / 65535
	// Volts per count for the ADS1115 at the 6.144V full-scale range
	adsScale = 6.144 / 32767
)

// probeReturnPathADC selects the ADC backend for the blade return path:
// an ADS1115 on i2c0 when one is present, the on-chip ADC otherwise.
// Returns the converter together with its volts-per-count scale.
func probeReturnPathADC(led ws2812.Device) (acquire.Converter, float64) {
	println("Configure i2c0...")
	if err := machine.I2C0.Configure(machine.I2CConfig{}); err != nil {
		led.WriteColors([]color.RGBA{colorI2cConfigError})
	} else {
		println("Probing ADS1115 devices")
		for _, i2cAddress := range []uint8{ads1115.I2CAddressGround, ads1115.I2CAddressVDD} {
			// Create address and try to configure the device
			dev := ads1115.New(machine.I2C0, i2cAddress)
			if err := dev.Configure(adsReturnPathChannel, ads1115.Range6144); err == nil {
				// Found valid ads1115
				println("Found ADS1115 at address: ", i2cAddress)
				return dev, adsScale
			}
		}
		println("No ADS1115 found, using on-chip ADC")
	}

	machine.InitADC()
	adc := machine.ADC{Pin: pinReturnPath}
	adc.Configure(machine.ADCConfig{})
	return &onchipADC{adc: adc}, onchipScale
}

// onchipADC adapts the on-chip ADC to the sampler's conversion surface.
// Get blocks for the (sub-microsecond scale) conversion itself, so Busy is
// immediately false and the sampler's deadline can never trip here.
type onchipADC struct {
	adc  machine.ADC
	last uint16
}

func (a *onchipADC) Start() error {
	a.last = a.adc.Get()
	return nil
}

func (a *onchipADC) Busy() (bool, error) {
	return false, nil
}

func (a *onchipADC) Result() (uint16, error) {
	return a.last, nil
}
