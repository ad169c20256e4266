package main

import (
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/ws2812"

	"github.com/brakeguard/BladeContactSensor/acquire"
	"github.com/brakeguard/BladeContactSensor/classify"
	"github.com/brakeguard/BladeContactSensor/emit"
	"github.com/brakeguard/BladeContactSensor/excite"
	"github.com/brakeguard/BladeContactSensor/feature"
	"github.com/brakeguard/BladeContactSensor/pipeline"
)

var (
	// Color scheme
	colorBoot           = color.RGBA{R: 255, G: 165, B: 0}
	colorCalibrating    = color.RGBA{R: 0, G: 0, B: 245}
	colorNormal         = color.RGBA{R: 0, G: 245, B: 0}
	colorProximity      = color.RGBA{R: 245, G: 245, B: 0}
	colorContact        = color.RGBA{R: 245, G: 0, B: 0}
	colorFault          = color.RGBA{R: 96, G: 0, B: 96}
	colorDisabled       = color.RGBA{R: 16, G: 16, B: 16}
	colorConfigError    = color.RGBA{R: 96, G: 0, B: 0}
	colorI2cConfigError = color.RGBA{R: 96, G: 0, B: 96}
)

var (
	// Excitation output (PWM3 channel A)
	pinExcitation = machine.GPIO22
	// Blade return path, used when sampling with the on-chip ADC
	pinReturnPath = machine.GPIO26
	// Direct actuator outputs, used when no PCF8574 expander is present
	pinBrake        = machine.GPIO6
	pinProximityLed = machine.GPIO7
	pinFaultLed     = machine.GPIO10
	// Operator disable switch
	pinDisable = machine.GPIO9

	excitationPWM pwm = machine.PWM3
)

// pwm is the subset of a machine PWM peripheral used by this firmware.
type pwm interface {
	// Configure enables and configures this PWM.
	Configure(config machine.PWMConfig) error
	// Channel returns a PWM channel for the given pin. If pin does
	// not belong to PWM peripheral ErrInvalidOutputPin error is returned.
	// It also configures pin as PWM output.
	Channel(pin machine.Pin) (channel uint8, err error)
	// SetPeriod updates the period of this PWM peripheral in nanoseconds.
	SetPeriod(period uint64) error
	// Period returns the actually configured period in nanoseconds.
	Period() uint64
	// Top returns the current counter top, for use in duty cycle calculation.
	Top() uint32
	// Set updates the channel value. This is used to control the channel duty
	// cycle, in other words the fraction of time the channel output is high.
	Set(channel uint8, value uint32)
	// Enable enables or disables PWM peripheral channels.
	Enable(enable bool)
}

const (
	// I2C address of the status/acknowledge interface
	statusI2cAddress = uint8(0x36)
	// Pause between detection cycles
	cycleCadence = time.Millisecond * 2
)

func main() {
	// Configure actuator & switch pins
	pinBrake.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinProximityLed.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinFaultLed.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinDisable.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})

	// Assert the brake until the pipeline reports a verified state
	pinBrake.High()

	time.Sleep(time.Second * 2)

	// Configure neopixel
	machine.NEOPIXEL.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led := ws2812.New(machine.NEOPIXEL)
	led.WriteColors([]color.RGBA{colorBoot})

	// Select ADC backend and actuator output path
	conv, scale := probeReturnPathADC(led)
	act := probeActuator()

	// Start excitation before any sampling begins
	cfg := excite.DefaultConfig()
	if err := excitationPWM.Configure(machine.PWMConfig{
		Period: uint64(1e9) / uint64(cfg.FrequencyHz),
	}); err != nil {
		println("Failed to configure excitation PWM: ", err.Error())
		haltWithColor(led, colorConfigError)
	}
	channel, err := excitationPWM.Channel(pinExcitation)
	if err != nil {
		println("Failed to acquire excitation channel: ", err.Error())
		haltWithColor(led, colorConfigError)
	}
	gen := excite.New(excitationPWM, channel, cfg)
	if err := gen.Start(); err != nil {
		// An unachievable excitation config is fatal at startup. Running at
		// an unverified frequency would invalidate every threshold.
		println("Excitation start failed: ", err.Error())
		haltWithColor(led, colorConfigError)
	}

	// Assemble the detection pipeline
	sampler := acquire.NewSampler(conv, acquire.Config{
		Interval: acquire.IntervalFor(cfg.FrequencyHz, acquire.SamplesPerCycle),
	})
	ext := feature.NewExtractor(scale, acquire.SamplesPerCycle*2)
	cls := classify.NewClassifier(classify.DefaultConfig())
	emitter := emit.New(act, newUARTSink())
	pl := pipeline.New(pipeline.DefaultConfig(), sampler, ext, cls, emitter)

	// Status/acknowledge interface
	resetRequests := make(chan struct{}, 1)
	statusUpdates := make(chan statusSnapshot, 1)
	go func() {
		for {
			if err := listenForStatusRequests(machine.I2C1, statusI2cAddress, statusUpdates, resetRequests); err != nil {
				println("listenForStatusRequests failed: ", err.Error())
				time.Sleep(time.Second)
			}
		}
	}()

	println("Blade contact detection started")
	runDetectionLoop(pl, gen, led, statusUpdates, resetRequests)
}

func haltWithColor(led ws2812.Device, c color.RGBA) {
	led.WriteColors([]color.RGBA{c})
	for {
		time.Sleep(time.Minute)
	}
}
