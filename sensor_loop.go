package main

import (
	"image/color"
	"time"

	"tinygo.org/x/drivers/ws2812"

	"github.com/brakeguard/BladeContactSensor/classify"
	"github.com/brakeguard/BladeContactSensor/excite"
	"github.com/brakeguard/BladeContactSensor/pipeline"
)

// Keep running detection cycles until the board is powered off.
func runDetectionLoop(pl *pipeline.Pipeline, gen *excite.Generator, led ws2812.Device,
	statusUpdates chan<- statusSnapshot, resetRequests <-chan struct{}) {
	for {
		select {
		case <-resetRequests:
			println("External acknowledgement received, releasing latches")
			pl.Reset()
		default:
		}

		// Operator disable switch: excitation off, pipeline idle.
		if pinDisable.Get() {
			if gen.Running() {
				println("System disabled by switch")
				gen.Stop()
				led.WriteColors([]color.RGBA{colorDisabled})
			}
			time.Sleep(time.Millisecond * 100)
			continue
		}
		if !gen.Running() {
			println("System re-enabled, restarting excitation")
			if err := gen.Start(); err != nil {
				println("Failed to restart excitation: ", err.Error())
				led.WriteColors([]color.RGBA{colorConfigError})
				time.Sleep(time.Second)
				continue
			}
		}

		err := pl.Cycle()
		if err != nil {
			println("detection cycle failed: ", err.Error())
		}
		led.WriteColors([]color.RGBA{statusColor(pl)})
		publishStatus(pl, statusUpdates)

		time.Sleep(cycleCadence)
	}
}

// statusColor maps the pipeline state onto the neopixel.
func statusColor(pl *pipeline.Pipeline) color.RGBA {
	if !pl.Classifier().Baseline().Seeded() {
		return colorCalibrating
	}
	switch pl.State() {
	case classify.Proximity:
		return colorProximity
	case classify.Contact:
		return colorContact
	case classify.Fault:
		return colorFault
	default:
		return colorNormal
	}
}

// publishStatus hands the latest snapshot to the I2C listener without ever
// blocking the detection loop.
func publishStatus(pl *pipeline.Pipeline, statusUpdates chan<- statusSnapshot) {
	c := pl.Counters()
	events := pl.Classifier().History()
	history := make([]byte, len(events))
	for i, evt := range events {
		history[i] = byte(evt.State)
	}
	snap := statusSnapshot{
		state:          pl.State(),
		timeouts:       sat8(c.Timeouts),
		insufficient:   sat8(c.Insufficient),
		rearms:         sat8(c.Rearms),
		baselineMilliV: uint16(pl.Classifier().Baseline().Mean() * 1000),
		history:        history,
	}
	select {
	case statusUpdates <- snap:
	default:
	}
}

func sat8(v uint32) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}
