package main

import (
	"fmt"
	"machine"

	"github.com/brakeguard/BladeContactSensor/classify"
)

var (
	// Current firmware version
	version = []byte{1, 0, 0} // Major.Minor.Patch
)

const (
	// Register addresses
	RegVersionMajor   = 0x00 // No input, returns 1 version byte
	RegVersionMinor   = 0x01 // No input, returns 1 version byte
	RegVersionPatch   = 0x02 // No input, returns 1 version byte
	RegState          = 0x10 // No input, returns 1 byte with the classification state
	RegTimeouts       = 0x11 // No input, returns 1 byte acquisition timeout count (saturating)
	RegInsufficient   = 0x12 // No input, returns 1 byte skipped-cycle count (saturating)
	RegBaselineLow    = 0x13 // No input, returns baseline mean low byte (mV)
	RegBaselineHigh   = 0x14 // No input, returns baseline mean high byte (mV)
	RegRearms         = 0x15 // No input, returns 1 byte baseline re-arm count (saturating)
	RegHistoryLen     = 0x16 // No input, returns 1 byte count of recorded transitions
	RegHistory        = 0x17 // No input, returns one state byte per recorded transition, newest first
	RegAcknowledge    = 0x20 // Write ackMagic to release a latched Contact/Fault
	ackMagic          = 0xA5 // Guard value so a stray write cannot release the brake
)

// statusSnapshot is the detection loop state mirrored to the I2C interface.
type statusSnapshot struct {
	state          classify.State
	timeouts       uint8
	insufficient   uint8
	rearms         uint8
	baselineMilliV uint16
	history        []byte
}

// Single i2c message sent to the incoming i2c port
type incomingI2CEvent struct {
	Event       machine.I2CTargetEvent
	HasRegister bool
	Register    uint8
	HasValue    bool
	Value       uint8
}

// Listen for incoming I2C status and acknowledge requests.
// The brake controller reads the classification here and writes the
// acknowledge register to perform the external reset that releases a
// latched Contact or Fault.
func listenForStatusRequests(i2c *machine.I2C, i2cAddress uint8,
	statusUpdates <-chan statusSnapshot, resetRequests chan<- struct{}) error {
	// Configure i2c bus as target
	if err := i2c.Configure(machine.I2CConfig{
		Mode: machine.I2CModeTarget,
	}); err != nil {
		return fmt.Errorf("Failed to configure i2c bus: %w", err)
	}

	// Start listening on the i2c bus
	if err := i2c.Listen(uint16(i2cAddress)); err != nil {
		return fmt.Errorf("Failed to listen on i2c bus: %w", err)
	}
	println("Listening on i2c address: ", i2cAddress)

	// Process events & status changes
	events := make(chan incomingI2CEvent)
	go func() {
		var snap statusSnapshot
		var lastState classify.State
		for {
			select {
			case snap = <-statusUpdates:
				if snap.state != lastState {
					println("Update status: ", snap.state.String())
					lastState = snap.state
				}
			case evt := <-events:
				// Handle event
				switch evt.Event {
				case machine.I2CReceive:
					switch evt.Register {
					case RegAcknowledge:
						if evt.HasValue && evt.Value == ackMagic {
							println("I2C:Receive acknowledge")
							select {
							case resetRequests <- struct{}{}:
							default:
								// A reset is already pending
							}
						}
					default:
						println("I2C:Receive: Invalid register ", evt.Register, evt.HasValue, evt.Value)
					}
				case machine.I2CRequest:
					switch evt.Register {
					case RegVersionMajor:
						i2c.Reply(version[0:1])
					case RegVersionMinor:
						i2c.Reply(version[1:2])
					case RegVersionPatch:
						i2c.Reply(version[2:3])
					case RegState:
						i2c.Reply([]byte{byte(snap.state)})
					case RegTimeouts:
						i2c.Reply([]byte{snap.timeouts})
					case RegInsufficient:
						i2c.Reply([]byte{snap.insufficient})
					case RegBaselineLow:
						i2c.Reply([]byte{byte(snap.baselineMilliV)})
					case RegBaselineHigh:
						i2c.Reply([]byte{byte(snap.baselineMilliV >> 8)})
					case RegRearms:
						i2c.Reply([]byte{snap.rearms})
					case RegHistoryLen:
						i2c.Reply([]byte{uint8(len(snap.history))})
					case RegHistory:
						if len(snap.history) == 0 {
							i2c.Reply([]byte{0x00})
						} else {
							i2c.Reply(snap.history)
						}
					default:
						i2c.Reply([]byte{0xff})
					}
				case machine.I2CFinish:
					// No response needed
				}
			}
		}
	}()
	var buf [8]uint8
	for {
		// Wait for event
		evt, count, err := i2c.WaitForEvent(buf[:])
		if err != nil {
			return fmt.Errorf("Failed to wait for event: %w", err)
		}

		// Handle event
		events <- incomingI2CEvent{
			Event:       evt,
			HasRegister: count >= 1,
			Register:    buf[0],
			HasValue:    count >= 2,
			Value:       buf[1],
		}
	}
}
