package main

import (
	"machine"

	"github.com/brakeguard/BladeContactSensor/diag"
)

// newUARTSink returns the diagnostic sink writing frames to UART0, for the
// host-side monitor (cmd/diagmon). Returns nil when the UART cannot be
// configured; the emitter treats a nil sink as "no diagnostics".
func newUARTSink() diag.Sink {
	uart := machine.UART0
	if err := uart.Configure(machine.UARTConfig{BaudRate: 115200}); err != nil {
		println("Failed to configure diagnostic UART: ", err.Error())
		return nil
	}
	return &uartSink{uart: uart}
}

// uartSink writes diagnostic frames to a UART. A full FIFO surfaces as an
// error which the emitter counts and drops; diagnostics never stall the
// detection loop.
type uartSink struct {
	uart *machine.UART
}

func (s *uartSink) Write(r diag.Record) error {
	frame := diag.Encode(r)
	_, err := s.uart.Write(frame[:])
	return err
}
