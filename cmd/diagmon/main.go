// Command diagmon is the bench-side monitor for the blade contact sensor.
// It decodes diagnostic frames from the board's serial port, prints them,
// and optionally publishes them to NATS for capture. With -csv it instead
// verifies a raw sample capture contains the excitation line and exits.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/cmplx"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"github.com/nats-io/nats.go"
	"github.com/tarm/serial"

	"github.com/brakeguard/BladeContactSensor/diag"
	"github.com/brakeguard/BladeContactSensor/excite"
)

const (
	subjectState    = "blade.state"
	subjectFeatures = "blade.features"
)

type stateMsg struct {
	Ts    int64  `json:"ts"`
	Cycle uint32 `json:"cycle"`
	State string `json:"state"`
}

type featureMsg struct {
	Ts               int64  `json:"ts"`
	Cycle            uint32 `json:"cycle"`
	State            string `json:"state"`
	PeakToPeakMilliV uint16 `json:"p2p_mv"`
	MeanMilliV       uint16 `json:"mean_mv"`
	DeltaMilliV      int16  `json:"delta_mv"`
}

func main() {
	var (
		port    = flag.String("port", "/dev/ttyACM0", "serial port of the sensor board")
		baud    = flag.Int("baud", 115200, "serial baud rate")
		natsURL = flag.String("nats", "", "NATS url for bench publishing (empty: disabled)")
		csvFile = flag.String("csv", "", "CSV capture of raw samples: verify the excitation spectrum and exit")
		rate    = flag.Float64("rate", 400_000, "sample rate of the CSV capture in Hz")
	)
	flag.Parse()

	if *csvFile != "" {
		if err := checkSpectrum(*csvFile, *rate); err != nil {
			log.Fatal(err)
		}
		return
	}

	var nc *nats.Conn
	if *natsURL != "" {
		var err error
		nc, err = nats.Connect(
			*natsURL,
			nats.Name("blade-diagmon"),
			nats.Timeout(3*time.Second),
			nats.ReconnectWait(500*time.Millisecond),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			log.Fatal(err)
		}
		defer nc.Drain()
	}

	s, err := serial.OpenPort(&serial.Config{
		Name:        *port,
		Baud:        *baud,
		ReadTimeout: time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("listening on %s at %d baud", *port, *baud)

	dec := &diag.Decoder{}
	buf := make([]byte, 256)
	for {
		n, err := s.Read(buf)
		if err != nil {
			log.Fatal(err)
		}
		if n == 0 {
			continue
		}
		for _, r := range dec.Feed(buf[:n]) {
			handle(r, nc)
		}
	}
}

func handle(r diag.Record, nc *nats.Conn) {
	now := time.Now().UnixMilli()
	switch r.Kind {
	case diag.KindTransition:
		log.Printf("cycle %d: state -> %s", r.Cycle, r.State)
		publish(nc, subjectState, stateMsg{
			Ts:    now,
			Cycle: r.Cycle,
			State: r.State.String(),
		})
	case diag.KindFeatures:
		log.Printf("cycle %d: p2p=%dmV mean=%dmV delta=%dmV",
			r.Cycle, r.PeakToPeakMilliV, r.MeanMilliV, r.DeltaMilliV)
		publish(nc, subjectFeatures, featureMsg{
			Ts:               now,
			Cycle:            r.Cycle,
			State:            r.State.String(),
			PeakToPeakMilliV: r.PeakToPeakMilliV,
			MeanMilliV:       r.MeanMilliV,
			DeltaMilliV:      r.DeltaMilliV,
		})
	case diag.KindCounters:
		log.Printf("cycle %d: timeouts=%d insufficient=%d sink-drops=%d rearms=%d",
			r.Cycle, r.Timeouts, r.Insufficient, r.SinkDrops, r.Rearms)
	default:
		log.Printf("unknown record kind %d", r.Kind)
	}
}

func publish(nc *nats.Conn, subject string, msg any) {
	if nc == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := nc.Publish(subject, b); err != nil {
		log.Printf("publish %s failed: %v", subject, err)
	}
}

// checkSpectrum loads a capture of raw return-path samples (one reading per
// line, raw counts or volts) and reports the dominant spectral line. The
// capture passes when that line sits within 2% of the excitation frequency.
func checkSpectrum(path string, rate float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var samples []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Take the first column of CSV exports
		if idx := strings.IndexByte(line, ','); idx >= 0 {
			line = line[:idx]
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		samples = append(samples, v)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(samples) < 16 {
		return fmt.Errorf("capture too short: %d samples", len(samples))
	}

	// Remove the DC offset so the excitation line dominates
	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))
	for i := range samples {
		samples[i] -= mean
	}

	spectrum := fft.FFTReal(samples)
	binWidth := rate / float64(len(samples))
	bestBin := 1
	bestPower := 0.0
	for i := 1; i < len(spectrum)/2; i++ {
		p := cmplx.Abs(spectrum[i])
		if p > bestPower {
			bestPower = p
			bestBin = i
		}
	}

	freq := float64(bestBin) * binWidth
	log.Printf("dominant line: %.0f Hz (bin %d, magnitude %.1f)", freq, bestBin, bestPower)
	target := float64(excite.DefaultFrequencyHz)
	if freq < target*0.98 || freq > target*1.02 {
		return fmt.Errorf("excitation line not found: expected ~%.0f Hz, dominant line at %.0f Hz", target, freq)
	}
	log.Printf("excitation present at %.0f Hz", freq)
	return nil
}
