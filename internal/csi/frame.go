// Package csi parses raw CSI_DATA records emitted by the ESP32 radio firmware
// into typed samples. The wire format is one comma-delimited line per frame:
//
//	CSI_DATA,<id>,<mac>,<rssi>,<rate>,<sig_mode>,<mcs>,<bandwidth>,
//	<smoothing>,<not_sounding>,<aggregation>,<stbc>,<fec_coding>,<sgi>,
//	<noise_floor>,<ampdu_cnt>,<channel>,<secondary_channel>,
//	<local_timestamp>,<ant>,<sig_len>,<rx_state>,<len>,<first_word>,
//	<data...>
//
// The data payload is interleaved signed integer pairs, one pair per
// subcarrier. The pairing order (imaginary-first or real-first) is a firmware
// contract and must be supplied by the caller.
package csi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field indices within a CSI_DATA record.
const (
	fieldTag            = 0
	fieldID             = 1
	fieldMAC            = 2
	fieldRSSI           = 3
	fieldRate           = 4
	fieldNoiseFloor     = 14
	fieldChannel        = 16
	fieldLocalTimestamp = 18
	fieldRXState        = 21
	fieldPayloadLen     = 22
	payloadStart        = 24

	// minFields is the smallest structurally identifiable record: the full
	// metadata block plus at least one payload pair.
	minFields = payloadStart + 2

	// guardPairs is the number of leading complex pairs that carry no channel
	// information (the first four payload bytes are invalid per the ESP32 CSI
	// layout) and are dropped before the subcarrier count is established.
	guardPairs = 2
)

// PairOrder selects the interleaving of complex components in the payload.
type PairOrder int

const (
	// ImagReal is the ESP32 default: imaginary component first in each pair.
	ImagReal PairOrder = iota
	// RealImag has the real component first.
	RealImag
)

// ParseOptions configures frame parsing for one session.
type ParseOptions struct {
	// Order is the complex pair interleaving of the payload.
	Order PairOrder
	// SubcarrierCount, when non-zero, is the expected subcarrier count K.
	// Frames with a different count are marked invalid, never reshaped.
	SubcarrierCount int
}

// Sample is one parsed CSI observation. When Valid is false, Reason holds a
// short description of the defect and the numeric fields carry best-effort
// values; callers must check Valid rather than rely on errors for routine
// malformed input.
type Sample struct {
	Timestamp      time.Time
	Seq            int
	SourceMAC      string
	RSSI           int
	Rate           int
	NoiseFloor     int
	Channel        int
	LocalTimestamp int64
	RXState        int

	// Amplitudes holds the magnitude of each subcarrier's channel
	// coefficient; Phases the corresponding angle in radians. Both have the
	// same length.
	Amplitudes []float64
	Phases     []float64

	Valid  bool
	Reason string
}

// Subcarriers returns the subcarrier count of this sample.
func (s *Sample) Subcarriers() int {
	return len(s.Amplitudes)
}

// FrameError reports structurally unparseable input: the record cannot even
// be split into its field boundaries. It is fatal to the single record only.
type FrameError struct {
	Reason string
	Line   string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("unparseable CSI frame (%s): %.60q", e.Reason, e.Line)
}

// ParseLine parses a single CSI_DATA record into a Sample. Malformed content
// degrades to a Sample with Valid=false; only input whose field boundaries
// cannot be identified at all returns a *FrameError. The function is pure:
// the caller stamps Sample.Timestamp at ingest time.
func ParseLine(line string, opts ParseOptions) (Sample, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Sample{}, &FrameError{Reason: "empty input", Line: line}
	}

	parts := strings.Split(line, ",")
	if !strings.HasPrefix(parts[fieldTag], "CSI_DATA") {
		return Sample{}, &FrameError{Reason: "missing CSI_DATA tag", Line: line}
	}
	if len(parts) < minFields {
		return Sample{}, &FrameError{
			Reason: fmt.Sprintf("too few fields: %d < %d", len(parts), minFields),
			Line:   line,
		}
	}

	s := Sample{Valid: true, SourceMAC: strings.TrimSpace(parts[fieldMAC])}

	metaOK := true
	intField := func(idx int) int {
		v, err := strconv.Atoi(strings.TrimSpace(parts[idx]))
		if err != nil {
			metaOK = false
			return 0
		}
		return v
	}

	s.Seq = intField(fieldID)
	s.RSSI = intField(fieldRSSI)
	s.Rate = intField(fieldRate)
	s.NoiseFloor = intField(fieldNoiseFloor)
	s.Channel = intField(fieldChannel)
	s.RXState = intField(fieldRXState)
	declaredLen := intField(fieldPayloadLen)
	if ts, err := strconv.ParseInt(strings.TrimSpace(parts[fieldLocalTimestamp]), 10, 64); err == nil {
		s.LocalTimestamp = ts
	} else {
		metaOK = false
	}
	if !metaOK {
		s.markInvalid("metadata field failed numeric conversion")
	}

	// Collect the raw payload. Non-numeric entries degrade the sample but do
	// not abort the parse.
	raw := make([]int, 0, len(parts)-payloadStart)
	for _, p := range parts[payloadStart:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			s.markInvalid("non-numeric payload entry")
			continue
		}
		raw = append(raw, v)
	}

	if declaredLen > 0 && len(raw) < declaredLen {
		s.markInvalid(fmt.Sprintf("truncated payload: %d of %d entries", len(raw), declaredLen))
	}
	if len(raw) < 2*(guardPairs+1) {
		s.markInvalid("payload too short for any subcarrier")
		return s, nil
	}
	if len(raw)%2 != 0 {
		s.markInvalid("odd payload element count")
		raw = raw[:len(raw)-1]
	}

	pairs := len(raw) / 2
	s.Amplitudes = make([]float64, 0, pairs-guardPairs)
	s.Phases = make([]float64, 0, pairs-guardPairs)
	for i := guardPairs; i < pairs; i++ {
		a, b := float64(raw[2*i]), float64(raw[2*i+1])
		var re, im float64
		switch opts.Order {
		case RealImag:
			re, im = a, b
		default:
			im, re = a, b
		}
		s.Amplitudes = append(s.Amplitudes, math.Hypot(re, im))
		s.Phases = append(s.Phases, math.Atan2(im, re))
	}

	if opts.SubcarrierCount > 0 && len(s.Amplitudes) != opts.SubcarrierCount {
		s.markInvalid(fmt.Sprintf("subcarrier count %d, expected %d", len(s.Amplitudes), opts.SubcarrierCount))
	}

	return s, nil
}

// markInvalid flags the sample invalid, keeping the first recorded reason.
func (s *Sample) markInvalid(reason string) {
	if s.Valid {
		s.Valid = false
		s.Reason = reason
	}
}

// MeanAmplitude returns the mean amplitude across subcarriers, the scalar
// reduction consumed by calibration and detection. Returns 0 for an empty
// amplitude vector.
func (s *Sample) MeanAmplitude() float64 {
	if len(s.Amplitudes) == 0 {
		return 0
	}
	var sum float64
	for _, a := range s.Amplitudes {
		sum += a
	}
	return sum / float64(len(s.Amplitudes))
}
