package tracker

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/mireles/tether/internal/geo"
	"github.com/mireles/tether/internal/monitor"
)

// Frame decoding errors.
var (
	ErrInvalidFrame    = errors.New("invalid CBOR frame")
	ErrMissingWard     = errors.New("frame missing ward_id")
	ErrCoordinateRange = errors.New("frame coordinates out of range")
)

// ObservationFrame is one CBOR-encoded position report from the feed.
// Timestamps travel as microseconds since the Unix epoch; a zero
// timestamp means the tracker did not report one and the receive time
// is used instead.
type ObservationFrame struct {
	// WardID identifies the tracked entity.
	WardID string `cbor:"ward_id"`

	// Lat is the latitude in degrees.
	Lat float64 `cbor:"lat"`

	// Lng is the longitude in degrees.
	Lng float64 `cbor:"lng"`

	// TimeUS is the observation timestamp in microseconds since the Unix epoch.
	TimeUS int64 `cbor:"time_us"`
}

// DecodeFrame decodes and validates a CBOR-encoded observation frame.
func DecodeFrame(data []byte) (*ObservationFrame, error) {
	if len(data) == 0 {
		return nil, ErrInvalidFrame
	}

	var frame ObservationFrame
	dec := cbor.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	if frame.WardID == "" {
		return nil, ErrMissingWard
	}
	if frame.Lat < -90 || frame.Lat > 90 || frame.Lng < -180 || frame.Lng > 180 {
		return nil, ErrCoordinateRange
	}

	return &frame, nil
}

// EncodeFrame encodes an observation frame to CBOR bytes.
// This is useful for testing round-trip encoding/decoding.
func EncodeFrame(frame *ObservationFrame) ([]byte, error) {
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	if err := enc.Encode(frame); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Observation converts the frame into an evaluation observation.
// The receivedAt time stands in when the frame carries no timestamp.
func (f *ObservationFrame) Observation(receivedAt time.Time) monitor.Observation {
	at := receivedAt.UTC()
	if f.TimeUS > 0 {
		at = time.UnixMicro(f.TimeUS).UTC()
	}
	return monitor.Observation{
		WardID: f.WardID,
		Point:  geo.Point{Lat: f.Lat, Lng: f.Lng},
		At:     at,
	}
}
