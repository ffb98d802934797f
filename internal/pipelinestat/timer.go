// Package pipelinestat provides the microsecond-resolution timer that
// quadexport.QuadExporter.Run uses to report the wall-clock time of its
// traversal.
//
// Grounded on earth_enterprise/src/common/khTimer.h.
package pipelinestat

import "time"

// Timer wraps time.Now as a monotonic tick source, mirroring khTimer's
// tick()/delta_s()/delta_m() API.
type Timer struct{}

// Tick returns the current instant. Should not be called in inner loops of
// any consequence.
func (Timer) Tick() time.Time { return time.Now() }

// DeltaSeconds returns t2-t1 in seconds.
func (Timer) DeltaSeconds(t1, t2 time.Time) float64 { return t2.Sub(t1).Seconds() }

// DeltaMillis returns t2-t1 in milliseconds.
func (Timer) DeltaMillis(t1, t2 time.Time) float64 { return float64(t2.Sub(t1)) / float64(time.Millisecond) }
