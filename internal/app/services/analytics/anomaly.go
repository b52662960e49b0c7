package analytics

import (
	"fmt"
	"math"
	"time"
)

// Finding is one anomaly raised by a multi-finding check.
type Finding struct {
	Type       string   `json:"type"`
	Severity   string   `json:"severity"`
	Message    string   `json:"message"`
	GapSeconds *float64 `json:"gap_seconds,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// RouteDeviation reports how far a position is from a corridor route.
type RouteDeviation struct {
	Anomaly        bool    `json:"anomaly"`
	Type           string  `json:"type,omitempty"`
	Severity       string  `json:"severity,omitempty"`
	DeviationKm    float64 `json:"deviation_km"`
	ThresholdKm    float64 `json:"threshold_km"`
	ClosestSegment *int    `json:"closest_segment_index"`
	Message        string  `json:"message"`
}

// CheckRouteDeviation measures the distance from pos to the nearest segment of
// route. A route of fewer than two points yields no anomaly.
func CheckRouteDeviation(pos Point, route []Point, maxDeviationKm float64) RouteDeviation {
	if maxDeviationKm <= 0 {
		maxDeviationKm = 5
	}
	if len(route) == 0 {
		return RouteDeviation{ThresholdKm: maxDeviationKm, Message: "No route defined"}
	}

	minDist := math.Inf(1)
	closest := -1
	if len(route) == 1 {
		minDist = Haversine(pos.Lat, pos.Lng, route[0].Lat, route[0].Lng)
		closest = 0
	}
	for i := 0; i+1 < len(route); i++ {
		if d := SegmentDistance(pos, route[i], route[i+1]); d < minDist {
			minDist = d
			closest = i
		}
	}

	out := RouteDeviation{
		DeviationKm:    Round(minDist, 2),
		ThresholdKm:    maxDeviationKm,
		ClosestSegment: &closest,
		Severity:       "low",
		Message:        "Within corridor",
	}
	if minDist > maxDeviationKm {
		out.Anomaly = true
		out.Type = "route_deviation"
		out.Severity = "medium"
		if minDist > maxDeviationKm*3 {
			out.Severity = "high"
		}
		out.Message = fmt.Sprintf("Route deviation detected: %.1fkm from corridor", minDist)
	}
	return out
}

// VolumeCheck compares a measured volume against the expected one.
type VolumeCheck struct {
	Anomaly        bool    `json:"anomaly"`
	Type           string  `json:"type,omitempty"`
	Severity       string  `json:"severity,omitempty"`
	MeasuredVolume float64 `json:"measured_volume"`
	ExpectedVolume float64 `json:"expected_volume"`
	VariancePct    float64 `json:"variance_pct"`
	TolerancePct   float64 `json:"tolerance_pct"`
	Message        string  `json:"message"`
}

// CheckVolume flags a discrepancy beyond tolerancePct (default 2%).
func CheckVolume(measured, expected, tolerancePct float64) VolumeCheck {
	if tolerancePct <= 0 {
		tolerancePct = 2
	}
	out := VolumeCheck{MeasuredVolume: measured, ExpectedVolume: expected, TolerancePct: tolerancePct}
	if expected <= 0 {
		out.Message = "No expected volume to compare"
		return out
	}

	variance := (measured - expected) / expected * 100
	abs := math.Abs(variance)
	out.VariancePct = Round(variance, 2)
	out.Anomaly = abs > tolerancePct
	switch {
	case abs > tolerancePct*3:
		out.Severity = "critical"
	case abs > tolerancePct*2:
		out.Severity = "high"
	case out.Anomaly:
		out.Severity = "medium"
	default:
		out.Severity = "low"
	}
	if out.Anomaly {
		out.Type = "volume_discrepancy"
		out.Message = fmt.Sprintf("Volume discrepancy: %+.1f%% (%.1f vs %.1f)", variance, measured, expected)
	} else {
		out.Message = "Within tolerance"
	}
	return out
}

type speedLimit struct {
	max     float64
	safeMax float64
}

var speedLimits = map[string]speedLimit{
	"truck":  {max: 100, safeMax: 80},
	"rail":   {max: 80, safeMax: 60},
	"vessel": {max: 20, safeMax: 16},
	"barge":  {max: 15, safeMax: 10},
}

// SpeedCheck is the outcome of a speed check.
type SpeedCheck struct {
	Anomaly      bool      `json:"anomaly"`
	Anomalies    []Finding `json:"anomalies"`
	CurrentSpeed float64   `json:"current_speed"`
	Mode         string    `json:"mode"`
}

// CheckSpeed compares speed against the mode's limits. maxOverride replaces
// the hard maximum when positive. Unknown modes use truck limits.
func CheckSpeed(speed float64, mode string, maxOverride float64) SpeedCheck {
	if mode == "" {
		mode = "truck"
	}
	limits, ok := speedLimits[mode]
	if !ok {
		limits = speedLimits["truck"]
	}
	max := limits.max
	if maxOverride > 0 {
		max = maxOverride
	}

	out := SpeedCheck{Anomalies: []Finding{}, CurrentSpeed: speed, Mode: mode}
	switch {
	case speed > max:
		out.Anomalies = append(out.Anomalies, Finding{
			Type:     "overspeed",
			Severity: "critical",
			Message:  fmt.Sprintf("Speed %.1f exceeds maximum %.1f", speed, max),
		})
	case speed > limits.safeMax:
		out.Anomalies = append(out.Anomalies, Finding{
			Type:     "high_speed",
			Severity: "medium",
			Message:  fmt.Sprintf("Speed %.1f exceeds safe limit %.1f", speed, limits.safeMax),
		})
	}
	out.Anomaly = len(out.Anomalies) > 0
	return out
}

// DwellCheck reports time spent at a location.
type DwellCheck struct {
	Anomaly          bool    `json:"anomaly"`
	Type             string  `json:"type,omitempty"`
	Severity         string  `json:"severity"`
	DwellMinutes     float64 `json:"dwell_minutes"`
	ThresholdMinutes int     `json:"threshold_minutes"`
	Location         string  `json:"location"`
	Message          string  `json:"message"`
}

// CheckDwell flags a dwell longer than maxMinutes (default 120).
func CheckDwell(entry time.Time, location string, maxMinutes int, now time.Time) DwellCheck {
	if maxMinutes <= 0 {
		maxMinutes = 120
	}
	dwell := now.Sub(entry).Minutes()
	limit := float64(maxMinutes)

	out := DwellCheck{
		DwellMinutes:     Round(dwell, 1),
		ThresholdMinutes: maxMinutes,
		Location:         location,
		Severity:         "low",
		Message:          "Normal dwell time",
	}
	if dwell > limit {
		out.Anomaly = true
		out.Type = "excessive_dwell"
		out.Severity = "medium"
		if dwell > limit*3 {
			out.Severity = "high"
		}
		out.Message = fmt.Sprintf("Excessive dwell at %s: %.0f minutes", location, dwell)
	}
	return out
}

// Sample is one timestamped position used by the integrity check.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
}

// IntegrityCheck summarises reporting gaps and impossible jumps.
type IntegrityCheck struct {
	Anomaly          bool      `json:"anomaly"`
	Anomalies        []Finding `json:"anomalies"`
	ReadingsAnalyzed int       `json:"readings_analyzed"`
	Message          string    `json:"message,omitempty"`
}

const maxPlausibleKmh = 120.0

// CheckSensorIntegrity looks for reporting gaps longer than gapFactor times
// the expected interval and for position jumps faster than 120 km/h.
// samples must be in chronological order.
func CheckSensorIntegrity(samples []Sample, expectedIntervalSec int, gapFactor float64) IntegrityCheck {
	if expectedIntervalSec <= 0 {
		expectedIntervalSec = 300
	}
	if gapFactor <= 0 {
		gapFactor = 3
	}
	out := IntegrityCheck{Anomalies: []Finding{}, ReadingsAnalyzed: len(samples)}
	if len(samples) < 2 {
		out.Message = "Insufficient readings for analysis"
		return out
	}

	interval := float64(expectedIntervalSec)
	for i := 1; i < len(samples); i++ {
		gap := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Seconds()
		if gap > interval*gapFactor {
			g := gap
			out.Anomalies = append(out.Anomalies, Finding{
				Type:       "reporting_gap",
				Severity:   "high",
				GapSeconds: &g,
				Message:    fmt.Sprintf("Reporting gap of %.0f minutes detected", gap/60),
			})
		}
	}

	maxDist := interval / 3600 * maxPlausibleKmh
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		if prev.Latitude == nil || prev.Longitude == nil || cur.Latitude == nil || cur.Longitude == nil {
			continue
		}
		dist := Haversine(*prev.Latitude, *prev.Longitude, *cur.Latitude, *cur.Longitude)
		if dist > maxDist {
			d := Round(dist, 2)
			out.Anomalies = append(out.Anomalies, Finding{
				Type:       "position_jump",
				Severity:   "critical",
				DistanceKm: &d,
				Message:    fmt.Sprintf("Impossible position jump: %.1fkm in %ds", dist, expectedIntervalSec),
			})
		}
	}
	out.Anomaly = len(out.Anomalies) > 0
	return out
}
