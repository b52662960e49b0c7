package analytics

import (
	"fmt"
	"time"
)

const kmToNauticalMiles = 0.539957

// Default speeds per mode: knots for vessel and barge, km/h otherwise.
var defaultSpeeds = map[string]float64{
	"vessel": 12,
	"truck":  40,
	"rail":   25,
	"barge":  8,
}

var (
	congestionDelay = map[string]float64{"low": 0, "medium": 24, "high": 72}
	weatherDelay    = map[string]float64{"good": 0, "moderate": 12, "severe": 48}
	documentDelay   = map[string]float64{"complete": 0, "incomplete": 24}
)

// ETAInput describes the position and conditions of a shipment leg.
type ETAInput struct {
	CurrentLat         *float64 `json:"current_lat"`
	CurrentLng         *float64 `json:"current_lng"`
	DestLat            float64  `json:"dest_lat"`
	DestLng            float64  `json:"dest_lng"`
	Mode               string   `json:"mode"`
	CurrentSpeed       *float64 `json:"current_speed"`
	PortCongestion     string   `json:"port_congestion"`
	Weather            string   `json:"weather"`
	DocumentStatus     string   `json:"document_status"`
	HistoricalAvgHours *float64 `json:"historical_avg_hours"`
}

// ETAPrediction is the predicted arrival. ETA is nil when nothing could be
// inferred.
type ETAPrediction struct {
	ETA           *time.Time `json:"eta"`
	Confidence    float64    `json:"confidence"`
	VarianceHours *float64   `json:"variance_hours"`
	Factors       []string   `json:"factors"`
}

// PredictETA estimates arrival from distance, mode speed and delay factors.
func PredictETA(in ETAInput, now time.Time) ETAPrediction {
	hist := 0.0
	if in.HistoricalAvgHours != nil {
		hist = *in.HistoricalAvgHours
	}

	if in.CurrentLat == nil || in.CurrentLng == nil {
		if hist > 0 {
			eta := now.Add(hours(hist))
			variance := Round(hist*0.3, 1)
			return ETAPrediction{
				ETA:           &eta,
				Confidence:    0.4,
				VarianceHours: &variance,
				Factors:       []string{"No position data, using historical average"},
			}
		}
		return ETAPrediction{Factors: []string{"Insufficient data for prediction"}}
	}

	mode := in.Mode
	if mode == "" {
		mode = "vessel"
	}
	distance := Haversine(*in.CurrentLat, *in.CurrentLng, in.DestLat, in.DestLng)

	speed, ok := defaultSpeeds[mode]
	if !ok {
		speed = 12
	}
	reported := in.CurrentSpeed != nil && *in.CurrentSpeed > 0
	if reported {
		speed = *in.CurrentSpeed
	}

	var transit float64
	if mode == "vessel" || mode == "barge" {
		transit = distance * kmToNauticalMiles / speed
	} else {
		transit = distance / speed
	}

	factors := []string{}
	var delay float64
	addDelay := func(table map[string]float64, key, def, label string) {
		if key == "" {
			key = def
		}
		d, ok := table[key]
		if !ok {
			return
		}
		delay += d
		if d > 0 {
			factors = append(factors, fmt.Sprintf("%s (%s): +%.0fh", label, key, d))
		}
	}
	addDelay(congestionDelay, in.PortCongestion, "low", "Port congestion")
	addDelay(weatherDelay, in.Weather, "good", "Weather")
	addDelay(documentDelay, in.DocumentStatus, "complete", "Documents")

	total := transit + delay
	if hist > 0 {
		total = total*0.6 + hist*0.4
		factors = append(factors, "Blended with historical average")
	}
	eta := now.Add(hours(total))

	confidence := 0.7
	if reported {
		confidence += 0.1
	}
	if delay > 48 {
		confidence -= 0.2
	}
	if hist > 0 {
		confidence += 0.05
	}
	confidence = Round(clamp(confidence, 0.1, 1), 2)

	variance := Round(transit*0.15+delay*0.3, 1)
	factors = append([]string{
		fmt.Sprintf("Distance: %.0fkm, Speed: %.1f, Transit: %.1fh", distance, speed, transit),
	}, factors...)

	return ETAPrediction{
		ETA:           &eta,
		Confidence:    confidence,
		VarianceHours: &variance,
		Factors:       factors,
	}
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
