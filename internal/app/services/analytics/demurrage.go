package analytics

import "time"

// Risk levels.
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelCritical = "critical"
)

type weightedFactor struct {
	name   string
	weight float64
}

var demurrageWeights = []weightedFactor{
	{"eta_variance", 0.25},
	{"port_congestion", 0.20},
	{"document_readiness", 0.15},
	{"berth_availability", 0.15},
	{"weather_risk", 0.10},
	{"counterparty_history", 0.10},
	{"laycan_proximity", 0.05},
}

// DemurrageInput carries the signals used to score demurrage risk. Nil
// pointers mean "unknown"; empty strings take the benign default.
type DemurrageInput struct {
	ETAVarianceHours     *float64   `json:"eta_variance_hours"`
	PortCongestion       string     `json:"port_congestion_level"`
	DocumentsCompletePct *float64   `json:"documents_complete_pct"`
	BerthAvailable       *bool      `json:"berth_available"`
	WeatherSeverity      string     `json:"weather_severity"`
	CounterpartyDelayPct float64    `json:"counterparty_delay_history_pct"`
	LaycanEnd            *time.Time `json:"laycan_end"`
	ETADestination       *time.Time `json:"eta_destination"`
	DemurrageRateUSD     *float64   `json:"demurrage_rate_usd"`
}

// DemurrageRisk is the scored result.
type DemurrageRisk struct {
	RiskScore         float64        `json:"risk_score"`
	RiskLevel         string         `json:"risk_level"`
	ExposureUSD       float64        `json:"exposure_usd"`
	ExpectedDelayDays float64        `json:"expected_delay_days"`
	Factors           map[string]int `json:"factors"`
	Recommendations   []string       `json:"recommendations"`
}

// ScoreDemurrage computes a 0-100 weighted risk score and the financial
// exposure implied by it.
func ScoreDemurrage(in DemurrageInput) DemurrageRisk {
	factors := make(map[string]int, len(demurrageWeights))
	recs := []string{}

	switch v := in.ETAVarianceHours; {
	case v == nil:
		factors["eta_variance"] = 50
	case *v <= 4:
		factors["eta_variance"] = 10
	case *v <= 8:
		factors["eta_variance"] = 30
	case *v <= 24:
		factors["eta_variance"] = 60
	case *v <= 48:
		factors["eta_variance"] = 80
	default:
		factors["eta_variance"] = 95
		recs = append(recs, "ETA highly uncertain - consider laycan extension negotiation")
	}

	switch in.PortCongestion {
	case "", "low":
		factors["port_congestion"] = 10
	case "medium":
		factors["port_congestion"] = 50
	case "high":
		factors["port_congestion"] = 85
		recs = append(recs, "Port heavily congested - evaluate alternative berths or anchorage")
	default:
		factors["port_congestion"] = 50
	}

	docs := 100.0
	if in.DocumentsCompletePct != nil {
		docs = *in.DocumentsCompletePct
	}
	switch {
	case docs >= 95:
		factors["document_readiness"] = 5
	case docs >= 80:
		factors["document_readiness"] = 30
	case docs >= 60:
		factors["document_readiness"] = 60
		recs = append(recs, "Expedite document completion to avoid clearance delays")
	default:
		factors["document_readiness"] = 90
		recs = append(recs, "URGENT: Documents significantly incomplete - risk of clearance hold")
	}

	if in.BerthAvailable == nil || *in.BerthAvailable {
		factors["berth_availability"] = 10
	} else {
		factors["berth_availability"] = 75
		recs = append(recs, "No berth currently available - pre-book or negotiate priority")
	}

	switch in.WeatherSeverity {
	case "", "good":
		factors["weather_risk"] = 5
	case "severe":
		factors["weather_risk"] = 80
		recs = append(recs, "Severe weather expected - factor delays into planning")
	default:
		factors["weather_risk"] = 35
	}

	switch {
	case in.CounterpartyDelayPct <= 10:
		factors["counterparty_history"] = 10
	case in.CounterpartyDelayPct <= 30:
		factors["counterparty_history"] = 40
	default:
		factors["counterparty_history"] = 70
		recs = append(recs, "Counterparty has history of delays - add buffer time")
	}

	if in.LaycanEnd != nil && in.ETADestination != nil {
		hours := in.LaycanEnd.Sub(*in.ETADestination).Hours()
		switch {
		case hours > 72:
			factors["laycan_proximity"] = 5
		case hours > 24:
			factors["laycan_proximity"] = 30
		case hours > 0:
			factors["laycan_proximity"] = 65
			recs = append(recs, "Approaching laycan deadline - monitor closely")
		default:
			factors["laycan_proximity"] = 95
			recs = append(recs, "PAST LAYCAN - demurrage may already be accruing")
		}
	} else {
		factors["laycan_proximity"] = 40
	}

	var score float64
	for _, f := range demurrageWeights {
		score += float64(factors[f.name]) * f.weight
	}
	score = Round(clamp(score, 0, 100), 1)

	out := DemurrageRisk{
		RiskScore:       score,
		RiskLevel:       RiskLevel(score),
		Factors:         factors,
		Recommendations: recs,
	}
	if score >= 30 && in.DemurrageRateUSD != nil && *in.DemurrageRateUSD > 0 {
		switch out.RiskLevel {
		case LevelCritical:
			out.ExpectedDelayDays = 5
		case LevelHigh:
			out.ExpectedDelayDays = 3
		case LevelMedium:
			out.ExpectedDelayDays = 1.5
		default:
			out.ExpectedDelayDays = 0.5
		}
		out.ExposureUSD = Round(out.ExpectedDelayDays*(*in.DemurrageRateUSD), 2)
	}
	return out
}

// RiskLevel labels a 0-100 score.
func RiskLevel(score float64) string {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}
