package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
)

var approx = cmpopts.EquateApprox(0, 1e-6)

func ptr[T any](v T) *T { return &v }

func TestScoreDemurrageHighRisk(t *testing.T) {
	eta := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := ScoreDemurrage(DemurrageInput{
		ETAVarianceHours:     ptr(30.0),
		PortCongestion:       "high",
		DocumentsCompletePct: ptr(70.0),
		BerthAvailable:       ptr(false),
		WeatherSeverity:      "severe",
		CounterpartyDelayPct: 40,
		LaycanEnd:            ptr(eta.Add(10 * time.Hour)),
		ETADestination:       &eta,
		DemurrageRateUSD:     ptr(20000.0),
	})

	want := DemurrageRisk{
		RiskScore:         75.5,
		RiskLevel:         LevelHigh,
		ExposureUSD:       60000,
		ExpectedDelayDays: 3,
		Factors: map[string]int{
			"eta_variance":         80,
			"port_congestion":      85,
			"document_readiness":   60,
			"berth_availability":   75,
			"weather_risk":         80,
			"counterparty_history": 70,
			"laycan_proximity":     65,
		},
		Recommendations: []string{
			"Port heavily congested - evaluate alternative berths or anchorage",
			"Expedite document completion to avoid clearance delays",
			"No berth currently available - pre-book or negotiate priority",
			"Severe weather expected - factor delays into planning",
			"Counterparty has history of delays - add buffer time",
			"Approaching laycan deadline - monitor closely",
		},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("demurrage risk mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreDemurrageLowRiskHasNoExposure(t *testing.T) {
	eta := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := ScoreDemurrage(DemurrageInput{
		ETAVarianceHours: ptr(2.0),
		LaycanEnd:        ptr(eta.Add(96 * time.Hour)),
		ETADestination:   &eta,
		DemurrageRateUSD: ptr(15000.0),
	})

	assert.InDelta(t, 8.5, got.RiskScore, 1e-9)
	assert.Equal(t, LevelLow, got.RiskLevel)
	assert.Zero(t, got.ExposureUSD)
	assert.Zero(t, got.ExpectedDelayDays)
	assert.Empty(t, got.Recommendations)
	assert.NotNil(t, got.Recommendations)
}

func TestRiskLevelBands(t *testing.T) {
	cases := map[float64]string{0: LevelLow, 39.9: LevelLow, 40: LevelMedium, 60: LevelHigh, 79.9: LevelHigh, 80: LevelCritical, 100: LevelCritical}
	for score, level := range cases {
		assert.Equal(t, level, RiskLevel(score), "score %v", score)
	}
}

func TestPredictETAWithoutPosition(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	none := PredictETA(ETAInput{}, now)
	if diff := cmp.Diff(ETAPrediction{Factors: []string{"Insufficient data for prediction"}}, none); diff != "" {
		t.Fatalf("unexpected prediction (-want +got):\n%s", diff)
	}

	hist := PredictETA(ETAInput{HistoricalAvgHours: ptr(10.0)}, now)
	require.NotNil(t, hist.ETA)
	assert.Equal(t, now.Add(10*time.Hour), *hist.ETA)
	assert.Equal(t, 0.4, hist.Confidence)
	require.NotNil(t, hist.VarianceHours)
	assert.InDelta(t, 3.0, *hist.VarianceHours, 1e-9)
}

func TestPredictETAVesselWithCongestion(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got := PredictETA(ETAInput{
		CurrentLat:     ptr(0.0),
		CurrentLng:     ptr(0.0),
		DestLat:        0,
		DestLng:        1,
		PortCongestion: "high",
	}, now)

	require.NotNil(t, got.ETA)
	// ~60 nautical miles at 12 knots plus 72h of congestion.
	assert.WithinDuration(t, now.Add(77*time.Hour), *got.ETA, 10*time.Minute)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
	require.NotNil(t, got.VarianceHours)
	assert.InDelta(t, 22.4, *got.VarianceHours, 1e-9)
	assert.Equal(t, []string{
		"Distance: 111km, Speed: 12.0, Transit: 5.0h",
		"Port congestion (high): +72h",
	}, got.Factors)
}

func TestPredictETAReportedSpeedRaisesConfidence(t *testing.T) {
	now := time.Now()
	got := PredictETA(ETAInput{
		CurrentLat:   ptr(10.0),
		CurrentLng:   ptr(10.0),
		DestLat:      10.5,
		DestLng:      10.5,
		Mode:         "truck",
		CurrentSpeed: ptr(60.0),
	}, now)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	assert.Len(t, got.Factors, 1)
}

func TestHaversineAndSegmentDistance(t *testing.T) {
	assert.InDelta(t, 111.195, Haversine(0, 0, 0, 1), 0.01)
	assert.Zero(t, Haversine(51.5, -0.1, 51.5, -0.1))

	a, b := Point{Lat: 0, Lng: 0}, Point{Lat: 0, Lng: 1}
	assert.InDelta(t, 11.12, SegmentDistance(Point{Lat: 0.1, Lng: 0.5}, a, b), 0.01)
	// Beyond the segment end the distance is to the endpoint.
	assert.InDelta(t, Haversine(0, 2, 0, 1), SegmentDistance(Point{Lat: 0, Lng: 2}, a, b), 1e-6)
	assert.InDelta(t, Haversine(1, 1, 0, 0), SegmentDistance(Point{Lat: 1, Lng: 1}, a, a), 1e-9)
}

func TestCheckRouteDeviation(t *testing.T) {
	route := []Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}}

	off := CheckRouteDeviation(Point{Lat: 0.1, Lng: 0.5}, route, 0)
	assert.True(t, off.Anomaly)
	assert.Equal(t, "route_deviation", off.Type)
	assert.Equal(t, "medium", off.Severity)
	assert.Equal(t, 5.0, off.ThresholdKm)
	require.NotNil(t, off.ClosestSegment)
	assert.Equal(t, 0, *off.ClosestSegment)
	assert.Equal(t, "Route deviation detected: 11.1km from corridor", off.Message)

	far := CheckRouteDeviation(Point{Lat: 0.5, Lng: 0.5}, route, 5)
	assert.Equal(t, "high", far.Severity)

	on := CheckRouteDeviation(Point{Lat: 0.5, Lng: 1.01}, route, 5)
	assert.False(t, on.Anomaly)
	assert.Equal(t, 1, *on.ClosestSegment)
	assert.Equal(t, "Within corridor", on.Message)

	empty := CheckRouteDeviation(Point{}, nil, 5)
	assert.False(t, empty.Anomaly)
	assert.Nil(t, empty.ClosestSegment)
	assert.Equal(t, "No route defined", empty.Message)
}

func TestCheckVolume(t *testing.T) {
	got := CheckVolume(97, 100, 0)
	want := VolumeCheck{
		Anomaly:        true,
		Type:           "volume_discrepancy",
		Severity:       "medium",
		MeasuredVolume: 97,
		ExpectedVolume: 100,
		VariancePct:    -3,
		TolerancePct:   2,
		Message:        "Volume discrepancy: -3.0% (97.0 vs 100.0)",
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("volume check mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "critical", CheckVolume(107, 100, 2).Severity)
	assert.Equal(t, "high", CheckVolume(105, 100, 2).Severity)

	within := CheckVolume(101, 100, 2)
	assert.False(t, within.Anomaly)
	assert.Equal(t, "low", within.Severity)
	assert.Equal(t, "Within tolerance", within.Message)

	assert.Equal(t, "No expected volume to compare", CheckVolume(10, 0, 2).Message)
}

func TestCheckSpeed(t *testing.T) {
	warn := CheckSpeed(90, "truck", 0)
	want := SpeedCheck{
		Anomaly:      true,
		CurrentSpeed: 90,
		Mode:         "truck",
		Anomalies: []Finding{{
			Type:     "high_speed",
			Severity: "medium",
			Message:  "Speed 90.0 exceeds safe limit 80.0",
		}},
	}
	if diff := cmp.Diff(want, warn); diff != "" {
		t.Fatalf("speed check mismatch (-want +got):\n%s", diff)
	}

	over := CheckSpeed(25, "vessel", 0)
	require.Len(t, over.Anomalies, 1)
	assert.Equal(t, "overspeed", over.Anomalies[0].Type)
	assert.Equal(t, "critical", over.Anomalies[0].Severity)

	assert.True(t, CheckSpeed(50, "rail", 40).Anomaly)

	unknown := CheckSpeed(85, "hovercraft", 0)
	assert.Equal(t, "hovercraft", unknown.Mode)
	assert.True(t, unknown.Anomaly)

	ok := CheckSpeed(10, "", 0)
	assert.False(t, ok.Anomaly)
	assert.Equal(t, "truck", ok.Mode)
	assert.NotNil(t, ok.Anomalies)
}

func TestCheckDwell(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	long := CheckDwell(now.Add(-400*time.Minute), "Berth 4", 0, now)
	assert.True(t, long.Anomaly)
	assert.Equal(t, "excessive_dwell", long.Type)
	assert.Equal(t, "high", long.Severity)
	assert.Equal(t, 120, long.ThresholdMinutes)
	assert.Equal(t, "Excessive dwell at Berth 4: 400 minutes", long.Message)

	medium := CheckDwell(now.Add(-200*time.Minute), "Berth 4", 120, now)
	assert.Equal(t, "medium", medium.Severity)

	short := CheckDwell(now.Add(-30*time.Minute), "Gate", 120, now)
	assert.False(t, short.Anomaly)
	assert.Equal(t, "Normal dwell time", short.Message)
	assert.Equal(t, 30.0, short.DwellMinutes)
}

func TestCheckSensorIntegrity(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	samples := []Sample{
		{Timestamp: t0, Latitude: ptr(0.0), Longitude: ptr(0.0)},
		{Timestamp: t0.Add(5 * time.Minute), Latitude: ptr(0.0), Longitude: ptr(0.01)},
		{Timestamp: t0.Add(30 * time.Minute), Latitude: ptr(0.0), Longitude: ptr(1.0)},
		{Timestamp: t0.Add(35 * time.Minute)},
	}

	got := CheckSensorIntegrity(samples, 0, 0)
	assert.True(t, got.Anomaly)
	assert.Equal(t, 4, got.ReadingsAnalyzed)
	require.Len(t, got.Anomalies, 2)

	gap := got.Anomalies[0]
	assert.Equal(t, "reporting_gap", gap.Type)
	assert.Equal(t, "high", gap.Severity)
	require.NotNil(t, gap.GapSeconds)
	assert.Equal(t, 1500.0, *gap.GapSeconds)
	assert.Equal(t, "Reporting gap of 25 minutes detected", gap.Message)

	jump := got.Anomalies[1]
	assert.Equal(t, "position_jump", jump.Type)
	assert.Equal(t, "critical", jump.Severity)
	require.NotNil(t, jump.DistanceKm)
	assert.InDelta(t, 110.08, *jump.DistanceKm, 0.05)

	few := CheckSensorIntegrity(samples[:1], 300, 3)
	assert.False(t, few.Anomaly)
	assert.Equal(t, "Insufficient readings for analysis", few.Message)
}

func TestSealID(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	id := SealID("SHP-001", "S-42", at)
	assert.True(t, strings.HasPrefix(id, "SEAL-"))
	assert.Len(t, id, len("SEAL-")+16)
	assert.Equal(t, strings.ToUpper(id), id)
	assert.Equal(t, id, SealID("SHP-001", "S-42", at.In(time.FixedZone("X", 3600))))
	assert.NotEqual(t, id, SealID("SHP-001", "S-43", at))
}

func TestVolumeVariancePct(t *testing.T) {
	assert.Nil(t, VolumeVariancePct(nil, ptr(100.0)))
	assert.Nil(t, VolumeVariancePct(ptr(100.0), ptr(0.0)))
	v := VolumeVariancePct(ptr(96.5), ptr(100.0))
	require.NotNil(t, v)
	assert.InDelta(t, -3.5, *v, 1e-9)
}

func custodyEvent(at time.Time, from, to string) shipment.CustodyEvent {
	ev := shipment.CustodyEvent{
		ShipmentID: 7,
		EventType:  "handover",
		Timestamp:  at,
		Location:   "Terminal " + to,
		FromParty:  from,
		ToParty:    to,
		SealStatus: "intact",
	}
	ev.DigitalSignature = CustodySignature(ev)
	return ev
}

func TestBuildCustodyChainIntact(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	// Deliberately out of order; the chain sorts by time.
	events := []shipment.CustodyEvent{
		custodyEvent(t0.Add(2*time.Hour), "Carrier", "Consignee"),
		custodyEvent(t0, "Shipper", "Carrier"),
	}

	chain := BuildCustodyChain(events)
	assert.Equal(t, IntegrityIntact, chain.Integrity)
	assert.Equal(t, 2, chain.ChainLength)
	assert.Empty(t, chain.Gaps)
	require.Len(t, chain.Events, 2)
	assert.Equal(t, "Shipper", chain.Events[0].FromParty)
	assert.Equal(t, 1, chain.Events[0].Sequence)
	assert.True(t, chain.Events[1].SignatureValid)

	report := BuildComplianceReport(shipment.Shipment{ShipmentRef: "SHP-7"}, chain, t0)
	assert.Equal(t, "pass", report.ComplianceStatus)
	assert.Equal(t, "chain_of_custody", report.ReportType)
	assert.Equal(t, 2, report.TotalCustodyEvents)
}

func TestBuildCustodyChainFindsIssues(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := custodyEvent(t0, "Shipper", "Carrier")
	second := custodyEvent(t0.Add(time.Hour), "Broker", "Consignee")
	second.SealStatus = "broken"
	second.DigitalSignature = "tampered"

	chain := BuildCustodyChain([]shipment.CustodyEvent{first, second})
	assert.Equal(t, IntegrityCompromised, chain.Integrity)
	want := []CustodyGap{{
		BetweenEvents: [2]int{1, 2},
		ExpectedFrom:  "Carrier",
		ActualFrom:    "Broker",
		Message:       "Custody gap: expected handover from 'Carrier' but received from 'Broker'",
	}}
	if diff := cmp.Diff(want, chain.Gaps); diff != "" {
		t.Fatalf("gaps mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, chain.SealIssues, 1)
	assert.Equal(t, "broken", chain.SealIssues[0].Status)
	assert.False(t, chain.Events[1].SignatureValid)

	report := BuildComplianceReport(shipment.Shipment{ShipmentRef: "SHP-7"}, chain, t0)
	assert.Equal(t, "review_required", report.ComplianceStatus)
}

func TestBuildCustodyChainVolumeWarning(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ev := custodyEvent(t0, "Shipper", "Carrier")
	ev.MeasuredVolume = ptr(97.0)
	ev.ExpectedVolume = ptr(100.0)
	ev.VolumeVariancePct = VolumeVariancePct(ev.MeasuredVolume, ev.ExpectedVolume)

	chain := BuildCustodyChain([]shipment.CustodyEvent{ev})
	assert.Equal(t, IntegrityWarning, chain.Integrity)
	require.Len(t, chain.VolumeIssues, 1)

	assert.Equal(t, IntegrityEmpty, BuildCustodyChain(nil).Integrity)
}
