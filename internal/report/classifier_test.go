package report

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/aeat182-generator/internal/domain"
	"github.com/csg33k/aeat182-generator/internal/ports"
)

// stubHistory records lookups so tests can assert the history is only
// consulted when a branch actually needs it.
type stubHistory struct {
	prior []ports.PriorDonation
	err   error
	calls int
}

func (h *stubHistory) PriorDonations(_ context.Context, _ string, _ []int) ([]ports.PriorDonation, error) {
	h.calls++
	return h.prior, h.err
}

func classifyLine(t *testing.T, history ports.DonationHistory, nature domain.PartyNature, amount int64) decimal.NullDecimal {
	t.Helper()
	r := domain.NewReport(1, 2025)
	p := &domain.ReportParty{
		PartyVAT: "12345678Z",
		Nature:   nature,
		Amount:   decimal.NewFromInt(amount),
	}
	pct, err := classify(context.Background(), history, r, p)
	require.NoError(t, err)
	return pct
}

func prior(year int, amount int64) ports.PriorDonation {
	return ports.PriorDonation{FiscalYearCode: year, Amount: decimal.NewFromInt(amount)}
}

func TestClassifyPhysicalBelowThreshold(t *testing.T) {
	h := &stubHistory{prior: []ports.PriorDonation{prior(2024, 100), prior(2023, 100)}}

	pct := classifyLine(t, h, domain.PartyPhysical, 100)

	require.True(t, pct.Valid)
	assert.True(t, pct.Decimal.Equal(decimal.NewFromInt(75)), "got %s", pct.Decimal)
	// The threshold tier short-circuits; the lookback must never run.
	assert.Zero(t, h.calls)
}

func TestClassifyPhysicalAboveThresholdFirstTime(t *testing.T) {
	h := &stubHistory{}

	pct := classifyLine(t, h, domain.PartyPhysical, 200)

	require.True(t, pct.Valid)
	assert.True(t, pct.Decimal.Equal(decimal.NewFromInt(30)), "got %s", pct.Decimal)
	assert.Equal(t, 1, h.calls)
}

func TestClassifyPhysicalPluriannual(t *testing.T) {
	h := &stubHistory{prior: []ports.PriorDonation{prior(2024, 200), prior(2023, 180)}}

	pct := classifyLine(t, h, domain.PartyPhysical, 200)

	require.True(t, pct.Valid)
	assert.True(t, pct.Decimal.Equal(decimal.NewFromInt(35)), "got %s", pct.Decimal)
}

// An organization donor with a qualifying history gets the pluriannual rate
// regardless of amount; the tier order differs from individuals.
func TestClassifyArtificialPluriannualBeforeThreshold(t *testing.T) {
	// Below the threshold.
	h := &stubHistory{prior: []ports.PriorDonation{prior(2024, 100), prior(2023, 100)}}
	pct := classifyLine(t, h, domain.PartyArtificial, 100)
	require.True(t, pct.Valid)
	assert.True(t, pct.Decimal.Equal(decimal.NewFromInt(40)), "got %s", pct.Decimal)
	assert.Equal(t, 1, h.calls)

	// Above the threshold with equal amounts across the lookback.
	h = &stubHistory{prior: []ports.PriorDonation{prior(2024, 500), prior(2023, 500)}}
	pct = classifyLine(t, h, domain.PartyArtificial, 500)
	require.True(t, pct.Valid)
	assert.True(t, pct.Decimal.Equal(decimal.NewFromInt(40)), "got %s", pct.Decimal)
}

func TestClassifyArtificialFirstTime(t *testing.T) {
	h := &stubHistory{}

	pct := classifyLine(t, h, domain.PartyArtificial, 500)

	require.True(t, pct.Valid)
	assert.True(t, pct.Decimal.Equal(decimal.NewFromInt(35)), "got %s", pct.Decimal)
}

func TestClassifyIncomeAllocationHasNoTier(t *testing.T) {
	h := &stubHistory{}

	pct := classifyLine(t, h, domain.PartyIncomeAlloc, 500)

	assert.False(t, pct.Valid)
	assert.Zero(t, h.calls)
}

func TestClassifyHistoryErrorPropagates(t *testing.T) {
	h := &stubHistory{err: errors.New("history unavailable")}
	r := domain.NewReport(1, 2025)
	p := &domain.ReportParty{Nature: domain.PartyPhysical, Amount: decimal.NewFromInt(200)}

	_, err := classify(context.Background(), h, r, p)
	assert.ErrorContains(t, err, "history unavailable")
}

func TestPluriannualApplicable(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		prior   []ports.PriorDonation
		want    bool
	}{
		{
			name:    "non-increasing amounts qualify",
			current: 200,
			prior:   []ports.PriorDonation{prior(2024, 200), prior(2023, 150)},
			want:    true,
		},
		{
			name:    "equal amounts qualify",
			current: 200,
			prior:   []ports.PriorDonation{prior(2024, 200), prior(2023, 200)},
			want:    true,
		},
		{
			name:    "increase walking backward disqualifies",
			current: 90,
			prior:   []ports.PriorDonation{prior(2024, 80), prior(2023, 100)},
			want:    false,
		},
		{
			name:    "current below most recent prior disqualifies",
			current: 90,
			prior:   []ports.PriorDonation{prior(2024, 100), prior(2023, 80)},
			want:    false,
		},
		{
			name:    "missing year disqualifies",
			current: 200,
			prior:   []ports.PriorDonation{prior(2024, 200)},
			want:    false,
		},
		{
			name:    "no history disqualifies",
			current: 200,
			prior:   nil,
			want:    false,
		},
		{
			name:    "prior above current disqualifies",
			current: 100,
			prior:   []ports.PriorDonation{prior(2024, 150), prior(2023, 100)},
			want:    false,
		},
		{
			name:    "multiple lines in one year count as one covered year",
			current: 200,
			prior:   []ports.PriorDonation{prior(2024, 100), prior(2024, 90)},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &stubHistory{prior: tt.prior}
			got, err := pluriannualApplicable(context.Background(), h, 2, 2025, "12345678Z", decimal.NewFromInt(tt.current))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPluriannualZeroLookbackNeverApplies(t *testing.T) {
	h := &stubHistory{prior: []ports.PriorDonation{prior(2024, 200)}}
	got, err := pluriannualApplicable(context.Background(), h, 0, 2025, "12345678Z", decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.False(t, got)
	assert.Zero(t, h.calls)
}
