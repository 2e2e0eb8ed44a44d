package report

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/csg33k/aeat182-generator/internal/domain"
	"github.com/csg33k/aeat182-generator/internal/ports"
)

// pluriannualCheck is evaluated lazily so branches that never need the
// donation history never query it.
type pluriannualCheck func() (bool, error)

// classifyPhysical selects the deduction rate for an individual donor.
// The threshold test runs before the pluriannual test: a small recurring
// donation still gets the first-low rate.
func classifyPhysical(scale domain.DeductionScale, amount decimal.Decimal, pluriannual pluriannualCheck) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(scale.AmountThreshold) {
		return scale.FirstLowPhysical, nil
	}
	ok, err := pluriannual()
	if err != nil {
		return decimal.Zero, err
	}
	if ok {
		return scale.PluriannualPhysical, nil
	}
	return scale.FirstHighPhysical, nil
}

// classifyArtificial selects the deduction rate for an organization donor.
// Unlike the physical branch, the pluriannual test runs before the
// threshold test: a recurring donor gets the pluriannual rate regardless
// of amount. The asymmetry is a statutory rule, not an accident; keep the
// two functions separate.
func classifyArtificial(scale domain.DeductionScale, amount decimal.Decimal, pluriannual pluriannualCheck) (decimal.Decimal, error) {
	ok, err := pluriannual()
	if err != nil {
		return decimal.Zero, err
	}
	if ok {
		return scale.PluriannualArtificial, nil
	}
	if amount.LessThanOrEqual(scale.AmountThreshold) {
		return scale.FirstLowArtificial, nil
	}
	return scale.FirstHighArtificial, nil
}

// classify returns the deduction percentage for a provisional donor line,
// or an invalid NullDecimal for natures with no applicable tier.
func classify(ctx context.Context, history ports.DonationHistory, r *domain.Report, p *domain.ReportParty) (decimal.NullDecimal, error) {
	check := func() (bool, error) {
		return pluriannualApplicable(ctx, history, r.Scale.LookbackYears, r.FiscalYearCode, p.PartyVAT, p.Amount)
	}
	var (
		pct decimal.Decimal
		err error
	)
	switch p.Nature {
	case domain.PartyPhysical:
		pct, err = classifyPhysical(r.Scale, p.Amount, check)
	case domain.PartyArtificial:
		pct, err = classifyArtificial(r.Scale, p.Amount, check)
	default:
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: pct, Valid: true}, nil
}

// pluriannualApplicable reports whether the donor qualifies for the
// pluriannual rate: donor lines must exist in every one of the lookback
// years immediately preceding the report year (exact year match — a donor
// who skipped a year never qualifies, even if referenced elsewhere; policy
// edge worth rechecking against the agency text), and amounts must be
// non-increasing walking backward from the current year.
func pluriannualApplicable(ctx context.Context, history ports.DonationHistory, lookback, fiscalYearCode int, partyVAT string, amount decimal.Decimal) (bool, error) {
	if lookback <= 0 {
		return false, nil
	}
	years := make([]int, 0, lookback)
	year := fiscalYearCode
	for i := 0; i < lookback; i++ {
		year--
		years = append(years, year)
	}

	prior, err := history.PriorDonations(ctx, partyVAT, years)
	if err != nil {
		return false, err
	}

	covered := make(map[int]bool, len(prior))
	for _, d := range prior {
		covered[d.FiscalYearCode] = true
	}
	if len(covered) != lookback {
		return false, nil
	}

	// Most recent prior year first; equal amounts pass, any increase
	// walking backward disqualifies.
	sort.Slice(prior, func(i, j int) bool {
		return prior[i].FiscalYearCode > prior[j].FiscalYearCode
	})
	current := amount
	for _, d := range prior {
		if d.Amount.GreaterThan(current) {
			return false, nil
		}
		current = d.Amount
	}
	return true, nil
}
