package report

import (
	"context"
	"fmt"

	"github.com/csg33k/aeat182-generator/internal/domain"
	"github.com/csg33k/aeat182-generator/internal/ports"
)

// natureByPartyType maps the directory's legal-person type onto the form's
// donor nature codes. Unknown types leave the nature unset.
var natureByPartyType = map[string]domain.PartyNature{
	"organization": domain.PartyArtificial,
	"person":       domain.PartyPhysical,
}

// provisionalParties aggregates the ledger for one report and enriches each
// donor: identity, nature, region. Pure read and compute — nothing is
// persisted here. Reports with no designated accounts or no fiscal year
// yield an empty slice.
func (s *Service) provisionalParties(ctx context.Context, r *domain.Report, subdivisions map[ports.SubdivisionKey]string) ([]domain.ReportParty, error) {
	if len(r.AccountCodes) == 0 || r.FiscalYearCode == 0 {
		return nil, nil
	}

	totals, err := s.ledger.DonationTotals(ctx, r.AccountCodes, r.FiscalYearCode)
	if err != nil {
		return nil, fmt.Errorf("aggregate ledger for %s: %w", r.Name(), err)
	}

	parties := make([]domain.ReportParty, 0, len(totals))
	for _, t := range totals {
		party, err := s.parties.Party(ctx, t.PartyID)
		if err != nil {
			return nil, fmt.Errorf("resolve party %d: %w", t.PartyID, err)
		}

		vat := party.TaxID
		if len(vat) > 9 {
			vat = vat[len(vat)-9:]
		}

		subdivisionCode := "00"
		if party.CountryID != 0 && party.SubdivisionID != 0 {
			key := ports.SubdivisionKey{CountryID: party.CountryID, SubdivisionID: party.SubdivisionID}
			if code, ok := subdivisions[key]; ok {
				subdivisionCode = code
			}
		}

		parties = append(parties, domain.ReportParty{
			ReportID:        r.ID,
			PartyID:         party.ID,
			PartyVAT:        vat,
			PartyName:       party.Name,
			Nature:          natureByPartyType[party.Type],
			SubdivisionCode: subdivisionCode,
			Key:             domain.KeyA,
			Amount:          r.Currency.Round(t.Amount),
		})
	}
	return parties, nil
}
