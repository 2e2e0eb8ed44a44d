package ports

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"github.com/csg33k/aeat182-generator/internal/domain"
)

// LedgerTotal is one aggregated ledger row: net credit minus debit for a
// donor on a designated account within the fiscal year.
type LedgerTotal struct {
	PartyID int64
	Amount  decimal.Decimal
}

// LedgerSource reads the host ERP's accounting ledger.
type LedgerSource interface {
	// DonationTotals sums credit-debit per (account, party) for lines whose
	// account is in accountCodes, whose period belongs to the fiscal year,
	// and whose party is non-null.
	DonationTotals(ctx context.Context, accountCodes []string, fiscalYearCode int) ([]LedgerTotal, error)
}

// Party is the donor identity as known by the party directory.
type Party struct {
	ID    int64
	TaxID string
	Name  string
	// Type is "person" or "organization"; other values leave the donor
	// nature unset.
	Type string
	// Primary address; zero IDs mean the component is absent.
	CountryID     int64
	SubdivisionID int64
}

// PartyDirectory resolves donor identity, legal type and primary address.
type PartyDirectory interface {
	Party(ctx context.Context, id int64) (*Party, error)
}

// SubdivisionKey identifies a (country, subdivision) pair.
type SubdivisionKey struct {
	CountryID     int64
	SubdivisionID int64
}

// SubdivisionResolver maps administrative regions to the two-digit codes
// used on the form. The map is fetched once per calculation.
type SubdivisionResolver interface {
	SubdivisionCodes(ctx context.Context) (map[SubdivisionKey]string, error)
}

// PriorDonation is a donor line from a previous year's report, used by the
// pluriannual lookback.
type PriorDonation struct {
	ReportID       int64
	FiscalYearCode int
	Amount         decimal.Decimal
}

// DonationHistory reads donor lines from prior reports.
type DonationHistory interface {
	// PriorDonations returns lines for the given donor VAT whose report
	// fiscal year is in years.
	PriorDonations(ctx context.Context, partyVAT string, years []int) ([]PriorDonation, error)
}

// ReportRepository persists reports and their donor lines. Donor lines are
// never updated in place: they are deleted and recreated as a whole.
type ReportRepository interface {
	CreateReport(ctx context.Context, r *domain.Report) error
	GetReport(ctx context.Context, id int64) (*domain.Report, error)
	ListReports(ctx context.Context) ([]domain.Report, error)
	UpdateReport(ctx context.Context, r *domain.Report) error
	DeleteReport(ctx context.Context, id int64) error

	// DeleteParties removes every donor line of the report.
	DeleteParties(ctx context.Context, reportID int64) error
	// ReplaceParties deletes the report's donor lines and bulk-creates the
	// given ones within one transaction.
	ReplaceParties(ctx context.Context, reportID int64, parties []domain.ReportParty) error

	// InTransaction runs fn against a repository bound to one transaction.
	// Any error rolls the whole batch back; there is no partial
	// per-report persistence.
	InTransaction(ctx context.Context, fn func(ReportRepository) error) error
}

// FileGenerator writes the agency flat file for a report.
type FileGenerator interface {
	Generate(ctx context.Context, r *domain.Report, w io.Writer) error
}
