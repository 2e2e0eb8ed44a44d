package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReportingCurrency is the only currency the 182 return may be filed in.
const ReportingCurrency = "EUR"

var (
	// ErrInvalidCurrency is raised on save when the report currency is not EUR.
	ErrInvalidCurrency = errors.New("aeat 182 reports must use EUR")

	// ErrInvalidTransition is raised when a workflow action is invoked from a
	// state it is not reachable from.
	ErrInvalidTransition = errors.New("invalid report state transition")

	// ErrDuplicateReport is raised when a second report is created for the
	// same (company, fiscal year) pair.
	ErrDuplicateReport = errors.New("report already exists for company and fiscal year")
)

// State is the report workflow state.
type State string

const (
	StateDraft      State = "draft"
	StateCalculated State = "calculated"
	StateDone       State = "done"
	StateCancelled  State = "cancelled"
)

// transitions mirrors the workflow graph: draft→calculated→done, anything
// live may be cancelled, and calculated/cancelled may return to draft.
var transitions = map[State][]State{
	StateDraft:      {StateCalculated, StateCancelled},
	StateCalculated: {StateDraft, StateDone, StateCancelled},
	StateDone:       {StateCancelled},
	StateCancelled:  {StateDraft},
}

// CanTransition reports whether moving from s to next is a valid workflow step.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Presentation is how the declaration is submitted to the agency.
type Presentation string

const (
	PresentationPrinted Presentation = "printed"
	PresentationSupport Presentation = "support"
)

// DeclarantNature classifies the filing entity.
type DeclarantNature string

const (
	NatureNonProfit         DeclarantNature = "1"
	NatureFoundation        DeclarantNature = "2"
	NatureProtectedHeritage DeclarantNature = "3"
)

// DonationType marks the declaration as normal, complementary or substitutive.
type DonationType string

const (
	TypeNormal        DonationType = "N"
	TypeComplementary DonationType = "C"
	TypeSubstitutive  DonationType = "S"
)

// Label returns the long name the flat-file layout uses for the
// complementary/substitutive marker fields.
func (t DonationType) Label() string {
	switch t {
	case TypeComplementary:
		return "Complementary"
	case TypeSubstitutive:
		return "Substitutive"
	}
	return "Normal"
}

// PartyNature classifies the donor.
type PartyNature string

const (
	PartyPhysical    PartyNature = "F" // individual
	PartyArtificial  PartyNature = "J" // organization
	PartyIncomeAlloc PartyNature = "E" // entity under the income allocation regime
)

// Key is the authority-defined donation program classification.
type Key string

const (
	KeyA Key = "A" // donation outside priority programs
	KeyB Key = "B" // donation inside priority programs
	KeyC Key = "C" // contribution to protected heritage
	KeyD Key = "D" // provision of protected heritage
)

// Type-of-good and identification-of-good codes, meaningful only for keys
// C/D or in-kind donations.
const (
	GoodProperty   = "I"
	GoodSecurities = "V"
	GoodOther      = "O"

	GoodIDRealEstate = "NRC"
	GoodIDSecurities = "ISIN"
)

// Currency carries the reporting currency and its rounding precision.
type Currency struct {
	Code   string
	Digits int32
}

// EUR is the required reporting currency.
var EUR = Currency{Code: "EUR", Digits: 2}

// Round applies the currency's half-even rounding, matching the rounding
// the accounting ledger itself uses.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(c.Digits)
}

// DeductionScale holds the configurable deduction-tier parameters. The six
// percentages are keyed by donor nature (physical/artificial) and tier
// (first donation below/above the threshold, or pluriannual).
type DeductionScale struct {
	// LookbackYears is the number of immediately preceding tax periods a
	// donor must appear in for the pluriannual rate to apply.
	LookbackYears int

	// AmountThreshold separates the two first-donation tiers.
	AmountThreshold decimal.Decimal

	FirstLowPhysical    decimal.Decimal
	FirstHighPhysical   decimal.Decimal
	PluriannualPhysical decimal.Decimal

	FirstLowArtificial    decimal.Decimal
	FirstHighArtificial   decimal.Decimal
	PluriannualArtificial decimal.Decimal
}

// DefaultScale returns the statutory percentages in force for the 182 form.
func DefaultScale() DeductionScale {
	return DeductionScale{
		LookbackYears:         2,
		AmountThreshold:       decimal.NewFromInt(150),
		FirstLowPhysical:      decimal.NewFromInt(75),
		FirstHighPhysical:     decimal.NewFromInt(30),
		PluriannualPhysical:   decimal.NewFromInt(35),
		FirstLowArtificial:    decimal.NewFromInt(35),
		FirstHighArtificial:   decimal.NewFromInt(35),
		PluriannualArtificial: decimal.NewFromInt(40),
	}
}

// Report is one model-182 return, unique per (company, fiscal year).
type Report struct {
	ID        int64
	CompanyID int64

	// CompanyVAT is the last 9 characters of the company tax identifier.
	CompanyVAT   string
	CompanyName  string
	CompanyPhone string

	// FiscalYearCode is the four digits of the calendar year the
	// declaration is made for.
	FiscalYearCode int

	Presentation    Presentation
	DeclarantNature DeclarantNature

	// Protected-heritage identity, meaningful only when DeclarantNature is
	// NatureProtectedHeritage.
	ProtectedHeritageVAT  string
	ProtectedHeritageName string

	Type DonationType
	// Declaration numbers are required unless Type is normal.
	DeclarationNumber string
	PreviousNumber    string

	ContactName string
	Currency    Currency
	Scale       DeductionScale

	// AccountCodes designates the ledger accounts that feed the aggregation.
	AccountCodes []string

	State State
	Date  time.Time // stamped on calculate

	Parties []ReportParty

	// File holds the generated flat file once the report is done.
	File []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckCurrency enforces the EUR invariant. Called on every save.
func (r *Report) CheckCurrency() error {
	if r.Currency.Code != ReportingCurrency {
		return fmt.Errorf("%w: report %s uses %s", ErrInvalidCurrency, r.Name(), r.Currency.Code)
	}
	return nil
}

// Name is the human-readable report identifier.
func (r *Report) Name() string {
	return fmt.Sprintf("%s - %d", r.CompanyName, r.FiscalYearCode)
}

// Filename is the agency-mandated output file name.
func (r *Report) Filename() string {
	return fmt.Sprintf("aeat182-%d.txt", r.FiscalYearCode)
}

// DonorRecordCount is the number of donor lines attached to the report.
func (r *Report) DonorRecordCount() int { return len(r.Parties) }

// DonationTotal sums the donor-line amounts, currency-rounded.
func (r *Report) DonationTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Parties {
		total = total.Add(p.Amount)
	}
	return r.Currency.Round(total)
}

// TotalSheets is the printed sheet count: six donors per sheet plus the
// header sheet. The form counts the header sheet even when the donor
// count is an exact multiple of six.
func (r *Report) TotalSheets() int {
	return len(r.Parties)/6 + 1
}

// NewReport returns a draft report with the statutory defaults applied.
func NewReport(companyID int64, fiscalYearCode int) *Report {
	return &Report{
		CompanyID:       companyID,
		FiscalYearCode:  fiscalYearCode,
		Presentation:    PresentationPrinted,
		DeclarantNature: NatureFoundation,
		Type:            TypeNormal,
		Currency:        EUR,
		Scale:           DefaultScale(),
		State:           StateDraft,
	}
}

// ReportParty is one donor line on a report. Lines are always rebuilt from
// scratch by calculate; they are never edited incrementally.
type ReportParty struct {
	ID       int64
	ReportID int64

	PartyID int64
	// PartyVAT is the last 9 characters of the donor tax identifier, or
	// empty when the donor has none.
	PartyVAT          string
	RepresentativeVAT string
	PartyName         string

	Nature PartyNature

	// SubdivisionCode is the two-digit province code from the donor's
	// primary address, "00" when unknown.
	SubdivisionCode string

	Key    Key
	Amount decimal.Decimal

	// PercentageDeduction is computed by the classifier during calculate;
	// it is never user-entered. Unset for natures with no applicable tier.
	PercentageDeduction decimal.NullDecimal

	DonationInKind bool

	// Autonomous-community supplemental deduction: code and percentage are
	// required together.
	AutonomousCommunity    string
	AutonomousCommunityPct decimal.NullDecimal

	// Revocation is meaningful only for keys A and B.
	Revocation      bool
	RevokedExercise int // fiscal year of the revoked donation, 0 when unset

	// Good description, meaningful when key is C/D or the donation is
	// in kind.
	TypeOfGood           string
	IdentificationOfGood string
}
