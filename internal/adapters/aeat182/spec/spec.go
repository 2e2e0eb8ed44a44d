// Package spec defines the model-182 flat-file record layout per the AEAT
// published design ("diseños físicos y lógicos del modelo 182"). Two record
// types exist: type 1 (declarant/presenter) and type 2 (donor), both 250
// bytes. Field positions follow the BOE order for the model; the layout is
// an external versioned schema this module consumes, not owns.
package spec

const (
	// RecordLen is the fixed byte length of every record.
	RecordLen = 250

	// Model is the form number written at positions 2-4 of every record.
	Model = "182"
)

type Field struct {
	Name        string
	Start       int
	End         int
	Type        FieldType
	Required    bool
	Description string
}

func (f Field) Len() int { return f.End - f.Start + 1 }

type FieldType int

const (
	Alpha   FieldType = iota // left-justified, space-filled, uppercase
	Numeric                  // right-justified, zero-filled digits only
	Amount                   // zero-padded cents-style integer, no decimal point
	Fixed                    // literal constant
	Blank                    // must be spaces
)

// Declarant is the type-1 (presenter) record layout.
var Declarant = []Field{
	{Name: "RecordType", Start: 1, End: 1, Type: Fixed, Required: true, Description: "Constant '1'"},
	{Name: "Model", Start: 2, End: 4, Type: Fixed, Required: true, Description: "Constant '182'"},
	{Name: "FiscalYearCode", Start: 5, End: 8, Type: Numeric, Required: true, Description: "Four-digit exercise year"},
	{Name: "CompanyVAT", Start: 9, End: 17, Type: Alpha, Required: true, Description: "Declarant NIF, 9 chars"},
	{Name: "CompanyName", Start: 18, End: 57, Type: Alpha, Required: true, Description: "Declarant name, 40 chars"},
	{Name: "SupportType", Start: 58, End: 58, Type: Alpha, Required: false, Description: "P=printed C=support"},
	{Name: "CompanyPhone", Start: 59, End: 67, Type: Numeric, Required: false, Description: "Contact phone, 9 digits"},
	{Name: "ContactName", Start: 68, End: 107, Type: Alpha, Required: false, Description: "Contact name and surname, 40 chars"},
	{Name: "DeclarationNumber", Start: 108, End: 120, Type: Numeric, Required: false, Description: "Declaration number, 13 digits"},
	{Name: "Complementary", Start: 121, End: 121, Type: Alpha, Required: false, Description: "'C' for complementary declarations"},
	{Name: "Substitutive", Start: 122, End: 122, Type: Alpha, Required: false, Description: "'S' for substitutive declarations"},
	{Name: "PreviousNumber", Start: 123, End: 135, Type: Numeric, Required: false, Description: "Previous declaration number, 13 digits"},
	{Name: "DonorRecordCount", Start: 136, End: 144, Type: Numeric, Required: true, Description: "Total type-2 records, 9 digits zero-padded"},
	{Name: "DonationTotal", Start: 145, End: 159, Type: Amount, Required: true, Description: "Total donation amount, 13 integer + 2 decimal digits"},
	{Name: "DeclarantNature", Start: 160, End: 160, Type: Alpha, Required: false, Description: "1=non-profit 2=foundation 3=protected heritage"},
	{Name: "ProtectedHeritageVAT", Start: 161, End: 169, Type: Alpha, Required: false, Description: "Protected heritage NIF"},
	{Name: "ProtectedHeritageName", Start: 170, End: 209, Type: Alpha, Required: false, Description: "Protected heritage name, 40 chars"},
	{Name: "Blank210", Start: 210, End: 250, Type: Blank, Required: false, Description: "Reserved"},
}

// Donor is the type-2 (declared party) record layout. Fiscal year and
// declarant NIF are re-stamped on every donor record per the agency design.
var Donor = []Field{
	{Name: "RecordType", Start: 1, End: 1, Type: Fixed, Required: true, Description: "Constant '2'"},
	{Name: "Model", Start: 2, End: 4, Type: Fixed, Required: true, Description: "Constant '182'"},
	{Name: "FiscalYearCode", Start: 5, End: 8, Type: Numeric, Required: true, Description: "Four-digit exercise year"},
	{Name: "CompanyVAT", Start: 9, End: 17, Type: Alpha, Required: true, Description: "Declarant NIF, repeated on every donor record"},
	{Name: "PartyVAT", Start: 18, End: 26, Type: Alpha, Required: false, Description: "Donor NIF, 9 chars"},
	{Name: "RepresentativeVAT", Start: 27, End: 35, Type: Alpha, Required: false, Description: "Legal representative NIF"},
	{Name: "PartyName", Start: 36, End: 75, Type: Alpha, Required: true, Description: "Donor name, 40 chars"},
	{Name: "SubdivisionCode", Start: 76, End: 77, Type: Numeric, Required: true, Description: "Two-digit province code, 00 when unknown"},
	{Name: "Key", Start: 78, End: 78, Type: Alpha, Required: true, Description: "Donation key A-D"},
	{Name: "PercentageDeduction", Start: 79, End: 83, Type: Amount, Required: false, Description: "Deduction percentage, 3 integer + 2 decimal digits"},
	{Name: "Amount", Start: 84, End: 96, Type: Amount, Required: true, Description: "Donation amount, 11 integer + 2 decimal digits"},
	{Name: "DonationInKind", Start: 97, End: 97, Type: Alpha, Required: false, Description: "'X' for donations in kind"},
	{Name: "AutonomousCommunity", Start: 98, End: 99, Type: Numeric, Required: false, Description: "Autonomous community deduction code"},
	{Name: "AutonomousCommunityPct", Start: 100, End: 104, Type: Amount, Required: false, Description: "Autonomous community deduction percentage"},
	{Name: "Nature", Start: 105, End: 105, Type: Alpha, Required: true, Description: "F=physical J=artificial E=income allocation"},
	{Name: "Revocation", Start: 106, End: 106, Type: Alpha, Required: false, Description: "'X' when the donation was revoked (keys A/B)"},
	{Name: "RevokedExercise", Start: 107, End: 110, Type: Numeric, Required: false, Description: "Exercise year of the revoked donation"},
	{Name: "TypeOfGood", Start: 111, End: 111, Type: Alpha, Required: false, Description: "I=property V=securities O=other"},
	{Name: "IdentificationOfGood", Start: 112, End: 131, Type: Alpha, Required: false, Description: "Registry reference or ISIN, 20 chars"},
	{Name: "Blank132", Start: 132, End: 250, Type: Blank, Required: false, Description: "Reserved"},
}
