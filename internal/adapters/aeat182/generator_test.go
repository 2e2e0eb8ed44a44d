package aeat182_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/csg33k/aeat182-generator/internal/adapters/aeat182"
	"github.com/csg33k/aeat182-generator/internal/adapters/aeat182/spec"
	"github.com/csg33k/aeat182-generator/internal/domain"
)

// extract returns the 1-based inclusive slice [start,end] of a record, the
// same coordinates the layout tables use.
func extract(rec []byte, start, end int) string {
	return string(rec[start-1 : end])
}

// records splits generator output into its fixed-width records, verifying
// the CRLF framing as it goes.
func records(t *testing.T, out []byte) [][]byte {
	t.Helper()
	if !bytes.HasSuffix(out, []byte("\r\n")) {
		t.Fatal("output does not end with CRLF")
	}
	lines := bytes.Split(bytes.TrimSuffix(out, []byte("\r\n")), []byte("\r\n"))
	for i, l := range lines {
		if len(l) != spec.RecordLen {
			t.Fatalf("record %d is %d bytes, want %d", i, len(l), spec.RecordLen)
		}
	}
	return lines
}

func testReport() *domain.Report {
	r := domain.NewReport(1, 2025)
	r.CompanyVAT = "G58818501"
	r.CompanyName = "Fundación Asistencia"
	r.CompanyPhone = "915551234"
	r.ContactName = "Pilar Ortega"
	r.State = domain.StateCalculated
	r.Parties = []domain.ReportParty{
		{
			PartyID:             7,
			PartyVAT:            "12345678Z",
			PartyName:           "José Muñoz Peça",
			Nature:              domain.PartyPhysical,
			SubdivisionCode:     "28",
			Key:                 domain.KeyA,
			Amount:              decimal.NewFromInt(120),
			PercentageDeduction: decimal.NewNullDecimal(decimal.NewFromInt(75)),
		},
	}
	return r
}

func generate(t *testing.T, r *domain.Report) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := aeat182.New().Generate(context.Background(), r, &buf); err != nil {
		t.Fatalf("generate: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateStructure(t *testing.T) {
	r := testReport()
	lines := records(t, generate(t, r))

	if got, want := len(lines), 1+len(r.Parties); got != want {
		t.Fatalf("got %d records, want %d", got, want)
	}
	if extract(lines[0], 1, 1) != "1" {
		t.Errorf("first record type = %q, want declarant", extract(lines[0], 1, 1))
	}
	if extract(lines[1], 1, 1) != "2" {
		t.Errorf("second record type = %q, want donor", extract(lines[1], 1, 1))
	}
	for i, l := range lines {
		if extract(l, 2, 4) != "182" {
			t.Errorf("record %d model = %q, want 182", i, extract(l, 2, 4))
		}
	}
}

func TestDeclarantRecord(t *testing.T) {
	lines := records(t, generate(t, testReport()))
	rec := lines[0]

	if got := extract(rec, 5, 8); got != "2025" {
		t.Errorf("fiscal year = %q", got)
	}
	if got := extract(rec, 9, 17); got != "G58818501" {
		t.Errorf("company VAT = %q", got)
	}
	// Accents are stripped and the name uppercased.
	if got := extract(rec, 18, 37); got != "FUNDACION ASISTENCIA" {
		t.Errorf("company name = %q", got)
	}
	if got := extract(rec, 58, 58); got != "P" {
		t.Errorf("support type = %q, want P for printed presentation", got)
	}
	if got := extract(rec, 136, 144); got != "000000001" {
		t.Errorf("donor record count = %q", got)
	}
	// 120.00 EUR, thirteen integer digits plus two implied decimals.
	if got := extract(rec, 145, 159); got != "000000000012000" {
		t.Errorf("donation total = %q", got)
	}
	if got := extract(rec, 160, 160); got != "2" {
		t.Errorf("declarant nature = %q, want foundation default", got)
	}
	// Normal declarations leave both type markers blank.
	if got := extract(rec, 121, 122); got != "  " {
		t.Errorf("type markers = %q, want blanks", got)
	}
	if got := extract(rec, 210, 250); got != strings.Repeat(" ", 41) {
		t.Errorf("trailing filler not blank: %q", got)
	}
}

func TestDeclarationTypeMarkers(t *testing.T) {
	r := testReport()
	r.Type = domain.TypeComplementary
	r.DeclarationNumber = "1820000000013"
	rec := records(t, generate(t, r))[0]

	if got := extract(rec, 121, 121); got != "C" {
		t.Errorf("complementary marker = %q", got)
	}
	if got := extract(rec, 122, 122); got != " " {
		t.Errorf("substitutive marker = %q, want blank", got)
	}
	if got := extract(rec, 108, 120); got != "1820000000013" {
		t.Errorf("declaration number = %q", got)
	}

	r.Type = domain.TypeSubstitutive
	r.PreviousNumber = "1820000000001"
	rec = records(t, generate(t, r))[0]

	if got := extract(rec, 121, 121); got != " " {
		t.Errorf("complementary marker = %q, want blank", got)
	}
	if got := extract(rec, 122, 122); got != "S" {
		t.Errorf("substitutive marker = %q", got)
	}
	if got := extract(rec, 123, 135); got != "1820000000001" {
		t.Errorf("previous number = %q", got)
	}
}

func TestDonorRecord(t *testing.T) {
	r := testReport()
	lines := records(t, generate(t, r))
	rec := lines[1]

	// Fiscal year and declarant VAT repeat on every donor record.
	if got := extract(rec, 5, 8); got != "2025" {
		t.Errorf("fiscal year = %q", got)
	}
	if got := extract(rec, 9, 17); got != "G58818501" {
		t.Errorf("company VAT = %q", got)
	}
	if got := extract(rec, 18, 26); got != "12345678Z" {
		t.Errorf("party VAT = %q", got)
	}
	// Ñ and Ç survive normalization; output is ISO-8859-1, so compare raw
	// bytes at the name field.
	wantName := append([]byte("JOSE MU"), 0xD1)          // JOSE MUÑ
	wantName = append(wantName, 'O', 'Z', ' ', 'P', 'E') // OZ PE
	wantName = append(wantName, 0xC7, 'A')               // ÇA
	if got := rec[35 : 35+len(wantName)]; !bytes.Equal(got, wantName) {
		t.Errorf("party name bytes = %v, want %v", got, wantName)
	}
	if got := extract(rec, 76, 77); got != "28" {
		t.Errorf("subdivision = %q", got)
	}
	if got := extract(rec, 78, 78); got != "A" {
		t.Errorf("key = %q", got)
	}
	if got := extract(rec, 79, 83); got != "07500" {
		t.Errorf("deduction percentage = %q", got)
	}
	if got := extract(rec, 84, 96); got != "0000000012000" {
		t.Errorf("amount = %q", got)
	}
	if got := extract(rec, 105, 105); got != "F" {
		t.Errorf("nature = %q", got)
	}
}

func TestDonorOptionalFields(t *testing.T) {
	r := testReport()
	p := &r.Parties[0]
	p.PercentageDeduction = decimal.NullDecimal{}
	p.DonationInKind = true
	p.Revocation = true
	p.RevokedExercise = 2023
	p.TypeOfGood = domain.GoodProperty
	p.IdentificationOfGood = "NRC 4711"
	rec := records(t, generate(t, r))[1]

	if got := extract(rec, 79, 83); got != "     " {
		t.Errorf("unset percentage = %q, want blanks", got)
	}
	if got := extract(rec, 97, 97); got != "X" {
		t.Errorf("in-kind marker = %q", got)
	}
	if got := extract(rec, 106, 106); got != "X" {
		t.Errorf("revocation marker = %q", got)
	}
	if got := extract(rec, 107, 110); got != "2023" {
		t.Errorf("revoked exercise = %q", got)
	}
	if got := extract(rec, 111, 111); got != "I" {
		t.Errorf("type of good = %q", got)
	}
	if got := extract(rec, 112, 131); got != "NRC 4711            " {
		t.Errorf("identification of good = %q", got)
	}
}

func TestNegativeAmountWritesZero(t *testing.T) {
	r := testReport()
	r.Parties[0].Amount = decimal.NewFromInt(-50)
	rec := records(t, generate(t, r))[1]

	if got := extract(rec, 84, 96); got != "0000000000000" {
		t.Errorf("negative amount = %q, want zeros", got)
	}
}

func TestUnrepresentableCharacterFails(t *testing.T) {
	r := testReport()
	r.Parties[0].PartyName = "Fundación €uropa"

	var buf bytes.Buffer
	err := aeat182.New().Generate(context.Background(), r, &buf)
	if err == nil {
		t.Fatal("expected an encoding error for a non-Latin-1 character")
	}
	if !strings.Contains(err.Error(), "ISO-8859-1") {
		t.Errorf("error %q does not name the target charset", err)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	r := testReport()
	first := generate(t, r)
	second := generate(t, r)
	if !bytes.Equal(first, second) {
		t.Error("two generations of the same report differ")
	}
}
