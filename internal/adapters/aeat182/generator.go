// Package aeat182 serializes a calculated report into the model-182
// fixed-width flat file: one type-1 declarant record followed by one type-2
// record per donor line, CRLF-terminated, ISO-8859-1 encoded.
package aeat182

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/csg33k/aeat182-generator/internal/adapters/aeat182/spec"
	"github.com/csg33k/aeat182-generator/internal/domain"
)

type Generator struct{}

func New() *Generator { return &Generator{} }

// headerField pairs a layout field name with an optional getter. A getter
// returning ok=false leaves the field at the template default (blanks) —
// absent values are omitted, never written as a null marker.
type headerField struct {
	name string
	get  func(r *domain.Report) (string, bool)
}

// declarantFields is the ordered descriptor list for the type-1 record.
// The declaration-type marker is special-cased in buildDeclarant because
// its layout field name depends on the type's label.
var declarantFields = []headerField{
	{"RecordType", func(*domain.Report) (string, bool) { return "1", true }},
	{"Model", func(*domain.Report) (string, bool) { return spec.Model, true }},
	{"FiscalYearCode", func(r *domain.Report) (string, bool) {
		return strconv.Itoa(r.FiscalYearCode), r.FiscalYearCode != 0
	}},
	{"CompanyVAT", func(r *domain.Report) (string, bool) { return padAlpha(r.CompanyVAT, 9), r.CompanyVAT != "" }},
	{"CompanyName", func(r *domain.Report) (string, bool) { return padAlpha(r.CompanyName, 40), r.CompanyName != "" }},
	{"SupportType", func(r *domain.Report) (string, bool) { return supportType(r.Presentation) }},
	{"CompanyPhone", func(r *domain.Report) (string, bool) { return zeroPadDigits(r.CompanyPhone, 9), r.CompanyPhone != "" }},
	{"ContactName", func(r *domain.Report) (string, bool) { return padAlpha(r.ContactName, 40), r.ContactName != "" }},
	{"DeclarationNumber", func(r *domain.Report) (string, bool) {
		return zeroPadDigits(r.DeclarationNumber, 13), r.DeclarationNumber != ""
	}},
	{"PreviousNumber", func(r *domain.Report) (string, bool) {
		return zeroPadDigits(r.PreviousNumber, 13), r.PreviousNumber != ""
	}},
	{"DonorRecordCount", func(r *domain.Report) (string, bool) {
		return fmt.Sprintf("%09d", r.DonorRecordCount()), true
	}},
	{"DonationTotal", func(r *domain.Report) (string, bool) { return amountStr(r.DonationTotal(), 13), true }},
	{"DeclarantNature", func(r *domain.Report) (string, bool) {
		return string(r.DeclarantNature), r.DeclarantNature != ""
	}},
	{"ProtectedHeritageVAT", func(r *domain.Report) (string, bool) {
		return padAlpha(r.ProtectedHeritageVAT, 9), r.ProtectedHeritageVAT != ""
	}},
	{"ProtectedHeritageName", func(r *domain.Report) (string, bool) {
		return padAlpha(r.ProtectedHeritageName, 40), r.ProtectedHeritageName != ""
	}},
}

// donorField is the descriptor for type-2 record fields.
type donorField struct {
	name string
	get  func(r *domain.Report, p *domain.ReportParty) (string, bool)
}

var donorFields = []donorField{
	{"RecordType", func(*domain.Report, *domain.ReportParty) (string, bool) { return "2", true }},
	{"Model", func(*domain.Report, *domain.ReportParty) (string, bool) { return spec.Model, true }},
	// Fiscal year and declarant NIF are denormalized onto every donor
	// record per the agency design.
	{"FiscalYearCode", func(r *domain.Report, _ *domain.ReportParty) (string, bool) {
		return strconv.Itoa(r.FiscalYearCode), r.FiscalYearCode != 0
	}},
	{"CompanyVAT", func(r *domain.Report, _ *domain.ReportParty) (string, bool) {
		return padAlpha(r.CompanyVAT, 9), r.CompanyVAT != ""
	}},
	{"PartyVAT", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return padAlpha(p.PartyVAT, 9), p.PartyVAT != ""
	}},
	{"RepresentativeVAT", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return padAlpha(p.RepresentativeVAT, 9), p.RepresentativeVAT != ""
	}},
	{"PartyName", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return padAlpha(p.PartyName, 40), p.PartyName != ""
	}},
	{"SubdivisionCode", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return zeroPadDigits(p.SubdivisionCode, 2), p.SubdivisionCode != ""
	}},
	{"Key", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return string(p.Key), p.Key != ""
	}},
	{"PercentageDeduction", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		if !p.PercentageDeduction.Valid {
			return "", false
		}
		return amountStr(p.PercentageDeduction.Decimal, 3), true
	}},
	{"Amount", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return amountStr(p.Amount, 11), true
	}},
	{"DonationInKind", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return "X", p.DonationInKind
	}},
	{"AutonomousCommunity", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return zeroPadDigits(p.AutonomousCommunity, 2), p.AutonomousCommunity != ""
	}},
	{"AutonomousCommunityPct", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		if !p.AutonomousCommunityPct.Valid {
			return "", false
		}
		return amountStr(p.AutonomousCommunityPct.Decimal, 3), true
	}},
	{"Nature", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return string(p.Nature), p.Nature != ""
	}},
	{"Revocation", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return "X", p.Revocation
	}},
	{"RevokedExercise", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return strconv.Itoa(p.RevokedExercise), p.RevokedExercise != 0
	}},
	{"TypeOfGood", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return p.TypeOfGood, p.TypeOfGood != ""
	}},
	{"IdentificationOfGood", func(_ *domain.Report, p *domain.ReportParty) (string, bool) {
		return padAlpha(p.IdentificationOfGood, 20), p.IdentificationOfGood != ""
	}},
}

// Generate writes the complete flat file for r. Satisfies ports.FileGenerator.
func (g *Generator) Generate(ctx context.Context, r *domain.Report, w io.Writer) error {
	var out bytes.Buffer
	rec, err := g.buildDeclarant(r)
	if err != nil {
		return err
	}
	out.Write(rec)
	out.WriteString("\r\n")
	for i := range r.Parties {
		rec, err := g.buildDonor(r, &r.Parties[i])
		if err != nil {
			return fmt.Errorf("donor record %d: %w", i+1, err)
		}
		out.Write(rec)
		out.WriteString("\r\n")
	}
	_, err = w.Write(out.Bytes())
	return err
}

func (g *Generator) buildDeclarant(r *domain.Report) ([]byte, error) {
	b := newBuf()
	for _, f := range declarantFields {
		if v, ok := f.get(r); ok {
			if err := b.put(f.name, spec.Declarant, v); err != nil {
				return nil, err
			}
		}
	}
	// The declaration-type marker is written to the layout field named
	// after the type's label; normal declarations leave both blank.
	if r.Type != domain.TypeNormal {
		if err := b.put(r.Type.Label(), spec.Declarant, string(r.Type)); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}

func (g *Generator) buildDonor(r *domain.Report, p *domain.ReportParty) ([]byte, error) {
	b := newBuf()
	for _, f := range donorFields {
		if v, ok := f.get(r, p); ok {
			if err := b.put(f.name, spec.Donor, v); err != nil {
				return nil, err
			}
		}
	}
	return b.Bytes(), nil
}

func supportType(p domain.Presentation) (string, bool) {
	switch p {
	case domain.PresentationPrinted:
		return "P", true
	case domain.PresentationSupport:
		return "C", true
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Buffer
// ---------------------------------------------------------------------------

type fixedBuf struct{ data []byte }

func newBuf() *fixedBuf {
	d := make([]byte, spec.RecordLen)
	for i := range d {
		d[i] = ' '
	}
	return &fixedBuf{data: d}
}

// put looks up fieldName in fields, converts value to ISO-8859-1 and writes
// it at the field position. Encoding happens per field so byte positions stay
// exact regardless of the source text. Panics on an unknown field name; that
// is a generator bug, not user error.
func (b *fixedBuf) put(fieldName string, fields []spec.Field, value string) error {
	for _, f := range fields {
		if f.Name == fieldName {
			enc, err := latinize(value)
			if err != nil {
				return fmt.Errorf("field %s: %w", fieldName, err)
			}
			width := f.End - f.Start + 1
			if len(enc) > width {
				enc = enc[:width]
			}
			copy(b.data[f.Start-1:f.End], enc)
			return nil
		}
	}
	panic(fmt.Sprintf("aeat182: no field %q in layout", fieldName))
}

func (b *fixedBuf) Bytes() []byte { return b.data }

// ---------------------------------------------------------------------------
// Formatting helpers
// ---------------------------------------------------------------------------

// padAlpha trims and right-pads with spaces to n characters. Overlong values
// are left alone here; put truncates after Latin-1 conversion so a multi-byte
// rune never gets split.
func padAlpha(s string, n int) string {
	s = strings.TrimSpace(s)
	if c := utf8.RuneCountInString(s); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}

// zeroPadDigits strips non-digits and right-justifies with leading zeros
// to exactly n chars.
func zeroPadDigits(s string, n int) string {
	var builder strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}
	result := builder.String()
	if len(result) > n {
		return result[len(result)-n:]
	}
	return strings.Repeat("0", n-len(result)) + result
}

// amountStr formats a decimal as intDigits integer digits plus two implied
// decimals, zero-padded, no decimal point. Negative values write as zero;
// the form has no sign column.
func amountStr(d decimal.Decimal, intDigits int) string {
	if d.IsNegative() {
		d = decimal.Zero
	}
	s := d.Shift(2).Round(0).String()
	width := intDigits + 2
	if len(s) > width {
		return s[len(s)-width:]
	}
	return strings.Repeat("0", width-len(s)) + s
}
