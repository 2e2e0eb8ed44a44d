// Package pdf renders a human-readable summary of a model-182 return for
// the printed presentation mode: a declarant header followed by the donor
// table, six donors per page to match the form's sheet layout.
package pdf

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/csg33k/aeat182-generator/internal/domain"
)

const donorsPerPage = 6

// keyLabels are the short donation-key descriptions shown on the summary.
var keyLabels = map[domain.Key]string{
	domain.KeyA: "A - Outside priority programs",
	domain.KeyB: "B - Priority programs",
	domain.KeyC: "C - Protected heritage contribution",
	domain.KeyD: "D - Protected heritage provision",
}

// GenerateSummary writes the printed-presentation summary PDF to w.
func GenerateSummary(r *domain.Report, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("{nb}")

	pages := len(r.Parties)/donorsPerPage + 1
	for page := 0; page < pages; page++ {
		pdf.AddPage()
		drawHeader(pdf, r)
		start := page * donorsPerPage
		end := start + donorsPerPage
		if end > len(r.Parties) {
			end = len(r.Parties)
		}
		drawDonorTable(pdf, r, r.Parties[start:end])
	}

	return pdf.Output(w)
}

func drawHeader(pdf *fpdf.Fpdf, r *domain.Report) {
	pageW, _ := pdf.GetPageSize()
	marginL, marginT, marginR, _ := pdf.GetMargins()
	contentW := pageW - marginL - marginR

	pdf.SetFillColor(30, 30, 30)
	pdf.Rect(marginL, marginT, contentW, 10, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginL+2, marginT+1.5)
	pdf.CellFormat(contentW-4, 7, fmt.Sprintf("MODEL 182  DONATIONS REPORT %d", r.FiscalYearCode), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 7, "Page "+fmt.Sprint(pdf.PageNo())+" of {nb}", "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	y := marginT + 13
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetXY(marginL, y)
	pdf.CellFormat(contentW, 5.5, "DECLARANT", "LRT", 1, "L", true, 0, "")
	y += 5.5

	colHalf := contentW / 2
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(marginL, y)
	pdf.CellFormat(colHalf, 6, "Entity: "+r.CompanyName, "L", 0, "L", false, 0, "")
	pdf.CellFormat(colHalf, 6, "VAT: "+r.CompanyVAT, "R", 1, "L", false, 0, "")
	y += 6
	pdf.SetXY(marginL, y)
	pdf.CellFormat(colHalf, 6,
		fmt.Sprintf("Donors: %d    Sheets: %d", r.DonorRecordCount(), r.TotalSheets()),
		"LB", 0, "L", false, 0, "")
	pdf.CellFormat(colHalf, 6, "Total: "+r.DonationTotal().StringFixed(2)+" EUR", "RB", 1, "L", false, 0, "")
}

func drawDonorTable(pdf *fpdf.Fpdf, r *domain.Report, parties []domain.ReportParty) {
	pageW, _ := pdf.GetPageSize()
	marginL, marginT, marginR, _ := pdf.GetMargins()
	contentW := pageW - marginL - marginR
	y := marginT + 13 + 5.5 + 12 + 5

	nameW := contentW * 0.34
	vatW := contentW * 0.14
	keyW := contentW * 0.26
	amtW := contentW * 0.14
	pctW := contentW - nameW - vatW - keyW - amtW

	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 8.5)
	pdf.SetXY(marginL, y)
	pdf.CellFormat(nameW, 7, "Donor", "1", 0, "L", true, 0, "")
	pdf.CellFormat(vatW, 7, "VAT", "1", 0, "C", true, 0, "")
	pdf.CellFormat(keyW, 7, "Key", "1", 0, "L", true, 0, "")
	pdf.CellFormat(amtW, 7, "Amount", "1", 0, "C", true, 0, "")
	pdf.CellFormat(pctW, 7, "Deduction %", "1", 1, "C", true, 0, "")
	y += 7
	pdf.SetTextColor(0, 0, 0)

	rowH := 6.5
	for i := range parties {
		p := &parties[i]
		if i%2 == 0 {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetFont("Helvetica", "", 8.5)
		pdf.SetXY(marginL, y)
		pdf.CellFormat(nameW, rowH, p.PartyName, "1", 0, "L", true, 0, "")
		pdf.CellFormat(vatW, rowH, p.PartyVAT, "1", 0, "C", true, 0, "")
		pdf.CellFormat(keyW, rowH, keyLabels[p.Key], "1", 0, "L", true, 0, "")
		pdf.CellFormat(amtW, rowH, p.Amount.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.CellFormat(pctW, rowH, pctDisplay(p.PercentageDeduction), "1", 1, "R", true, 0, "")
		y += rowH
	}
}

func pctDisplay(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}
