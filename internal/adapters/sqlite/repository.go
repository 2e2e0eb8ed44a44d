// Package sqlite persists reports and donor lines and answers the read-side
// ports (ledger aggregation, party directory, subdivision map, donation
// history) against the host ERP's tables.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/csg33k/aeat182-generator/internal/domain"
	"github.com/csg33k/aeat182-generator/internal/ports"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// methods run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
	q  dbtx
}

// New opens the SQLite database. Schema migrations are managed by dbmate;
// run `mage dbup` before first use.
func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing handle; used by tests.
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db, q: db}
}

// InTransaction runs fn against a transaction-bound repository. Already
// inside a transaction it just runs fn.
func (r *Repository) InTransaction(ctx context.Context, fn func(ports.ReportRepository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&Repository{db: r.db, q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ── Reports ───────────────────────────────────────────────────────────────────

const reportColumns = `id, company_id, company_vat, company_name, company_phone,
	fiscalyear_code, presentation, declarant_nature,
	protected_heritage_vat, protected_heritage_name,
	type, declaration_number, previous_number, contact_name,
	currency_code, currency_digits,
	lookback_years, amount_threshold,
	first_low_physical, first_high_physical, pluriannual_physical,
	first_low_artificial, first_high_artificial, pluriannual_artificial,
	state, date, file, created_at, updated_at`

func (r *Repository) CreateReport(ctx context.Context, rep *domain.Report) error {
	now := time.Now()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO reports (
			company_id, company_vat, company_name, company_phone,
			fiscalyear_code, presentation, declarant_nature,
			protected_heritage_vat, protected_heritage_name,
			type, declaration_number, previous_number, contact_name,
			currency_code, currency_digits,
			lookback_years, amount_threshold,
			first_low_physical, first_high_physical, pluriannual_physical,
			first_low_artificial, first_high_artificial, pluriannual_artificial,
			state, date, file, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.CompanyID, rep.CompanyVAT, rep.CompanyName, rep.CompanyPhone,
		rep.FiscalYearCode, rep.Presentation, rep.DeclarantNature,
		rep.ProtectedHeritageVAT, rep.ProtectedHeritageName,
		rep.Type, rep.DeclarationNumber, rep.PreviousNumber, rep.ContactName,
		rep.Currency.Code, rep.Currency.Digits,
		rep.Scale.LookbackYears, rep.Scale.AmountThreshold,
		rep.Scale.FirstLowPhysical, rep.Scale.FirstHighPhysical, rep.Scale.PluriannualPhysical,
		rep.Scale.FirstLowArtificial, rep.Scale.FirstHighArtificial, rep.Scale.PluriannualArtificial,
		rep.State, nullTime(rep.Date), rep.File, rep.CreatedAt, rep.UpdatedAt,
	)
	if err != nil {
		return mapConstraint(err)
	}
	id, _ := res.LastInsertId()
	rep.ID = id
	return r.replaceAccounts(ctx, rep)
}

func (r *Repository) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	rep := &domain.Report{}
	var date sql.NullTime
	err := r.q.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id=?`, id).Scan(
		&rep.ID, &rep.CompanyID, &rep.CompanyVAT, &rep.CompanyName, &rep.CompanyPhone,
		&rep.FiscalYearCode, &rep.Presentation, &rep.DeclarantNature,
		&rep.ProtectedHeritageVAT, &rep.ProtectedHeritageName,
		&rep.Type, &rep.DeclarationNumber, &rep.PreviousNumber, &rep.ContactName,
		&rep.Currency.Code, &rep.Currency.Digits,
		&rep.Scale.LookbackYears, &rep.Scale.AmountThreshold,
		&rep.Scale.FirstLowPhysical, &rep.Scale.FirstHighPhysical, &rep.Scale.PluriannualPhysical,
		&rep.Scale.FirstLowArtificial, &rep.Scale.FirstHighArtificial, &rep.Scale.PluriannualArtificial,
		&rep.State, &date, &rep.File, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		rep.Date = date.Time
	}

	if rep.AccountCodes, err = r.accountCodes(ctx, id); err != nil {
		return nil, err
	}
	if rep.Parties, err = r.partiesFor(ctx, id); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *Repository) ListReports(ctx context.Context) ([]domain.Report, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, company_id, company_name, fiscalyear_code, state, created_at
		FROM reports ORDER BY fiscalyear_code DESC, company_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.Report
	for rows.Next() {
		var rep domain.Report
		if err := rows.Scan(&rep.ID, &rep.CompanyID, &rep.CompanyName,
			&rep.FiscalYearCode, &rep.State, &rep.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rep)
	}
	return list, rows.Err()
}

func (r *Repository) UpdateReport(ctx context.Context, rep *domain.Report) error {
	rep.UpdatedAt = time.Now()
	_, err := r.q.ExecContext(ctx, `
		UPDATE reports
		SET company_id=?, company_vat=?, company_name=?, company_phone=?,
		    fiscalyear_code=?, presentation=?, declarant_nature=?,
		    protected_heritage_vat=?, protected_heritage_name=?,
		    type=?, declaration_number=?, previous_number=?, contact_name=?,
		    currency_code=?, currency_digits=?,
		    lookback_years=?, amount_threshold=?,
		    first_low_physical=?, first_high_physical=?, pluriannual_physical=?,
		    first_low_artificial=?, first_high_artificial=?, pluriannual_artificial=?,
		    state=?, date=?, file=?, updated_at=?
		WHERE id=?`,
		rep.CompanyID, rep.CompanyVAT, rep.CompanyName, rep.CompanyPhone,
		rep.FiscalYearCode, rep.Presentation, rep.DeclarantNature,
		rep.ProtectedHeritageVAT, rep.ProtectedHeritageName,
		rep.Type, rep.DeclarationNumber, rep.PreviousNumber, rep.ContactName,
		rep.Currency.Code, rep.Currency.Digits,
		rep.Scale.LookbackYears, rep.Scale.AmountThreshold,
		rep.Scale.FirstLowPhysical, rep.Scale.FirstHighPhysical, rep.Scale.PluriannualPhysical,
		rep.Scale.FirstLowArtificial, rep.Scale.FirstHighArtificial, rep.Scale.PluriannualArtificial,
		rep.State, nullTime(rep.Date), rep.File, rep.UpdatedAt, rep.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return r.replaceAccounts(ctx, rep)
}

func (r *Repository) DeleteReport(ctx context.Context, id int64) error {
	// report_accounts and report_parties cascade with the report
	_, err := r.q.ExecContext(ctx, `DELETE FROM reports WHERE id=?`, id)
	return err
}

func (r *Repository) accountCodes(ctx context.Context, reportID int64) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT account_code FROM report_accounts WHERE report_id=? ORDER BY account_code`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *Repository) replaceAccounts(ctx context.Context, rep *domain.Report) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM report_accounts WHERE report_id=?`, rep.ID); err != nil {
		return err
	}
	for _, code := range rep.AccountCodes {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO report_accounts (report_id, account_code) VALUES (?,?)`,
			rep.ID, code); err != nil {
			return err
		}
	}
	return nil
}

// ── Donor lines ───────────────────────────────────────────────────────────────

func (r *Repository) DeleteParties(ctx context.Context, reportID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM report_parties WHERE report_id=?`, reportID)
	return err
}

func (r *Repository) ReplaceParties(ctx context.Context, reportID int64, parties []domain.ReportParty) error {
	return r.InTransaction(ctx, func(repo ports.ReportRepository) error {
		rr := repo.(*Repository)
		if err := rr.DeleteParties(ctx, reportID); err != nil {
			return err
		}
		for i := range parties {
			p := &parties[i]
			p.ReportID = reportID
			res, err := rr.q.ExecContext(ctx, `
				INSERT INTO report_parties (
					report_id, party_id, party_vat, representative_vat, party_name,
					nature, subdivision_code, key, amount, percentage_deduction,
					donation_in_kind, autonomous_community, autonomous_community_pct,
					revocation, revoked_exercise, type_of_good, identification_of_good
				) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
				p.ReportID, p.PartyID, p.PartyVAT, p.RepresentativeVAT, p.PartyName,
				p.Nature, p.SubdivisionCode, p.Key, p.Amount, p.PercentageDeduction,
				p.DonationInKind, p.AutonomousCommunity, p.AutonomousCommunityPct,
				p.Revocation, p.RevokedExercise, p.TypeOfGood, p.IdentificationOfGood,
			)
			if err != nil {
				return err
			}
			id, _ := res.LastInsertId()
			p.ID = id
		}
		return nil
	})
}

func (r *Repository) partiesFor(ctx context.Context, reportID int64) ([]domain.ReportParty, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, report_id, party_id, party_vat, representative_vat, party_name,
		       nature, subdivision_code, key, amount, percentage_deduction,
		       donation_in_kind, autonomous_community, autonomous_community_pct,
		       revocation, revoked_exercise, type_of_good, identification_of_good
		FROM report_parties WHERE report_id=? ORDER BY id`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var parties []domain.ReportParty
	for rows.Next() {
		var p domain.ReportParty
		if err := rows.Scan(
			&p.ID, &p.ReportID, &p.PartyID, &p.PartyVAT, &p.RepresentativeVAT, &p.PartyName,
			&p.Nature, &p.SubdivisionCode, &p.Key, &p.Amount, &p.PercentageDeduction,
			&p.DonationInKind, &p.AutonomousCommunity, &p.AutonomousCommunityPct,
			&p.Revocation, &p.RevokedExercise, &p.TypeOfGood, &p.IdentificationOfGood,
		); err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

// ── Ledger aggregation ────────────────────────────────────────────────────────

// DonationTotals nets credit-debit per (account, party) for lines on the
// designated accounts within the fiscal year. Lines with no party never
// count. Satisfies ports.LedgerSource.
func (r *Repository) DonationTotals(ctx context.Context, accountCodes []string, fiscalYearCode int) ([]ports.LedgerTotal, error) {
	if len(accountCodes) == 0 {
		return nil, nil
	}
	query := `
		SELECT l.party_id, SUM(l.credit) - SUM(l.debit)
		FROM account_move_lines l
		JOIN account_moves m ON l.move_id = m.id
		JOIN account_periods p ON m.period_id = p.id
		WHERE p.fiscalyear_code = ?
		  AND l.account_code IN (` + placeholders(len(accountCodes)) + `)
		  AND l.party_id IS NOT NULL
		GROUP BY l.account_code, l.party_id`
	args := make([]any, 0, 1+len(accountCodes))
	args = append(args, fiscalYearCode)
	for _, c := range accountCodes {
		args = append(args, c)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []ports.LedgerTotal
	for rows.Next() {
		var t ports.LedgerTotal
		// SQLite sums to float; decimal scans it without going through
		// a string round-trip in the query.
		if err := rows.Scan(&t.PartyID, &t.Amount); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ── Party directory ───────────────────────────────────────────────────────────

func (r *Repository) Party(ctx context.Context, id int64) (*ports.Party, error) {
	p := &ports.Party{}
	var taxID, partyType sql.NullString
	var country, subdivision sql.NullInt64
	err := r.q.QueryRowContext(ctx, `
		SELECT id, tax_id, name, party_type, country_id, subdivision_id
		FROM parties WHERE id=?`, id).Scan(
		&p.ID, &taxID, &p.Name, &partyType, &country, &subdivision,
	)
	if err != nil {
		return nil, err
	}
	p.TaxID = taxID.String
	p.Type = partyType.String
	p.CountryID = country.Int64
	p.SubdivisionID = subdivision.Int64
	return p, nil
}

// ── Subdivision map ───────────────────────────────────────────────────────────

// SubdivisionCodes builds the (country, subdivision) → two-digit code map
// from the postal directory. The first two digits of a zip are the
// province code.
func (r *Repository) SubdivisionCodes(ctx context.Context) (map[ports.SubdivisionKey]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT country_id, subdivision_id, zip FROM zips`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	codes := make(map[ports.SubdivisionKey]string)
	for rows.Next() {
		var key ports.SubdivisionKey
		var zip string
		if err := rows.Scan(&key.CountryID, &key.SubdivisionID, &zip); err != nil {
			return nil, err
		}
		if len(zip) >= 2 {
			codes[key] = zip[:2]
		}
	}
	return codes, rows.Err()
}

// ── Donation history ──────────────────────────────────────────────────────────

func (r *Repository) PriorDonations(ctx context.Context, partyVAT string, years []int) ([]ports.PriorDonation, error) {
	if len(years) == 0 {
		return nil, nil
	}
	query := `
		SELECT p.report_id, rep.fiscalyear_code, p.amount
		FROM report_parties p
		JOIN reports rep ON p.report_id = rep.id
		WHERE p.party_vat = ?
		  AND rep.fiscalyear_code IN (` + placeholders(len(years)) + `)`
	args := make([]any, 0, 1+len(years))
	args = append(args, partyVAT)
	for _, y := range years {
		args = append(args, y)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var prior []ports.PriorDonation
	for rows.Next() {
		var d ports.PriorDonation
		if err := rows.Scan(&d.ReportID, &d.FiscalYearCode, &d.Amount); err != nil {
			return nil, err
		}
		prior = append(prior, d)
	}
	return prior, rows.Err()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// mapConstraint translates the unique (company, fiscal year) violation into
// the domain error callers can test against.
func mapConstraint(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateReport, err)
	}
	return err
}
