// Package report drives the 182 workflow: draft → calculated → done, with
// cancellation from any live state. Donor lines are always rebuilt from
// scratch (delete then recreate) so a report is a consistent snapshot of
// the ledger at calculation time.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/csg33k/aeat182-generator/internal/domain"
	"github.com/csg33k/aeat182-generator/internal/ports"
)

type Service struct {
	repo         ports.ReportRepository
	ledger       ports.LedgerSource
	parties      ports.PartyDirectory
	subdivisions ports.SubdivisionResolver
	history      ports.DonationHistory
	gen          ports.FileGenerator

	now func() time.Time
	log zerolog.Logger
}

func New(
	repo ports.ReportRepository,
	ledger ports.LedgerSource,
	parties ports.PartyDirectory,
	subdivisions ports.SubdivisionResolver,
	history ports.DonationHistory,
	gen ports.FileGenerator,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		ledger:       ledger,
		parties:      parties,
		subdivisions: subdivisions,
		history:      history,
		gen:          gen,
		now:          time.Now,
		log:          log,
	}
}

// Create persists a new draft report, enforcing the EUR invariant and the
// (company, fiscal year) uniqueness constraint.
func (s *Service) Create(ctx context.Context, r *domain.Report) error {
	if err := r.CheckCurrency(); err != nil {
		return err
	}
	if r.State == "" {
		r.State = domain.StateDraft
	}
	return s.repo.CreateReport(ctx, r)
}

// List returns every report, newest fiscal year first.
func (s *Service) List(ctx context.Context) ([]domain.Report, error) {
	return s.repo.ListReports(ctx)
}

// Draft returns reports to draft, deleting their donor lines.
func (s *Service) Draft(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		r, err := s.repo.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if !r.State.CanTransition(domain.StateDraft) {
			return fmt.Errorf("%w: %s -> draft", domain.ErrInvalidTransition, r.State)
		}
		if err := s.repo.DeleteParties(ctx, r.ID); err != nil {
			return err
		}
		r.State = domain.StateDraft
		r.Parties = nil
		if err := s.save(ctx, r); err != nil {
			return err
		}
		s.log.Info().Int64("report", r.ID).Msg("report returned to draft")
	}
	return nil
}

// Calculate rebuilds the donor lines for a batch of draft reports inside
// one transaction: aggregate the ledger, classify each donor's deduction
// tier, then bulk-create the lines. Reports missing accounts or fiscal
// year are silently skipped (left calculated with zero lines).
func (s *Service) Calculate(ctx context.Context, ids ...int64) error {
	reports := make([]*domain.Report, 0, len(ids))
	for _, id := range ids {
		r, err := s.repo.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if !r.State.CanTransition(domain.StateCalculated) {
			return fmt.Errorf("%w: %s -> calculated", domain.ErrInvalidTransition, r.State)
		}
		reports = append(reports, r)
	}

	// Subdivision map is fetched once per calculation, not per report.
	subdivisions, err := s.subdivisions.SubdivisionCodes(ctx)
	if err != nil {
		return fmt.Errorf("load subdivision codes: %w", err)
	}

	today := s.now()
	lines := make(map[int64][]domain.ReportParty, len(reports))
	for _, r := range reports {
		parties, err := s.provisionalParties(ctx, r, subdivisions)
		if err != nil {
			return err
		}
		if parties != nil {
			r.Date = today
		}
		for i := range parties {
			pct, err := classify(ctx, s.history, r, &parties[i])
			if err != nil {
				return fmt.Errorf("classify donor %s: %w", parties[i].PartyVAT, err)
			}
			parties[i].PercentageDeduction = pct
		}
		lines[r.ID] = parties
		s.log.Info().
			Int64("report", r.ID).
			Int("fiscalyear", r.FiscalYearCode).
			Int("donors", len(parties)).
			Msg("report calculated")
	}

	return s.repo.InTransaction(ctx, func(repo ports.ReportRepository) error {
		for _, r := range reports {
			if err := repo.ReplaceParties(ctx, r.ID, lines[r.ID]); err != nil {
				return err
			}
			r.Parties = lines[r.ID]
			r.State = domain.StateCalculated
			if err := r.CheckCurrency(); err != nil {
				return err
			}
			if err := repo.UpdateReport(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// Process finalizes a calculated report: generate the flat file, persist
// its bytes, and mark the report done.
func (s *Service) Process(ctx context.Context, id int64) (*domain.Report, error) {
	r, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.State.CanTransition(domain.StateDone) {
		return nil, fmt.Errorf("%w: %s -> done", domain.ErrInvalidTransition, r.State)
	}

	var buf bytes.Buffer
	if err := s.gen.Generate(ctx, r, &buf); err != nil {
		return nil, fmt.Errorf("generate %s: %w", r.Filename(), err)
	}
	r.File = buf.Bytes()
	r.State = domain.StateDone
	if err := s.save(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("report", r.ID).
		Str("file", r.Filename()).
		Int("bytes", len(r.File)).
		Msg("report processed")
	return r, nil
}

// Cancel flips the state flag; donor lines survive until the report is
// drafted again.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	r, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if !r.State.CanTransition(domain.StateCancelled) {
		return fmt.Errorf("%w: %s -> cancelled", domain.ErrInvalidTransition, r.State)
	}
	r.State = domain.StateCancelled
	return s.save(ctx, r)
}

// save validates the EUR invariant before any write, matching the source
// system's validate-on-save behavior.
func (s *Service) save(ctx context.Context, r *domain.Report) error {
	if err := r.CheckCurrency(); err != nil {
		return err
	}
	return s.repo.UpdateReport(ctx, r)
}
