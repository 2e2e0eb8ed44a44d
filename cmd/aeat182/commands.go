package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/csg33k/aeat182-generator/internal/adapters/pdf"
	"github.com/csg33k/aeat182-generator/internal/config"
	"github.com/csg33k/aeat182-generator/internal/domain"
)

func newCreateCmd(cfg *config.Config) *cobra.Command {
	var (
		companyID int64
		vat       string
		name      string
		phone     string
		contact   string
		year      int
		accounts  []string
		nature    string
		pres      string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft report for a company and fiscal year",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			r := domain.NewReport(companyID, year)
			r.CompanyVAT = vat
			r.CompanyName = name
			r.CompanyPhone = phone
			r.ContactName = contact
			r.AccountCodes = accounts
			if nature != "" {
				r.DeclarantNature = domain.DeclarantNature(nature)
			}
			if pres != "" {
				r.Presentation = domain.Presentation(pres)
			}
			if err := svc.Create(cmd.Context(), r); err != nil {
				return err
			}
			fmt.Printf("created report %d (%s)\n", r.ID, r.Name())
			return nil
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "company id")
	cmd.Flags().StringVar(&vat, "vat", "", "company VAT (last 9 chars of the tax id)")
	cmd.Flags().StringVar(&name, "name", "", "company name")
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&contact, "contact", "", "contact name and surname")
	cmd.Flags().IntVar(&year, "year", 0, "four-digit fiscal year code")
	cmd.Flags().StringSliceVar(&accounts, "accounts", nil, "donation account codes")
	cmd.Flags().StringVar(&nature, "nature", "", "declarant nature: 1=non-profit 2=foundation 3=protected heritage")
	cmd.Flags().StringVar(&pres, "presentation", "", "presentation: printed or support")
	cmd.MarkFlagRequired("company")
	cmd.MarkFlagRequired("vat")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("year")
	return cmd
}

func newListCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			reports, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range reports {
				fmt.Printf("%4d  %d  %-10s  %s\n", r.ID, r.FiscalYearCode, r.State, r.CompanyName)
			}
			return nil
		},
	}
}

func newCalculateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "calculate <report-id>...",
		Short: "Rebuild donor lines from the ledger for draft reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return svc.Calculate(cmd.Context(), ids...)
		},
	}
}

func newDraftCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "draft <report-id>...",
		Short: "Return reports to draft, deleting their donor lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return svc.Draft(cmd.Context(), ids...)
		},
	}
}

func newCancelCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <report-id>",
		Short: "Cancel a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			return svc.Cancel(cmd.Context(), id)
		},
	}
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	var (
		outDir  string
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "export <report-id>",
		Short: "Finalize a calculated report and write the flat file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			r, err := svc.Process(cmd.Context(), id)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, r.Filename())
			if err := os.WriteFile(path, r.File, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d donors, %d sheets)\n", path, r.DonorRecordCount(), r.TotalSheets())

			if summary {
				sumPath := filepath.Join(outDir, fmt.Sprintf("aeat182-%d-summary.pdf", r.FiscalYearCode))
				f, err := os.Create(sumPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := pdf.GenerateSummary(r, f); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", sumPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().BoolVar(&summary, "summary", false, "also write the printed-presentation summary PDF")
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid report id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
