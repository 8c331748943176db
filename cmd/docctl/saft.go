package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

// saftCmd generates a D406 export outside the API, for backfills.
func saftCmd() *cobra.Command {
	var companyFlag, userFlag, period, outDir string
	cmd := &cobra.Command{
		Use:   "saft",
		Short: "Generate the monthly D406 SAF-T file for a company",
		RunE: func(c *cobra.Command, _ []string) error {
			companyID, err := uuid.Parse(companyFlag)
			if err != nil {
				return fmt.Errorf("invalid --company: %w", err)
			}
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := c.Context()
			db, err := infra.NewDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			storage, err := infra.NewStorage(ctx, cfg)
			if err != nil {
				return err
			}

			svc := service.NewSAFTService(
				repository.NewSAFTRepository(db),
				repository.NewUserRepository(db),
				repository.NewCompanyRepository(db),
				repository.NewInvoiceRepository(db),
				repository.NewBankRepository(db),
				storage,
			)
			export, err := svc.Generate(ctx, companyID, userID, period)
			if err != nil {
				return err
			}
			if export.Status == service.SAFTFailed {
				for _, e := range export.Errors {
					log.Error().Str("period", period).Msg(e)
				}
				return fmt.Errorf("export %s failed validation", export.ID)
			}
			for _, w := range export.Warnings {
				log.Warn().Str("period", period).Msg(w)
			}

			id, err := uuid.Parse(export.ID)
			if err != nil {
				return err
			}
			file, err := svc.Download(ctx, companyID, id)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, file.Filename)
			if err := os.WriteFile(path, file.Data, 0o644); err != nil {
				return err
			}
			log.Info().
				Str("file", path).
				Int("invoices", export.InvoiceCount).
				Str("vat_balance", export.VATBalance.StringFixed(2)).
				Str("sha256", export.Hash).
				Msg("saft: export written")
			return nil
		},
	}
	cmd.Flags().StringVar(&companyFlag, "company", "", "company ID")
	cmd.Flags().StringVar(&userFlag, "user", "", "ID of the user recorded as the declarant")
	cmd.Flags().StringVar(&period, "period", "", "month as YYYY-MM")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for the XML file")
	for _, f := range []string{"company", "user", "period"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
