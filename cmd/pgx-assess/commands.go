package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pharmaco-risk-server/internal/config"
	"github.com/pharmaco-risk-server/internal/domain"
	"github.com/pharmaco-risk-server/internal/logging"
	"github.com/pharmaco-risk-server/internal/repository"
	"github.com/pharmaco-risk-server/internal/service"
	"github.com/pharmaco-risk-server/pkg/external"
)

// assessOutput is printed by the assess command.
type assessOutput struct {
	ID           string                             `json:"id,omitempty"`
	Assessment   *domain.RiskAssessment             `json:"assessment"`
	Alternatives []domain.AlternativeRecommendation `json:"alternatives"`
	Parse        *service.ParseResult               `json:"parse"`
}

func assessCmd(cfg *config.LiteConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess drug risk for a variant file",
		Example: `  pgx-assess assess --file patient.vcf --drug Warfarin
  cat patient.vcf | pgx-assess assess --file - --drug Clopidogrel --model-url http://localhost:8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			drug, _ := cmd.Flags().GetString("drug")
			if v, _ := cmd.Flags().GetString("model-url"); v != "" {
				cfg.ModelURL = v
			}
			if cmd.Flags().Changed("save") {
				cfg.SaveHistory, _ = cmd.Flags().GetBool("save")
			}

			drug = strings.TrimSpace(drug)
			if drug == "" {
				return fmt.Errorf("--drug is required")
			}

			content, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			logger, closer, err := logging.NewLogger(cfg.LoggingConfig())
			if err != nil {
				return err
			}
			defer closer.Close()

			out, err := runAssessment(cmd.Context(), cfg, content, drug, logger)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().String("file", "", "Variant file to assess (\"-\" reads stdin)")
	cmd.Flags().String("drug", "", "Drug name, e.g. Warfarin")
	cmd.Flags().String("model-url", "", "Prediction model base URL (overrides PGX_MODEL_URL)")
	cmd.Flags().Bool("save", false, "Store the result in the local history database")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("drug")
	return cmd
}

// runAssessment builds the pipeline from the lite settings and runs it once.
func runAssessment(ctx context.Context, cfg *config.LiteConfig, content, drug string, logger *logrus.Logger) (*assessOutput, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	predictorConfig := cfg.PredictorConfig()
	cacheConfig := domain.CacheConfig{Enabled: true, MemorySize: cfg.CacheMaxItems, TTL: cfg.CacheTTL}

	resilient, _, err := external.NewPredictorFromConfig(predictorConfig, cacheConfig, logger)
	if err != nil {
		return nil, err
	}
	var predictor domain.Predictor
	if resilient != nil {
		predictor = resilient
	}

	svc := service.NewDefaultAssessmentService(predictor, &predictorConfig, logger)
	report := svc.AssessWithReport(ctx, content, drug)

	out := &assessOutput{
		Assessment:   report.Assessment,
		Alternatives: report.Alternatives,
		Parse:        report.Parse,
	}

	if cfg.SaveHistory {
		id, err := saveHistory(ctx, cfg, report)
		if err != nil {
			logger.WithError(err).Warn("Failed to save assessment history")
		} else {
			out.ID = id
		}
	}
	return out, nil
}

func saveHistory(ctx context.Context, cfg *config.LiteConfig, report *service.AssessmentReport) (string, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := repository.NewSQLiteStore(cfg.HistoryDBPath())
	if err != nil {
		return "", err
	}
	defer store.Close()

	record := repository.NewAssessmentRecord(report.Assessment, report.Alternatives, "")
	if err := store.Save(ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

func drugsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drugs",
		Short: "List supported drugs, their genes and substitutes",
		RunE: func(cmd *cobra.Command, args []string) error {
			genes := domain.DefaultGeneDrugTable()
			substitutes := domain.DefaultSubstituteTable()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DRUG\tGENES\tALTERNATIVE")
			for _, drug := range genes.Drugs() {
				alternative := "-"
				if g, ok := substitutes.Lookup(drug); ok {
					alternative = g.Alternative
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", drug, strings.Join(genes.GenesFor(drug), ","), alternative)
			}
			return w.Flush()
		},
	}
}

func historyCmd(cfg *config.LiteConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect locally saved assessments",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved assessments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			limit, offset := repository.ClampPage(limit, 0)
			records, err := store.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tDRUG\tLEVEL\tSCORE")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
					r.ID, r.CreatedAt.Format(time.RFC3339), r.DrugName,
					r.Assessment.RiskLevel, r.Assessment.RiskScore)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().Int("limit", 20, "Maximum number of assessments to show")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print one saved assessment as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			record, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Export all saved assessments as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
		},
	})

	return cmd
}

func openHistory(cfg *config.LiteConfig) (*repository.SQLiteStore, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return repository.NewSQLiteStore(cfg.HistoryDBPath())
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read variant file: %w", err)
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
