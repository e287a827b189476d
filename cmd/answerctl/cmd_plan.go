package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"commerce-answers/internal/factplanner"
	"commerce-answers/internal/models"
)

var (
	planQuery         string
	planLang          string
	planSnapshotsPath string
	planLength        string
	planNoEvidence    bool
	planMaxQuotes     int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Answer a fact question from snapshot fixtures without calling a model",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planQuery, "query", "", "shopper question")
	planCmd.Flags().StringVar(&planLang, "lang", "", "reply language (detected from the query when empty)")
	planCmd.Flags().StringVar(&planSnapshotsPath, "snapshots", "", "YAML file with product fact snapshots")
	planCmd.Flags().StringVar(&planLength, "length", string(factplanner.LengthMedium), "short, medium or long")
	planCmd.Flags().BoolVar(&planNoEvidence, "no-evidence", false, "omit evidence quotes")
	planCmd.Flags().IntVar(&planMaxQuotes, "max-quotes", 1, "maximum evidence quotes to append")
	_ = planCmd.MarkFlagRequired("query")
	_ = planCmd.MarkFlagRequired("snapshots")
}

type planOutput struct {
	Planned bool                      `json:"planned"`
	Outcome string                    `json:"outcome"`
	Answer  *models.PlannedFactAnswer `json:"answer,omitempty"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	length := factplanner.ResponseLength(planLength)
	switch length {
	case factplanner.LengthShort, factplanner.LengthMedium, factplanner.LengthLong:
	default:
		return fmt.Errorf("invalid length %q: use short, medium or long", planLength)
	}

	snapshots, err := loadSnapshots(planSnapshotsPath)
	if err != nil {
		return err
	}

	include := !planNoEvidence
	result := factplanner.New().Plan(planQuery, planLang, snapshots, factplanner.Options{
		ResponseLength:       length,
		IncludeEvidenceQuote: &include,
		MaxEvidenceQuotes:    planMaxQuotes,
	})

	out := planOutput{Outcome: factplanner.Outcome(result)}
	if p, ok := result.(factplanner.Planned); ok {
		out.Planned = true
		out.Answer = &p.Answer
	}
	log().Debug("plan finished", zap.String("outcome", out.Outcome), zap.Int("snapshots", len(snapshots)))
	return printJSON(cmd.OutOrStdout(), out)
}

func loadSnapshots(path string) ([]models.ProductFactSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}
	var snapshots []models.ProductFactSnapshot
	if err := yaml.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("parse snapshots %s: %w", path, err)
	}
	for i, s := range snapshots {
		if s.ProductID == "" {
			return nil, fmt.Errorf("snapshot %d: product_id is required", i)
		}
	}
	return snapshots, nil
}
