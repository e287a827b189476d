package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"commerce-answers/internal/guardrail"
	"commerce-answers/internal/models"
)

var (
	checkText      string
	checkDirection string
	checkLang      string
	checkRulesPath string
)

var guardrailCmd = &cobra.Command{
	Use:   "guardrail",
	Short: "Run guardrail checks against text",
}

var guardrailCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check one message with the system rules and optional merchant rules",
	RunE:  runGuardrailCheck,
}

var guardrailRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the system rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE:  runGuardrailRules,
}

var keywordsCmd = &cobra.Command{
	Use:       "keywords [crisis|medical|unsafe|handoff]",
	Short:     "Print the built-in keyword tables",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"crisis", "medical", "unsafe", "handoff"},
	RunE:      runKeywords,
}

func init() {
	guardrailCheckCmd.Flags().StringVar(&checkText, "text", "", "text to check")
	guardrailCheckCmd.Flags().StringVar(&checkDirection, "direction", string(models.DirectionUserMessage), "user_message or ai_response")
	guardrailCheckCmd.Flags().StringVar(&checkLang, "lang", "", "reply language override (en, tr, hu)")
	guardrailCheckCmd.Flags().StringVar(&checkRulesPath, "rules", "", "YAML file with merchant rules")
	_ = guardrailCheckCmd.MarkFlagRequired("text")

	guardrailCmd.AddCommand(guardrailCheckCmd, guardrailRulesCmd)
}

type checkOutput struct {
	models.GuardrailResult
	HandoffRequested bool `json:"handoffRequested"`
}

func runGuardrailCheck(cmd *cobra.Command, args []string) error {
	direction := models.Direction(checkDirection)
	if !direction.Valid() {
		return fmt.Errorf("invalid direction %q: use user_message or ai_response", checkDirection)
	}

	var rules []models.CustomGuardrail
	if checkRulesPath != "" {
		var err error
		if rules, err = loadRules(checkRulesPath); err != nil {
			return err
		}
		log().Debug("loaded merchant rules", zap.String("path", checkRulesPath), zap.Int("count", len(rules)))
	}

	engine := guardrail.NewEngine()
	result := engine.Check(checkText, direction, guardrail.CheckOptions{Lang: checkLang, CustomRules: rules})

	out := checkOutput{GuardrailResult: result}
	if direction == models.DirectionUserMessage && result.Safe {
		out.HandoffRequested = engine.DetectHandoff(checkText)
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func loadRules(path string) ([]models.CustomGuardrail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var rules []models.CustomGuardrail
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	for i, r := range rules {
		switch {
		case r.Name == "":
			return nil, fmt.Errorf("rule %d: name is required", i)
		case r.AppliesTo != models.DirectionBoth && !r.AppliesTo.Valid():
			return nil, fmt.Errorf("rule %q: invalid applies_to %q", r.Name, r.AppliesTo)
		case r.MatchType != models.MatchKeywords && r.MatchType != models.MatchPhrase:
			return nil, fmt.Errorf("rule %q: invalid match_type %q", r.Name, r.MatchType)
		case r.Action != models.ActionBlock && r.Action != models.ActionEscalate:
			return nil, fmt.Errorf("rule %q: invalid action %q", r.Name, r.Action)
		}
	}
	return rules, nil
}

func runGuardrailRules(cmd *cobra.Command, args []string) error {
	return printJSON(cmd.OutOrStdout(), guardrail.SystemRules)
}

func runKeywords(cmd *cobra.Command, args []string) error {
	kinds := guardrail.Kinds
	if len(args) == 1 {
		kind := guardrail.Kind(strings.ToLower(args[0]))
		if guardrail.Keywords(kind) == nil {
			return fmt.Errorf("unknown keyword table %q", args[0])
		}
		kinds = []guardrail.Kind{kind}
	}

	out := make(map[guardrail.Kind][]guardrail.Keyword, len(kinds))
	for _, k := range kinds {
		out[k] = guardrail.Keywords(k)
	}
	return printJSON(cmd.OutOrStdout(), out)
}
