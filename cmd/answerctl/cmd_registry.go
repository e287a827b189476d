package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	aq "commerce-answers/internal/workers/answering/answer-question"
	ec "commerce-answers/internal/workers/answering/escalate-conversation"
	gc "commerce-answers/internal/workers/answering/guardrail-check"
	pfa "commerce-answers/internal/workers/answering/plan-fact-answer"
	"commerce-answers/pkg/registry"
)

var registryPath string

// registeredTaskTypes are the job types worker-manager subscribes to.
var registeredTaskTypes = []string{gc.TaskType, pfa.TaskType, aq.TaskType, ec.TaskType}

var now = time.Now

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and maintain the activity registry",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities with their status",
	RunE:  runRegistryList,
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registry against the task types this build serves",
	RunE:  runRegistryValidate,
}

var registrySetStatusCmd = &cobra.Command{
	Use:   "set-status <activity-id> <status>",
	Short: "Move an activity to planned, in-progress, completed or verified",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegistrySetStatus,
}

func init() {
	registryCmd.PersistentFlags().StringVar(&registryPath, "path", "configs/activity-registry.json", "registry file")
	registryCmd.AddCommand(registryListCmd, registryValidateCmd, registrySetStatusCmd)
}

type activitySummary struct {
	ID       string `json:"id"`
	TaskType string `json:"taskType"`
	Status   string `json:"status"`
	Timeout  string `json:"timeout,omitempty"`
	Retries  int    `json:"retries"`
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	out := make([]activitySummary, 0, len(reg.Activities))
	for _, a := range reg.Activities {
		s := activitySummary{
			ID:       a.ID,
			TaskType: a.TaskType,
			Status:   a.ImplementationStatus,
			Retries:  a.Retries,
		}
		if d := a.TimeoutDuration(); d > 0 {
			s.Timeout = d.String()
		}
		out = append(out, s)
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runRegistryValidate(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	problems := reg.Validate(registeredTaskTypes)
	for _, p := range problems {
		fmt.Fprintln(cmd.ErrOrStderr(), "  -", p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("registry has %d problem(s)", len(problems))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "registry OK: %d activities\n", len(reg.Activities))
	return nil
}

func runRegistrySetStatus(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	id, status := args[0], args[1]
	if err := reg.SetStatus(id, status); err != nil {
		if errors.Is(err, registry.ErrActivityNotFound) {
			return fmt.Errorf("no activity %q in %s", id, registryPath)
		}
		return err
	}
	if err := registry.SaveRegistry(reg, registryPath, now()); err != nil {
		return err
	}
	log().Info("activity status updated", zap.String("id", id), zap.String("status", status))
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", id, status)
	return nil
}
