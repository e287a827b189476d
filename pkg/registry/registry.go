package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"commerce-answers/internal/lang"
)

var ErrActivityNotFound = errors.New("ACTIVITY_NOT_FOUND")

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &reg, nil
}

// SaveRegistry writes reg as indented JSON and stamps LastUpdated.
func SaveRegistry(reg *ActivityRegistry, path string, now time.Time) error {
	reg.LastUpdated = now.UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func (r *ActivityRegistry) Find(id string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
}

// SetStatus moves an activity to a known implementation status.
func (r *ActivityRegistry) SetStatus(id, status string) error {
	if !slices.Contains(Statuses, status) {
		return fmt.Errorf("unknown status %q, want one of %v", status, Statuses)
	}
	a, err := r.Find(id)
	if err != nil {
		return err
	}
	a.ImplementationStatus = status
	return nil
}

// Validate returns every problem found; an empty slice means the registry is usable.
// known, when non-empty, lists the task types the binary actually registers.
func (r *ActivityRegistry) Validate(known []string) []error {
	var errs []error
	if len(r.Activities) == 0 {
		return []error{errors.New("registry contains no activities")}
	}

	ids := map[string]bool{}
	taskTypes := map[string]string{}
	for _, a := range r.Activities {
		if a.ID == "" {
			errs = append(errs, errors.New("activity missing required field: id"))
			continue
		}
		if ids[a.ID] {
			errs = append(errs, fmt.Errorf("duplicate activity id: %s", a.ID))
		}
		ids[a.ID] = true

		if a.DisplayName == "" {
			errs = append(errs, fmt.Errorf("activity %s missing required field: displayName", a.ID))
		}
		if a.Category == "" {
			errs = append(errs, fmt.Errorf("activity %s missing required field: category", a.ID))
		}
		if a.TaskType == "" {
			errs = append(errs, fmt.Errorf("activity %s missing required field: taskType", a.ID))
		} else {
			if other, ok := taskTypes[a.TaskType]; ok {
				errs = append(errs, fmt.Errorf("activities %s and %s share task type %s", other, a.ID, a.TaskType))
			}
			taskTypes[a.TaskType] = a.ID
			if len(known) > 0 && !slices.Contains(known, a.TaskType) && a.ImplementationStatus != StatusPlanned {
				errs = append(errs, fmt.Errorf("activity %s: task type %s has no registered worker", a.ID, a.TaskType))
			}
		}
		if a.ImplementationStatus != "" && !slices.Contains(Statuses, a.ImplementationStatus) {
			errs = append(errs, fmt.Errorf("activity %s: unknown status %q", a.ID, a.ImplementationStatus))
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				errs = append(errs, fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout))
			}
		}
		for _, code := range a.Languages {
			if !lang.IsSupported(code) {
				errs = append(errs, fmt.Errorf("activity %s: unsupported language %q", a.ID, code))
			}
		}
		if a.Retries < 0 {
			errs = append(errs, fmt.Errorf("activity %s: retries must not be negative", a.ID))
		}
	}
	return errs
}
