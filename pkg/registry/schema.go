package registry

import "time"

// ActivityRegistry lists the job types the worker manager serves, for process
// modellers and for deployment checks.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one service task. Schemas map variable names to a type hint.
type Activity struct {
	ID                   string            `json:"id"`
	DisplayName          string            `json:"displayName"`
	Description          string            `json:"description,omitempty"`
	Category             string            `json:"category"`
	Version              string            `json:"version,omitempty"`
	TaskType             string            `json:"taskType"`
	ImplementationStatus string            `json:"implementationStatus"`
	Languages            []string          `json:"languages,omitempty"`
	InputSchema          map[string]string `json:"inputSchema,omitempty"`
	OutputSchema         map[string]string `json:"outputSchema,omitempty"`
	ErrorCodes           []string          `json:"errorCodes,omitempty"`
	Timeout              string            `json:"timeout,omitempty"`
	Retries              int               `json:"retries"`
	Workflows            []string          `json:"workflows,omitempty"`
	Tags                 []string          `json:"tags,omitempty"`
}

// TimeoutDuration parses Timeout; zero when unset or malformed.
func (a Activity) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0
	}
	return d
}

const (
	StatusPlanned    = "planned"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusVerified   = "verified"
)

// Statuses is the lifecycle order of an activity.
var Statuses = []string{StatusPlanned, StatusInProgress, StatusCompleted, StatusVerified}
