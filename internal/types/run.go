package types

import "time"

// RunStatus is the lifecycle state of a refresh run
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
	RunStatusInterrupted RunStatus = "interrupted"
)

// RunTrigger says what started a refresh run
type RunTrigger string

const (
	TriggerSchedule RunTrigger = "schedule"
	TriggerManual   RunTrigger = "manual"
	TriggerCLI      RunTrigger = "cli"
)

// SupplierResult is the record of one supplier within a run
type SupplierResult struct {
	SupplierID    string          `json:"supplierId"`
	SupplierName  string          `json:"supplierName"`
	Outcome       SupplierOutcome `json:"outcome"`
	ProductCount  int             `json:"productCount"`
	RejectedCount int             `json:"rejectedCount"`
	Fingerprint   string          `json:"fingerprint,omitempty"`
	Error         string          `json:"error,omitempty"`
	Duration      time.Duration   `json:"duration"`
}

// RunSummary is the record of one refresh pass
type RunSummary struct {
	ID             string                  `json:"id"`
	Trigger        RunTrigger              `json:"trigger"`
	Status         RunStatus               `json:"status"`
	StartedAt      time.Time               `json:"startedAt"`
	CompletedAt    *time.Time              `json:"completedAt,omitempty"`
	SuppliersTotal int                     `json:"suppliersTotal"`
	Outcomes       map[SupplierOutcome]int `json:"outcomes"`
	FilesWritten   []string                `json:"filesWritten,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

// Count tallies a supplier result into the summary
func (s *RunSummary) Count(r SupplierResult) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[SupplierOutcome]int)
	}
	s.Outcomes[r.Outcome]++
}
