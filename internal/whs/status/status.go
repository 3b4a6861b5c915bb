// Package status derives and writes a case's lifecycle status.
//
// A case is a worker_exceptions row. Its status is not a column: it lives as
// a case_status key inside the JSON blob stored in the notes text column,
// with fallback inference from the row's coarse flags when the JSON is
// absent or malformed. Every reader and writer of case status must go
// through this package so the parse and fallback rules stay in one place.
package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// Lifecycle states, in workflow order.
const (
	New          = "new"
	Triaged      = "triaged"
	Assessed     = "assessed"
	InRehab      = "in_rehab"
	ReturnToWork = "return_to_work"
	Closed       = "closed"
)

// Order lists the states in workflow order. Transitions may jump to any
// state, not only the next one; the order is for display.
var Order = []string{New, Triaged, Assessed, InRehab, ReturnToWork, Closed}

// IsValid reports whether s is one of the six lifecycle states.
func IsValid(s string) bool {
	switch s {
	case New, Triaged, Assessed, InRehab, ReturnToWork, Closed:
		return true
	}
	return false
}

// Flags are the coarse columns used to infer status when the notes JSON
// does not carry one.
type Flags struct {
	IsActive           bool
	AssignedToWHS      bool
	HasActiveRehabPlan bool
}

// Derive produces the canonical lifecycle status for a case.
//
// The notes text is parsed as JSON; parse failure is not an error, a plain
// text note simply carries no structured status. A valid case_status key
// wins. Otherwise the flags decide: inactive means closed, an active rehab
// plan means in_rehab, assigned to WHS means assessed, anything else is new.
func Derive(notes string, flags Flags) string {
	if doc, ok := parse(notes); ok {
		if s, ok := doc["case_status"].(string); ok && IsValid(s) {
			return s
		}
	}

	if !flags.IsActive {
		return Closed
	}
	if flags.HasActiveRehabPlan {
		return InRehab
	}
	if flags.AssignedToWHS {
		return Assessed
	}
	return New
}

// Approval carries the clinician stamp recorded on approval states.
type Approval struct {
	By string
	At time.Time
}

// Merge writes a new case_status into the notes JSON and returns the
// updated text. Keys already present in the JSON are preserved. If the
// existing notes are not valid JSON they carried no structured state, so a
// fresh object is started. An approval, when given, stamps approved_by and
// approved_at alongside the status.
func Merge(notes, newStatus string, approval *Approval) (string, error) {
	if !IsValid(newStatus) {
		return "", errors.Validation(map[string]string{
			"status": fmt.Sprintf("must be one of: %s, %s, %s, %s, %s, %s", New, Triaged, Assessed, InRehab, ReturnToWork, Closed),
		})
	}

	doc, ok := parse(notes)
	if !ok {
		doc = make(map[string]any)
	}

	doc["case_status"] = newStatus
	if approval != nil {
		doc["approved_by"] = approval.By
		doc["approved_at"] = approval.At.UTC().Format(time.RFC3339)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode notes: %w", err)
	}
	return string(out), nil
}

// parse attempts to read notes as a JSON object. A plain-text note, empty
// string, or JSON that is not an object all report false.
func parse(notes string) (map[string]any, bool) {
	if notes == "" {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(notes), &doc); err != nil {
		return nil, false
	}
	if doc == nil {
		return nil, false
	}
	return doc, true
}
