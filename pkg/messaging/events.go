package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Case events
	EventCaseCreated             = "case.created"
	EventCaseStatusChanged       = "case.status_changed"
	EventCaseClosed              = "case.closed"
	EventCaseAssignedToWHS       = "case.assigned_to_whs"
	EventCaseAssignedToClinician = "case.assigned_to_clinician"

	// Incident events
	EventIncidentReported = "incident.reported"
	EventIncidentAssigned = "incident.assigned"
	EventIncidentClosed   = "incident.closed"

	// Check-in events
	EventCheckinSubmitted = "checkin.submitted"
	EventCheckinNotFit    = "checkin.not_fit"

	// Schedule events
	EventScheduleCreated     = "schedule.created"
	EventScheduleDeactivated = "schedule.deactivated"

	// Appointment events
	EventAppointmentScheduled = "appointment.scheduled"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventAppointmentCancelled = "appointment.cancelled"

	// Rehabilitation events
	EventRehabPlanCreated      = "rehab.plan_created"
	EventRehabProgressRecorded = "rehab.progress_recorded"
	EventRehabPlanCompleted    = "rehab.plan_completed"
)

// Exchange names
const (
	ExchangeWHSEvents = "whs.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Case Events

// CaseCreatedEvent is published when a worker exception is opened
type CaseCreatedEvent struct {
	ExceptionID   string  `json:"exception_id"`
	WorkerID      string  `json:"worker_id"`
	TeamID        *string `json:"team_id,omitempty"`
	ExceptionType string  `json:"exception_type"`
	StartDate     string  `json:"start_date"`
	EndDate       *string `json:"end_date,omitempty"`
	CreatedBy     string  `json:"created_by"`
}

// CaseStatusChangedEvent is published when a case moves between lifecycle stages
type CaseStatusChangedEvent struct {
	ExceptionID string `json:"exception_id"`
	WorkerID    string `json:"worker_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	ChangedBy   string `json:"changed_by"`
}

// CaseClosedEvent is published when a case is closed
type CaseClosedEvent struct {
	ExceptionID          string `json:"exception_id"`
	WorkerID             string `json:"worker_id"`
	ClosedBy             string `json:"closed_by"`
	ReactivatedSchedules int    `json:"reactivated_schedules"`
}

// CaseAssignedToWHSEvent is published when a supervisor escalates a case
type CaseAssignedToWHSEvent struct {
	ExceptionID string `json:"exception_id"`
	WorkerID    string `json:"worker_id"`
	AssignedBy  string `json:"assigned_by"`
}

// CaseAssignedToClinicianEvent is published when a clinician takes a case
type CaseAssignedToClinicianEvent struct {
	ExceptionID string `json:"exception_id"`
	WorkerID    string `json:"worker_id"`
	ClinicianID string `json:"clinician_id"`
}

// Incident Events

// IncidentReportedEvent is published when an incident is reported
type IncidentReportedEvent struct {
	IncidentID   string  `json:"incident_id"`
	WorkerID     string  `json:"worker_id"`
	TeamID       *string `json:"team_id,omitempty"`
	IncidentType string  `json:"incident_type"`
	Severity     string  `json:"severity,omitempty"`
	ReportedBy   string  `json:"reported_by"`
}

// IncidentAssignedEvent is published when an incident is escalated to WHS
type IncidentAssignedEvent struct {
	IncidentID  string  `json:"incident_id"`
	WorkerID    string  `json:"worker_id"`
	ExceptionID *string `json:"exception_id,omitempty"`
	AssignedBy  string  `json:"assigned_by"`
}

// IncidentClosedEvent is published when an incident is closed
type IncidentClosedEvent struct {
	IncidentID string `json:"incident_id"`
	ClosedBy   string `json:"closed_by"`
}

// Check-in Events

// CheckinSubmittedEvent is published when a worker submits a daily check-in
type CheckinSubmittedEvent struct {
	CheckinID          string `json:"checkin_id"`
	WorkerID           string `json:"worker_id"`
	CheckInDate        string `json:"check_in_date"`
	PredictedReadiness string `json:"predicted_readiness,omitempty"`
}

// CheckinNotFitEvent is published when a check-in predicts the worker is not fit
type CheckinNotFitEvent struct {
	CheckinID   string `json:"checkin_id"`
	WorkerID    string `json:"worker_id"`
	CheckInDate string `json:"check_in_date"`
}

// Schedule Events

// ScheduleCreatedEvent is published when a worker schedule is created
type ScheduleCreatedEvent struct {
	ScheduleID string `json:"schedule_id"`
	WorkerID   string `json:"worker_id"`
	Kind       string `json:"kind"`
	CreatedBy  string `json:"created_by"`
}

// ScheduleDeactivatedEvent is published when a schedule is deactivated
type ScheduleDeactivatedEvent struct {
	ScheduleID string `json:"schedule_id"`
	WorkerID   string `json:"worker_id"`
}

// Appointment Events

// AppointmentScheduledEvent is published when a clinician books an appointment
type AppointmentScheduledEvent struct {
	AppointmentID   string `json:"appointment_id"`
	ExceptionID     string `json:"exception_id"`
	WorkerID        string `json:"worker_id"`
	ClinicianID     string `json:"clinician_id"`
	AppointmentDate string `json:"appointment_date"`
}

// AppointmentConfirmedEvent is published when a worker confirms an appointment
type AppointmentConfirmedEvent struct {
	AppointmentID string `json:"appointment_id"`
	WorkerID      string `json:"worker_id"`
}

// AppointmentCancelledEvent is published when an appointment is cancelled
type AppointmentCancelledEvent struct {
	AppointmentID string `json:"appointment_id"`
	WorkerID      string `json:"worker_id"`
	Reason        string `json:"reason,omitempty"`
}

// Rehabilitation Events

// RehabPlanCreatedEvent is published when a clinician creates a rehab plan
type RehabPlanCreatedEvent struct {
	PlanID       string `json:"plan_id"`
	ExceptionID  string `json:"exception_id"`
	WorkerID     string `json:"worker_id"`
	ClinicianID  string `json:"clinician_id"`
	DurationDays int    `json:"duration_days"`
}

// RehabProgressRecordedEvent is published when a worker records exercise completions
type RehabProgressRecordedEvent struct {
	PlanID         string `json:"plan_id"`
	WorkerID       string `json:"worker_id"`
	CompletionDate string `json:"completion_date"`
	ExerciseCount  int    `json:"exercise_count"`
}

// RehabPlanCompletedEvent is published when a plan reaches completed status
type RehabPlanCompletedEvent struct {
	PlanID      string `json:"plan_id"`
	ExceptionID string `json:"exception_id"`
	WorkerID    string `json:"worker_id"`
}
