package events

import (
	"context"
	"time"

	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/logger"
	"github.com/worksafe/worksafe-backend/pkg/messaging"
)

const dateFormat = "2006-01-02"

// Publisher publishes WHS domain events. Publish failures are logged, never
// propagated: the database write is the source of truth and event delivery
// is best effort.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new WHS event publisher
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeWHSEvents, "whs-service", log)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishCaseCreated publishes a case created event
func (p *Publisher) PublishCaseCreated(ctx context.Context, e *repository.Exception, createdBy string) {
	data := messaging.CaseCreatedEvent{
		ExceptionID:   e.ID,
		WorkerID:      e.UserID,
		TeamID:        e.TeamID,
		ExceptionType: e.ExceptionType,
		StartDate:     e.StartDate.Format(dateFormat),
		CreatedBy:     createdBy,
	}
	if e.EndDate != nil {
		endDate := e.EndDate.Format(dateFormat)
		data.EndDate = &endDate
	}

	if err := p.publisher.Publish(ctx, messaging.EventCaseCreated, data); err != nil {
		p.logger.Error().Err(err).Str("exception_id", e.ID).Msg("failed to publish case created event")
	}
}

// PublishCaseStatusChanged publishes a case status changed event
func (p *Publisher) PublishCaseStatusChanged(ctx context.Context, e *repository.Exception, oldStatus, newStatus, changedBy string) {
	data := messaging.CaseStatusChangedEvent{
		ExceptionID: e.ID,
		WorkerID:    e.UserID,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		ChangedBy:   changedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventCaseStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("exception_id", e.ID).Msg("failed to publish case status changed event")
	}
}

// PublishCaseClosed publishes a case closed event
func (p *Publisher) PublishCaseClosed(ctx context.Context, e *repository.Exception, closedBy string, reactivatedSchedules int) {
	data := messaging.CaseClosedEvent{
		ExceptionID:          e.ID,
		WorkerID:             e.UserID,
		ClosedBy:             closedBy,
		ReactivatedSchedules: reactivatedSchedules,
	}

	if err := p.publisher.Publish(ctx, messaging.EventCaseClosed, data); err != nil {
		p.logger.Error().Err(err).Str("exception_id", e.ID).Msg("failed to publish case closed event")
	}
}

// PublishCaseAssignedToWHS publishes a case escalation event
func (p *Publisher) PublishCaseAssignedToWHS(ctx context.Context, e *repository.Exception, assignedBy string) {
	data := messaging.CaseAssignedToWHSEvent{
		ExceptionID: e.ID,
		WorkerID:    e.UserID,
		AssignedBy:  assignedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventCaseAssignedToWHS, data); err != nil {
		p.logger.Error().Err(err).Str("exception_id", e.ID).Msg("failed to publish case assigned event")
	}
}

// PublishCaseAssignedToClinician publishes a clinician assignment event
func (p *Publisher) PublishCaseAssignedToClinician(ctx context.Context, e *repository.Exception, clinicianID string) {
	data := messaging.CaseAssignedToClinicianEvent{
		ExceptionID: e.ID,
		WorkerID:    e.UserID,
		ClinicianID: clinicianID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventCaseAssignedToClinician, data); err != nil {
		p.logger.Error().Err(err).Str("exception_id", e.ID).Msg("failed to publish clinician assignment event")
	}
}

// PublishIncidentReported publishes an incident reported event
func (p *Publisher) PublishIncidentReported(ctx context.Context, i *repository.Incident, reportedBy string) {
	data := messaging.IncidentReportedEvent{
		IncidentID:   i.ID,
		WorkerID:     i.WorkerID,
		TeamID:       i.TeamID,
		IncidentType: i.IncidentType,
		ReportedBy:   reportedBy,
	}
	if i.Severity != nil {
		data.Severity = *i.Severity
	}

	if err := p.publisher.Publish(ctx, messaging.EventIncidentReported, data); err != nil {
		p.logger.Error().Err(err).Str("incident_id", i.ID).Msg("failed to publish incident reported event")
	}
}

// PublishIncidentAssigned publishes an incident escalation event
func (p *Publisher) PublishIncidentAssigned(ctx context.Context, i *repository.Incident, assignedBy string) {
	data := messaging.IncidentAssignedEvent{
		IncidentID:  i.ID,
		WorkerID:    i.WorkerID,
		ExceptionID: i.ExceptionID,
		AssignedBy:  assignedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventIncidentAssigned, data); err != nil {
		p.logger.Error().Err(err).Str("incident_id", i.ID).Msg("failed to publish incident assigned event")
	}
}

// PublishIncidentClosed publishes an incident closed event
func (p *Publisher) PublishIncidentClosed(ctx context.Context, incidentID, closedBy string) {
	data := messaging.IncidentClosedEvent{
		IncidentID: incidentID,
		ClosedBy:   closedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventIncidentClosed, data); err != nil {
		p.logger.Error().Err(err).Str("incident_id", incidentID).Msg("failed to publish incident closed event")
	}
}

// PublishCheckinSubmitted publishes a check-in submitted event, and a
// not-fit event when the predicted readiness is Red.
func (p *Publisher) PublishCheckinSubmitted(ctx context.Context, c *repository.Checkin) {
	data := messaging.CheckinSubmittedEvent{
		CheckinID:   c.ID,
		WorkerID:    c.UserID,
		CheckInDate: c.CheckInDate.Format(dateFormat),
	}
	if c.PredictedReadiness != nil {
		data.PredictedReadiness = *c.PredictedReadiness
	}

	if err := p.publisher.Publish(ctx, messaging.EventCheckinSubmitted, data); err != nil {
		p.logger.Error().Err(err).Str("checkin_id", c.ID).Msg("failed to publish checkin submitted event")
	}

	if c.PredictedReadiness != nil && *c.PredictedReadiness == "Red" {
		notFit := messaging.CheckinNotFitEvent{
			CheckinID:   c.ID,
			WorkerID:    c.UserID,
			CheckInDate: c.CheckInDate.Format(dateFormat),
		}
		if err := p.publisher.Publish(ctx, messaging.EventCheckinNotFit, notFit); err != nil {
			p.logger.Error().Err(err).Str("checkin_id", c.ID).Msg("failed to publish not-fit event")
		}
	}
}

// PublishScheduleCreated publishes a schedule created event
func (p *Publisher) PublishScheduleCreated(ctx context.Context, s *repository.Schedule, createdBy string) {
	data := messaging.ScheduleCreatedEvent{
		ScheduleID: s.ID,
		WorkerID:   s.WorkerID,
		Kind:       s.Kind(),
		CreatedBy:  createdBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventScheduleCreated, data); err != nil {
		p.logger.Error().Err(err).Str("schedule_id", s.ID).Msg("failed to publish schedule created event")
	}
}

// PublishAppointmentScheduled publishes an appointment scheduled event
func (p *Publisher) PublishAppointmentScheduled(ctx context.Context, a *repository.Appointment) {
	data := messaging.AppointmentScheduledEvent{
		AppointmentID:   a.ID,
		ExceptionID:     a.ExceptionID,
		WorkerID:        a.WorkerID,
		ClinicianID:     a.ClinicianID,
		AppointmentDate: a.AppointmentDate.Format(dateFormat),
	}

	if err := p.publisher.Publish(ctx, messaging.EventAppointmentScheduled, data); err != nil {
		p.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("failed to publish appointment scheduled event")
	}
}

// PublishAppointmentCancelled publishes an appointment cancelled event
func (p *Publisher) PublishAppointmentCancelled(ctx context.Context, a *repository.Appointment, reason string) {
	data := messaging.AppointmentCancelledEvent{
		AppointmentID: a.ID,
		WorkerID:      a.WorkerID,
		Reason:        reason,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAppointmentCancelled, data); err != nil {
		p.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("failed to publish appointment cancelled event")
	}
}

// PublishRehabPlanCreated publishes a rehabilitation plan created event
func (p *Publisher) PublishRehabPlanCreated(ctx context.Context, plan *repository.RehabPlan, workerID string) {
	data := messaging.RehabPlanCreatedEvent{
		PlanID:       plan.ID,
		ExceptionID:  plan.ExceptionID,
		WorkerID:     workerID,
		DurationDays: plan.DurationDays,
	}
	if plan.ClinicianID != nil {
		data.ClinicianID = *plan.ClinicianID
	}

	if err := p.publisher.Publish(ctx, messaging.EventRehabPlanCreated, data); err != nil {
		p.logger.Error().Err(err).Str("plan_id", plan.ID).Msg("failed to publish rehab plan created event")
	}
}

// PublishRehabProgressRecorded publishes a progress recorded event
func (p *Publisher) PublishRehabProgressRecorded(ctx context.Context, planID, workerID string, date time.Time, exerciseCount int) {
	data := messaging.RehabProgressRecordedEvent{
		PlanID:         planID,
		WorkerID:       workerID,
		CompletionDate: date.Format(dateFormat),
		ExerciseCount:  exerciseCount,
	}

	if err := p.publisher.Publish(ctx, messaging.EventRehabProgressRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("plan_id", planID).Msg("failed to publish rehab progress event")
	}
}
