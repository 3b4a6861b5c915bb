// Package consumers wires message-bus events into side effects. The
// notification consumer is the fan-out path: every user-visible event
// becomes a notifications row for the people who need to see it.
package consumers

import (
	"context"
	"fmt"

	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/logger"
	"github.com/worksafe/worksafe-backend/pkg/messaging"
)

// NotificationConsumer turns WHS events into notification records
type NotificationConsumer struct {
	consumer      *messaging.Consumer
	notifications *service.NotificationService
	teams         *repository.TeamRepository
	logger        *logger.Logger
}

// NewNotificationConsumer creates and subscribes the notification consumer
func NewNotificationConsumer(rmq *messaging.RabbitMQ, notifications *service.NotificationService, teams *repository.TeamRepository, log *logger.Logger) (*NotificationConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "whs-service.notifications", log)
	if err != nil {
		return nil, err
	}

	c := &NotificationConsumer{
		consumer:      consumer,
		notifications: notifications,
		teams:         teams,
		logger:        log,
	}

	if err := consumer.Subscribe(messaging.ExchangeWHSEvents, "case.*"); err != nil {
		return nil, err
	}
	if err := consumer.Subscribe(messaging.ExchangeWHSEvents, "incident.*"); err != nil {
		return nil, err
	}
	if err := consumer.Subscribe(messaging.ExchangeWHSEvents, "checkin.not_fit"); err != nil {
		return nil, err
	}

	consumer.RegisterHandler(messaging.EventCaseStatusChanged, c.handleCaseStatusChanged)
	consumer.RegisterHandler(messaging.EventCaseClosed, c.handleCaseClosed)
	consumer.RegisterHandler(messaging.EventCaseAssignedToClinician, c.handleCaseAssignedToClinician)
	consumer.RegisterHandler(messaging.EventIncidentAssigned, c.handleIncidentAssigned)
	consumer.RegisterHandler(messaging.EventCheckinNotFit, c.handleCheckinNotFit)

	return c, nil
}

// Start starts consuming events
func (c *NotificationConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *NotificationConsumer) handleCaseStatusChanged(ctx context.Context, event *messaging.Event) error {
	var data messaging.CaseStatusChangedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	return c.notifications.Notify(ctx, data.WorkerID, "case_updated",
		"Case updated",
		fmt.Sprintf("Your case status changed to %s", data.NewStatus),
		data)
}

func (c *NotificationConsumer) handleCaseClosed(ctx context.Context, event *messaging.Event) error {
	var data messaging.CaseClosedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	return c.notifications.Notify(ctx, data.WorkerID, "case_closed",
		"Case closed",
		"Your case has been closed and your schedules have resumed",
		data)
}

func (c *NotificationConsumer) handleCaseAssignedToClinician(ctx context.Context, event *messaging.Event) error {
	var data messaging.CaseAssignedToClinicianEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	return c.notifications.Notify(ctx, data.ClinicianID, "case_assigned_to_clinician",
		"Case assigned",
		"A new case has been assigned to you",
		data)
}

func (c *NotificationConsumer) handleIncidentAssigned(ctx context.Context, event *messaging.Event) error {
	var data messaging.IncidentAssignedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	return c.notifications.Notify(ctx, data.WorkerID, "incident_assigned",
		"Incident escalated",
		"Your incident has been escalated to WHS and a case has been opened",
		data)
}

// handleCheckinNotFit notifies the worker's team leader and supervisor that
// a red readiness check-in came in.
func (c *NotificationConsumer) handleCheckinNotFit(ctx context.Context, event *messaging.Event) error {
	var data messaging.CheckinNotFitEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	teamID, err := c.teams.GetTeamIDForWorker(ctx, data.WorkerID)
	if err != nil {
		return err
	}
	if teamID == nil {
		c.logger.Debug().Str("worker_id", data.WorkerID).Msg("not-fit check-in for worker without a team")
		return nil
	}

	team, err := c.teams.GetByID(ctx, *teamID)
	if err != nil {
		return err
	}

	recipients := []string{team.TeamLeaderID}
	if team.SupervisorID != nil {
		recipients = append(recipients, *team.SupervisorID)
	}

	for _, userID := range recipients {
		if err := c.notifications.Notify(ctx, userID, "worker_not_fit_to_work",
			"Worker not fit to work",
			fmt.Sprintf("A team member's check-in on %s predicted they are not fit to work", data.CheckInDate),
			data); err != nil {
			return err
		}
	}

	return nil
}
