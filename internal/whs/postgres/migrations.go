// Package postgres holds the embedded migration set for the WHS database.
package postgres

import "github.com/worksafe/worksafe-backend/pkg/migrate"

// Migrations returns the full ordered migration set.
func Migrations() []migrate.Migration {
	return []migrate.Migration{
		{Version: 1, Name: "core", Up: migration0001Core},
		{Version: 2, Name: "schedules", Up: migration0002Schedules},
		{Version: 3, Name: "exceptions_checkins", Up: migration0003ExceptionsCheckins},
		{Version: 4, Name: "incidents_notifications_appointments", Up: migration0004IncidentsNotificationsAppointments},
		{Version: 5, Name: "rehabilitation", Up: migration0005Rehabilitation},
		{Version: 6, Name: "notification_types_appointment_guard", Up: migration0006NotificationTypesAppointmentGuard},
	}
}

const migration0001Core = `
-- Users, teams and team membership.

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'worker',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT uq_users_email UNIQUE (email),
	CONSTRAINT chk_users_role_valid CHECK (role IN ('worker', 'team_leader', 'supervisor', 'clinician', 'admin'))
);

CREATE TABLE IF NOT EXISTS teams (
	id             UUID PRIMARY KEY,
	name           TEXT NOT NULL,
	team_leader_id UUID NOT NULL REFERENCES users(id),
	supervisor_id  UUID REFERENCES users(id) ON DELETE SET NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT uq_teams_team_leader UNIQUE (team_leader_id)
);

CREATE TABLE IF NOT EXISTS team_members (
	id                    UUID PRIMARY KEY,
	team_id               UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	user_id               UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	phone                 TEXT,
	compliance_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT uq_team_members_member UNIQUE (team_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members(user_id);

-- updated_at maintenance shared by all tables.
CREATE OR REPLACE FUNCTION set_updated_at()
RETURNS TRIGGER AS $$
BEGIN
	NEW.updated_at = NOW();
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_users_updated_at ON users;
CREATE TRIGGER trg_users_updated_at
	BEFORE UPDATE ON users
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_teams_updated_at ON teams;
CREATE TRIGGER trg_teams_updated_at
	BEFORE UPDATE ON teams
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_team_members_updated_at ON team_members;
CREATE TRIGGER trg_team_members_updated_at
	BEFORE UPDATE ON team_members
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();
`

const migration0002Schedules = `
-- Worker schedules: a single-date shift OR a recurring weekly pattern,
-- discriminated by which of scheduled_date / day_of_week is set.

CREATE TABLE IF NOT EXISTS worker_schedules (
	id                      UUID PRIMARY KEY,
	worker_id               UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	team_id                 UUID REFERENCES teams(id) ON DELETE SET NULL,
	scheduled_date          DATE,
	day_of_week             INTEGER,
	effective_date          DATE,
	expiry_date             DATE,
	start_time              TIME NOT NULL,
	end_time                TIME NOT NULL,
	requires_daily_checkin  BOOLEAN NOT NULL DEFAULT FALSE,
	checkin_window_start    TIME,
	checkin_window_end      TIME,
	is_active               BOOLEAN NOT NULL DEFAULT TRUE,
	created_by              UUID REFERENCES users(id) ON DELETE SET NULL,
	approved_by             UUID REFERENCES users(id) ON DELETE SET NULL,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_worker_schedules_schedule_mode CHECK (
		(scheduled_date IS NOT NULL AND day_of_week IS NULL)
		OR (scheduled_date IS NULL AND day_of_week IS NOT NULL)
	),
	CONSTRAINT chk_worker_schedules_day_of_week CHECK (day_of_week IS NULL OR day_of_week BETWEEN 0 AND 6),
	CONSTRAINT chk_worker_schedules_time_order CHECK (end_time > start_time),
	CONSTRAINT chk_worker_schedules_expiry_order CHECK (
		expiry_date IS NULL OR effective_date IS NULL OR expiry_date >= effective_date
	),
	CONSTRAINT chk_worker_schedules_checkin_window CHECK (
		NOT requires_daily_checkin
		OR (checkin_window_start IS NOT NULL AND checkin_window_end IS NOT NULL)
	)
);

-- No double-booking, per mode.
CREATE UNIQUE INDEX IF NOT EXISTS uq_worker_schedules_single_slot
	ON worker_schedules(worker_id, scheduled_date, start_time)
	WHERE scheduled_date IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS uq_worker_schedules_recurring_slot
	ON worker_schedules(worker_id, day_of_week, start_time)
	WHERE day_of_week IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_worker_schedules_worker ON worker_schedules(worker_id) WHERE is_active;

DROP TRIGGER IF EXISTS trg_worker_schedules_updated_at ON worker_schedules;
CREATE TRIGGER trg_worker_schedules_updated_at
	BEFORE UPDATE ON worker_schedules
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();
`

const migration0003ExceptionsCheckins = `
-- Worker exceptions (cases) and daily check-ins.
-- Case lifecycle status lives in the notes JSON, not in a column.

CREATE TABLE IF NOT EXISTS worker_exceptions (
	id              UUID PRIMARY KEY,
	user_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	team_id         UUID REFERENCES teams(id) ON DELETE SET NULL,
	exception_type  TEXT NOT NULL,
	reason          TEXT NOT NULL,
	start_date      DATE NOT NULL,
	end_date        DATE,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	assigned_to_whs BOOLEAN NOT NULL DEFAULT FALSE,
	clinician_id    UUID REFERENCES users(id) ON DELETE SET NULL,
	deactivated_at  TIMESTAMPTZ,
	notes           TEXT,
	created_by      UUID REFERENCES users(id) ON DELETE SET NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_worker_exceptions_exception_type CHECK (
		exception_type IN ('transfer', 'accident', 'injury', 'medical_leave', 'other')
	)
);

-- At most one active exception per worker. Concurrent creates race here and
-- the second insert fails with a uniqueness violation.
CREATE UNIQUE INDEX IF NOT EXISTS uq_worker_exceptions_one_active
	ON worker_exceptions(user_id)
	WHERE is_active;

-- Fast active-exception lookups keyed by user, used by the schedule filter.
CREATE INDEX IF NOT EXISTS idx_worker_exceptions_active_user
	ON worker_exceptions(user_id, start_date, end_date)
	WHERE is_active;

CREATE TABLE IF NOT EXISTS daily_checkins (
	id                  UUID PRIMARY KEY,
	user_id             UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	check_in_date       DATE NOT NULL,
	pain_score          INTEGER NOT NULL,
	fatigue_score       INTEGER NOT NULL,
	sleep_score         INTEGER NOT NULL,
	stress_score        INTEGER NOT NULL,
	predicted_readiness TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT uq_daily_checkins_checkin_per_day UNIQUE (user_id, check_in_date),
	CONSTRAINT chk_daily_checkins_pain_score CHECK (pain_score BETWEEN 0 AND 10),
	CONSTRAINT chk_daily_checkins_fatigue_score CHECK (fatigue_score BETWEEN 0 AND 10),
	CONSTRAINT chk_daily_checkins_sleep_score CHECK (sleep_score BETWEEN 0 AND 10),
	CONSTRAINT chk_daily_checkins_stress_score CHECK (stress_score BETWEEN 0 AND 10),
	CONSTRAINT chk_daily_checkins_readiness CHECK (
		predicted_readiness IS NULL OR predicted_readiness IN ('Green', 'Yellow', 'Red')
	)
);

CREATE TABLE IF NOT EXISTS warm_ups (
	id           UUID PRIMARY KEY,
	user_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	warm_up_date DATE NOT NULL,
	completed    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT uq_warm_ups_per_day UNIQUE (user_id, warm_up_date)
);

DROP TRIGGER IF EXISTS trg_worker_exceptions_updated_at ON worker_exceptions;
CREATE TRIGGER trg_worker_exceptions_updated_at
	BEFORE UPDATE ON worker_exceptions
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_daily_checkins_updated_at ON daily_checkins;
CREATE TRIGGER trg_daily_checkins_updated_at
	BEFORE UPDATE ON daily_checkins
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();

-- Closes exceptions whose end_date has passed. Invoked externally (cron),
-- or by the optional in-process sweeper.
CREATE OR REPLACE FUNCTION deactivate_expired_exceptions()
RETURNS INTEGER AS $$
DECLARE
	affected INTEGER;
BEGIN
	UPDATE worker_exceptions
	SET is_active = FALSE, deactivated_at = NOW()
	WHERE is_active AND end_date IS NOT NULL AND end_date < CURRENT_DATE;
	GET DIAGNOSTICS affected = ROW_COUNT;
	RETURN affected;
END;
$$ LANGUAGE plpgsql;
`

const migration0004IncidentsNotificationsAppointments = `
-- Incidents, notification fan-out records and clinician appointments.

CREATE TABLE IF NOT EXISTS incidents (
	id            UUID PRIMARY KEY,
	worker_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	team_id       UUID REFERENCES teams(id) ON DELETE SET NULL,
	exception_id  UUID REFERENCES worker_exceptions(id) ON DELETE SET NULL,
	incident_date DATE NOT NULL,
	incident_type TEXT NOT NULL,
	description   TEXT NOT NULL,
	severity      TEXT,
	status        TEXT NOT NULL DEFAULT 'open',
	reported_by   UUID REFERENCES users(id) ON DELETE SET NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_incidents_status CHECK (status IN ('open', 'assigned', 'closed'))
);

CREATE INDEX IF NOT EXISTS idx_incidents_worker ON incidents(worker_id);
CREATE INDEX IF NOT EXISTS idx_incidents_exception ON incidents(exception_id);

CREATE TABLE IF NOT EXISTS notifications (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	data       JSONB,
	is_read    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_notifications_notification_type CHECK (
		type IN ('incident_assigned', 'case_updated', 'case_closed', 'system')
	)
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE NOT is_read;

CREATE TABLE IF NOT EXISTS appointments (
	id                  UUID PRIMARY KEY,
	exception_id        UUID NOT NULL REFERENCES worker_exceptions(id) ON DELETE CASCADE,
	clinician_id        UUID NOT NULL REFERENCES users(id),
	worker_id           UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	appointment_date    DATE NOT NULL,
	start_time          TIME,
	location            TEXT,
	status              TEXT NOT NULL DEFAULT 'pending',
	cancellation_reason TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_appointments_status CHECK (
		status IN ('pending', 'confirmed', 'completed', 'cancelled', 'declined')
	)
);

CREATE INDEX IF NOT EXISTS idx_appointments_clinician ON appointments(clinician_id, appointment_date);
CREATE INDEX IF NOT EXISTS idx_appointments_worker ON appointments(worker_id, appointment_date);

DROP TRIGGER IF EXISTS trg_incidents_updated_at ON incidents;
CREATE TRIGGER trg_incidents_updated_at
	BEFORE UPDATE ON incidents
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_appointments_updated_at ON appointments;
CREATE TRIGGER trg_appointments_updated_at
	BEFORE UPDATE ON appointments
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();
`

const migration0005Rehabilitation = `
-- Rehabilitation plans, their exercises and daily completions.

CREATE TABLE IF NOT EXISTS rehabilitation_plans (
	id            UUID PRIMARY KEY,
	exception_id  UUID NOT NULL REFERENCES worker_exceptions(id) ON DELETE CASCADE,
	clinician_id  UUID REFERENCES users(id) ON DELETE SET NULL,
	name          TEXT NOT NULL,
	start_date    DATE NOT NULL,
	duration_days INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_rehabilitation_plans_status CHECK (status IN ('active', 'completed', 'cancelled')),
	CONSTRAINT chk_rehabilitation_plans_duration CHECK (duration_days BETWEEN 1 AND 365)
);

-- One active plan per case.
CREATE UNIQUE INDEX IF NOT EXISTS uq_rehabilitation_plans_active_plan
	ON rehabilitation_plans(exception_id)
	WHERE status = 'active';

CREATE TABLE IF NOT EXISTS rehabilitation_exercises (
	id          UUID PRIMARY KEY,
	plan_id     UUID NOT NULL REFERENCES rehabilitation_plans(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	description TEXT,
	sort_order  INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rehabilitation_exercises_plan ON rehabilitation_exercises(plan_id, sort_order);

CREATE TABLE IF NOT EXISTS rehabilitation_plan_completions (
	id              UUID PRIMARY KEY,
	plan_id         UUID NOT NULL REFERENCES rehabilitation_plans(id) ON DELETE CASCADE,
	exercise_id     UUID NOT NULL REFERENCES rehabilitation_exercises(id) ON DELETE CASCADE,
	user_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	completion_date DATE NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT uq_rehabilitation_plan_completions_completion UNIQUE (plan_id, exercise_id, user_id, completion_date)
);

CREATE TABLE IF NOT EXISTS login_logs (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	ip_address TEXT,
	user_agent TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_login_logs_user ON login_logs(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS transcriptions (
	id           UUID PRIMARY KEY,
	exception_id UUID REFERENCES worker_exceptions(id) ON DELETE SET NULL,
	created_by   UUID REFERENCES users(id) ON DELETE SET NULL,
	content      TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

DROP TRIGGER IF EXISTS trg_rehabilitation_plans_updated_at ON rehabilitation_plans;
CREATE TRIGGER trg_rehabilitation_plans_updated_at
	BEFORE UPDATE ON rehabilitation_plans
	FOR EACH ROW
	EXECUTE FUNCTION set_updated_at();
`

const migration0006NotificationTypesAppointmentGuard = `
-- Two later schema changes shipped together: the notification type set grew
-- twice, and the appointment date rule was tightened.

-- New notification types. The type set is fixed at the schema level; adding
-- a type always requires a migration.
ALTER TABLE notifications DROP CONSTRAINT IF EXISTS chk_notifications_notification_type;
ALTER TABLE notifications ADD CONSTRAINT chk_notifications_notification_type CHECK (
	type IN (
		'incident_assigned', 'case_updated', 'case_closed', 'system',
		'worker_not_fit_to_work', 'case_assigned_to_clinician'
	)
);

-- One-time remediation: rows that would violate the tightened rule are
-- force-cancelled so the constraint can be added.
UPDATE appointments
SET status = 'cancelled',
	cancellation_reason = COALESCE(cancellation_reason, 'auto-cancelled: appointment date had passed')
WHERE appointment_date < CURRENT_DATE
	AND status NOT IN ('completed', 'cancelled', 'declined');

ALTER TABLE appointments DROP CONSTRAINT IF EXISTS chk_appointments_appointment_date;
ALTER TABLE appointments ADD CONSTRAINT chk_appointments_appointment_date CHECK (
	appointment_date >= CURRENT_DATE OR status IN ('completed', 'cancelled', 'declined')
);
`
