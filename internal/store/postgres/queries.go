package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ooAKLoo/AppScope/internal/model"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, app_id, event, user_id, properties, created_at, event_date`

// feedbackColumns is the column list used for SELECT statements on the feedbacks table.
const feedbackColumns = `id, app_id, content, user_id, contact, properties, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryAppendEvent(ctx context.Context, db executor, e *model.Event) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO events (app_id, event, user_id, properties, created_at, event_date)
		VALUES ($1, $2, $3, $4, $5, $6::date)
		RETURNING id`,
		e.AppID,
		e.Name,
		e.UserID,
		propertiesText(e.Properties),
		e.CreatedAt,
		model.FormatDate(e.EventDate),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func queryAppendFeedback(ctx context.Context, db executor, f *model.Feedback) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO feedbacks (app_id, content, user_id, contact, properties, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		f.AppID,
		f.Content,
		nullStringPtr(f.UserID),
		nullStringPtr(f.Contact),
		propertiesText(f.Properties),
		f.CreatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// queryListAppSummaries aggregates every app seen in the event log in one
// pass: distinct openers on today and all-time installs.
func queryListAppSummaries(ctx context.Context, db executor, today time.Time) ([]model.AppSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT app_id,
			COUNT(DISTINCT user_id) FILTER (WHERE event = $1 AND event_date = $3::date) AS dau_today,
			COUNT(*) FILTER (WHERE event = $2) AS total_installs
		FROM events
		GROUP BY app_id
		ORDER BY app_id`,
		model.EventOpen, model.EventInstall, model.FormatDate(today),
	)
	if err != nil {
		return nil, fmt.Errorf("list app summaries: %w", err)
	}
	defer rows.Close()

	apps := []model.AppSummary{}
	for rows.Next() {
		var a model.AppSummary
		if err := rows.Scan(&a.AppID, &a.DAUToday, &a.TotalInstalls); err != nil {
			return nil, fmt.Errorf("scan app summary: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate app summaries: %w", err)
	}
	return apps, nil
}

func queryDailyActiveUsers(ctx context.Context, db executor, appID string, since time.Time) ([]model.DauPoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT event_date, COUNT(DISTINCT user_id)
		FROM events
		WHERE app_id = $1 AND event = $2 AND event_date >= $3::date
		GROUP BY event_date
		ORDER BY event_date`,
		appID, model.EventOpen, model.FormatDate(since),
	)
	if err != nil {
		return nil, fmt.Errorf("daily active users: %w", err)
	}
	defer rows.Close()

	points := []model.DauPoint{}
	for rows.Next() {
		var (
			date  time.Time
			count int64
		)
		if err := rows.Scan(&date, &count); err != nil {
			return nil, fmt.Errorf("scan dau point: %w", err)
		}
		points = append(points, model.DauPoint{Date: model.FormatDate(date), DAU: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dau points: %w", err)
	}
	return points, nil
}

func queryCountInstalls(ctx context.Context, db executor, appID string) (int64, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE app_id = $1 AND event = $2`,
		appID, model.EventInstall,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count installs: %w", err)
	}
	return total, nil
}

func queryDailyInstalls(ctx context.Context, db executor, appID string, since time.Time) ([]model.InstallPoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT event_date, COUNT(*)
		FROM events
		WHERE app_id = $1 AND event = $2 AND event_date >= $3::date
		GROUP BY event_date
		ORDER BY event_date`,
		appID, model.EventInstall, model.FormatDate(since),
	)
	if err != nil {
		return nil, fmt.Errorf("daily installs: %w", err)
	}
	defer rows.Close()

	points := []model.InstallPoint{}
	for rows.Next() {
		var (
			date  time.Time
			count int64
		)
		if err := rows.Scan(&date, &count); err != nil {
			return nil, fmt.Errorf("scan install point: %w", err)
		}
		points = append(points, model.InstallPoint{Date: model.FormatDate(date), Installs: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate install points: %w", err)
	}
	return points, nil
}

// retentionOffsets renders model.RetentionOffsets as a Postgres int array.
func retentionOffsets() pq.Int64Array {
	offsets := make(pq.Int64Array, len(model.RetentionOffsets))
	for i, o := range model.RetentionOffsets {
		offsets[i] = int64(o)
	}
	return offsets
}

// queryCohortMembers returns one row per (user, tracked return date) for every
// user whose first open falls on or after since. Users with no open on any
// tracked offset still appear once with a NULL active date.
func queryCohortMembers(ctx context.Context, db executor, appID string, since time.Time) ([]model.CohortMember, error) {
	rows, err := db.QueryContext(ctx, `
		WITH cohort AS (
			SELECT user_id, MIN(event_date) AS first_date
			FROM events
			WHERE app_id = $1 AND event = $2
			GROUP BY user_id
		)
		SELECT DISTINCT c.user_id, c.first_date, e.event_date
		FROM cohort c
		LEFT JOIN events e
			ON e.app_id = $1
			AND e.event = $2
			AND e.user_id = c.user_id
			AND e.event_date - c.first_date = ANY($4::int[])
		WHERE c.first_date >= $3::date
		ORDER BY c.first_date DESC, c.user_id`,
		appID, model.EventOpen, model.FormatDate(since), retentionOffsets(),
	)
	if err != nil {
		return nil, fmt.Errorf("cohort members: %w", err)
	}
	defer rows.Close()

	var members []model.CohortMember
	for rows.Next() {
		var (
			m      model.CohortMember
			active sql.NullTime
		)
		if err := rows.Scan(&m.UserID, &m.CohortDate, &active); err != nil {
			return nil, fmt.Errorf("scan cohort member: %w", err)
		}
		m.CohortDate = model.DateOf(m.CohortDate)
		if active.Valid {
			m.ActiveDate = model.DateOf(active.Time)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cohort members: %w", err)
	}
	return members, nil
}

func queryListFeedback(ctx context.Context, db executor, appID string, limit int) ([]*model.Feedback, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks
		WHERE app_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		appID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()
	return collectFeedback(rows)
}

func queryListEventsByDate(ctx context.Context, db executor, date time.Time) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_date = $1::date ORDER BY id`,
		model.FormatDate(date),
	)
	if err != nil {
		return nil, fmt.Errorf("list events by date: %w", err)
	}
	defer rows.Close()

	events := []*model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func queryListFeedbackByDate(ctx context.Context, db executor, date time.Time) ([]*model.Feedback, error) {
	start := model.DateOf(date)
	rows, err := db.QueryContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY id`,
		start, model.AddDays(start, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback by date: %w", err)
	}
	defer rows.Close()
	return collectFeedback(rows)
}

func collectFeedback(rows *sql.Rows) ([]*model.Feedback, error) {
	items := []*model.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return items, nil
}
