package database

import (
	"context"
	"database/sql"
	"time"
)

// ActiveAlertRules returns every active alert joined with its station,
// pollutant and owner.
func (db *DB) ActiveAlertRules(ctx context.Context) ([]*AlertRule, error) {
	query := `
		SELECT a.id, a.user_id, a.station_id, a.pollutant_id, a.threshold,
		       a.trigger_condition, a.notification_method, a.is_active,
		       a.triggered_at, a.created_at,
		       s.name, s.city, p.name,
		       COALESCE(u.full_name, ''), COALESCE(u.email, '')
		FROM alerts a
		JOIN stations s ON s.id = a.station_id
		JOIN pollutants p ON p.id = a.pollutant_id
		LEFT JOIN app_users u ON u.id = a.user_id
		WHERE a.is_active = true
		ORDER BY a.id
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*AlertRule
	for rows.Next() {
		var (
			r           AlertRule
			triggeredAt sql.NullTime
		)
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.StationID,
			&r.PollutantID,
			&r.Threshold,
			&r.TriggerCondition,
			&r.NotificationMethod,
			&r.IsActive,
			&triggeredAt,
			&r.CreatedAt,
			&r.StationName,
			&r.StationCity,
			&r.PollutantName,
			&r.UserName,
			&r.UserEmail,
		); err != nil {
			return nil, err
		}
		if triggeredAt.Valid {
			t := triggeredAt.Time
			r.TriggeredAt = &t
		}
		rules = append(rules, &r)
	}

	return rules, rows.Err()
}

// MarkAlertTriggered records the last time an alert fired
func (db *DB) MarkAlertTriggered(ctx context.Context, alertID int64, at time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE alerts SET triggered_at = $1 WHERE id = $2`, at.UTC(), alertID)
	return err
}
