package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinic/clinic/pkg/civil"
)

const microsPerMinute = int64(time.Minute / time.Microsecond)

// ClockParam encodes a wall-clock time for a TIME column.
func ClockParam(c civil.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * microsPerMinute, Valid: true}
}

// ClockValue decodes a TIME column, dropping seconds.
func ClockValue(t pgtype.Time) civil.Clock {
	return civil.Clock(t.Microseconds / microsPerMinute)
}

// DateParam encodes a calendar date for a DATE column.
func DateParam(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.Time(), Valid: !d.IsZero()}
}

// DateValue decodes a DATE column.
func DateValue(d pgtype.Date) civil.Date {
	if !d.Valid {
		return civil.Date{}
	}
	return civil.DateOf(d.Time)
}
