package appointment

import (
	"database/sql"
	"strings"
	"time"
)

func joinColumns() string {
	return strings.Join(columns, ", ")
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
