package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MendoxIta/haos-budget/internal/core"
)

// endDateLayouts are tried in order when parsing a template end date.
// The stored format is YYYY-MM-DD; full timestamps are accepted for
// snapshots written by older builds.
var endDateLayouts = []string{"2006-01-02", time.RFC3339}

// ActiveAt reports whether the template may still spawn items at ref.
// A template with no end date is always active. An unparsable end date
// is logged and treated as absent rather than disabling the template.
func ActiveAt(ctx context.Context, tpl core.RecurringTemplate, ref time.Time) bool {
	if tpl.EndDate == "" {
		return true
	}
	end, err := parseEndDate(tpl.EndDate)
	if err != nil {
		slog.WarnContext(ctx, "Invalid end_date format, treating template as open-ended",
			"recurring_id", tpl.ID,
			"end_date", tpl.EndDate,
			"error", err)
		return true
	}
	return !ref.After(end)
}

// ShouldMaterialize reports whether adding or re-applying tpl at ref
// should produce an item for ref's month: the month day must not have
// passed the template's target day, and the template must still be
// active. A DayOfMonth beyond the length of ref's month simply never
// matches that month.
func ShouldMaterialize(ctx context.Context, tpl core.RecurringTemplate, ref time.Time) bool {
	if ref.Day() > tpl.DayOfMonth {
		return false
	}
	return ActiveAt(ctx, tpl, ref)
}

// Materialize produces a fresh item from tpl, stamped at ref and linked
// back through RecurringID.
func Materialize(tpl core.RecurringTemplate, ref time.Time) core.Item {
	return core.Item{
		ID:          uuid.NewString(),
		Amount:      tpl.Amount,
		Description: tpl.Description,
		Category:    tpl.Category,
		Timestamp:   ref,
		RecurringID: tpl.ID,
	}
}

func parseEndDate(s string) (time.Time, error) {
	var err error
	for _, layout := range endDateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
