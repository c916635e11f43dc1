package report

import (
	"fmt"
	"time"
)

// Mode selects how the report period is derived.
type Mode string

const (
	// ModePreviousMonth covers the previous calendar month, resolved at run time.
	ModePreviousMonth Mode = "previous_month"
	// ModeDateRange covers an explicit inclusive date range.
	ModeDateRange Mode = "date_range"
)

// Request describes a single report run. Start and End are date-only values
// and are meaningful only when Mode is ModeDateRange.
type Request struct {
	Mode  Mode
	Start time.Time
	End   time.Time
}

// PreviousMonth returns a request for the previous calendar month.
func PreviousMonth() Request {
	return Request{Mode: ModePreviousMonth}
}

// DateRange returns a request for the inclusive range [start, end].
// End must not precede start.
func DateRange(start, end time.Time) (Request, error) {
	if end.Before(start) {
		return Request{}, fmt.Errorf("start date %s is after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return Request{Mode: ModeDateRange, Start: start, End: end}, nil
}

// Period resolves the request into concrete report bounds. For
// ModePreviousMonth the bounds are the first and last day of the month
// preceding now; a run in January resolves to December of the previous year.
func (r Request) Period(now time.Time) (time.Time, time.Time) {
	if r.Mode != ModePreviousMonth {
		return r.Start, r.End
	}
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastOfPrevious := firstOfCurrent.AddDate(0, 0, -1)
	firstOfPrevious := time.Date(lastOfPrevious.Year(), lastOfPrevious.Month(), 1, 0, 0, 0, 0, now.Location())
	return firstOfPrevious, lastOfPrevious
}
