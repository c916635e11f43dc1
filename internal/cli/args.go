// Package cli parses command line arguments into a report request.
// Parsing happens before any configuration or network I/O, so a bad
// invocation never touches the database or the mail API.
package cli

import (
	"flag"
	"fmt"
	"io"
	"time"

	"reporter/internal/report"
)

const dateLayout = "2006-01-02"

const usageText = `Usage:
  reporter -last_month [-config PATH]
  reporter -between YYYY-MM-DD -and YYYY-MM-DD [-config PATH]

Flags:
  -last_month   generate the report for the previous calendar month
  -between      start date of an explicit report range
  -and          end date of an explicit report range (required with -between)
  -config       path to the configuration file (default: search reporter.yaml)`

// UsageError marks an invalid invocation. Runs failing with a UsageError
// exit with code 2 and print the usage text.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// Usage returns the command usage text.
func Usage() string { return usageText }

// Args is the parsed invocation.
type Args struct {
	Request    report.Request
	ConfigPath string
}

// Parse validates argv (without the program name) and builds the report
// request. Exactly one of -last_month and -between must be given; -and is
// required with -between and dates must be YYYY-MM-DD with start <= end.
func Parse(argv []string) (Args, error) {
	fs := flag.NewFlagSet("reporter", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	lastMonth := fs.Bool("last_month", false, "generate report for the previous month")
	between := fs.String("between", "", "start date (YYYY-MM-DD)")
	end := fs.String("and", "", "end date (YYYY-MM-DD)")
	configPath := fs.String("config", "", "path to configuration file")

	if err := fs.Parse(argv); err != nil {
		return Args{}, usageErrorf("invalid arguments: %v", err)
	}
	if fs.NArg() > 0 {
		return Args{}, usageErrorf("unexpected argument: %s", fs.Arg(0))
	}

	args := Args{ConfigPath: *configPath}

	switch {
	case *lastMonth && *between != "":
		return Args{}, usageErrorf("-last_month and -between are mutually exclusive")

	case *lastMonth:
		if *end != "" {
			return Args{}, usageErrorf("-and cannot be combined with -last_month")
		}
		args.Request = report.PreviousMonth()
		return args, nil

	case *between != "":
		if *end == "" {
			return Args{}, usageErrorf("-and is required when -between is specified")
		}
		start, err := parseDate(*between)
		if err != nil {
			return Args{}, usageErrorf("invalid -between date %q: expected YYYY-MM-DD", *between)
		}
		stop, err := parseDate(*end)
		if err != nil {
			return Args{}, usageErrorf("invalid -and date %q: expected YYYY-MM-DD", *end)
		}
		req, err := report.DateRange(start, stop)
		if err != nil {
			return Args{}, usageErrorf("%v", err)
		}
		args.Request = req
		return args, nil

	default:
		return Args{}, usageErrorf("one of -last_month or -between is required")
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
