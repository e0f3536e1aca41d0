package redshift

import (
	"strconv"
	"strings"
)

// Options every COPY gets unless the caller already set them (or is loading
// PARQUET, where they do not apply).
var defaultCopyOptions = []string{"DATEFORMAT 'auto'", "COMPUPDATE ON", "TRUNCATECOLUMNS"}

const ignoreHeaderPrefix = "IGNOREHEADER "

// IgnoreHeaderError is returned when the IGNOREHEADER copy option cannot be
// interpreted.
type IgnoreHeaderError struct {
	Msg string
}

func (e *IgnoreHeaderError) Error() string { return e.Msg }

// addDefaultCopyOptions appends each default option whose keyword does not
// already appear in opts. Matching is on the first word only, so a caller's
// "COMPUPDATE OFF" suppresses the "COMPUPDATE ON" default.
func addDefaultCopyOptions(opts []string) []string {
	present := make(map[string]bool, len(opts))
	for _, opt := range opts {
		if fields := strings.Fields(strings.ToUpper(opt)); len(fields) > 0 {
			present[fields[0]] = true
		}
	}

	for _, def := range defaultCopyOptions {
		if !present[strings.Fields(def)[0]] {
			opts = append(opts, def)
		}
	}
	return opts
}

func combineOptions(opts []string) string {
	return strings.Join(opts, " ")
}

// ignoreHeaderCount extracts number_rows from an "IGNOREHEADER [ AS ]
// number_rows" option, or 0 when none is present. The AS keyword is not
// validated. More than one IGNOREHEADER entry is an error.
func ignoreHeaderCount(opts []string) (int, error) {
	var found []string
	for _, opt := range opts {
		if strings.HasPrefix(opt, ignoreHeaderPrefix) {
			found = append(found, opt)
		}
	}

	switch len(found) {
	case 0:
		return 0, nil
	case 1:
		fields := strings.Fields(strings.TrimSpace(found[0]))
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return 0, &IgnoreHeaderError{Msg: "invalid IGNOREHEADER row count: " + found[0]}
		}
		return n, nil
	default:
		return 0, &IgnoreHeaderError{Msg: "found more than one IGNOREHEADER in the options"}
	}
}

func removeIgnoreHeader(opts []string) []string {
	out := make([]string, 0, len(opts))
	for _, opt := range opts {
		if !strings.HasPrefix(opt, ignoreHeaderPrefix) {
			out = append(out, opt)
		}
	}
	return out
}
