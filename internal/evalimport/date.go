package evalimport

import (
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

var isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// isISODate reports whether s is a YYYY-MM-DD string naming a real calendar day.
// time.Parse rejects out-of-range days such as 2024-02-30.
func isISODate(s string) bool {
	if !isoDateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
