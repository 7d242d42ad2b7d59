package export

import (
	"fmt"
	"strings"
	"time"
)

// stampLayout is the compact {timestamp} format, e.g. "20240115-1030".
const stampLayout = "20060102-1504"

// ResolvePath expands the placeholder tokens {year}, {month}, {day} and
// {timestamp} in a destination path template. Values are derived from instant
// in its own location (local time at export time): {year} is 4 digits,
// {month} and {day} are zero-padded to 2, {timestamp} uses the compact
// YYYYMMDD-HHmm form.
//
// Each token is replaced independently at every occurrence; there is no
// recursive expansion, and unrecognised {...} tokens are left verbatim so
// legacy profiles may embed literal braces. A template without tokens passes
// through unchanged.
func ResolvePath(template string, instant time.Time) string {
	r := strings.NewReplacer(
		"{year}", fmt.Sprintf("%04d", instant.Year()),
		"{month}", fmt.Sprintf("%02d", int(instant.Month())),
		"{day}", fmt.Sprintf("%02d", instant.Day()),
		"{timestamp}", instant.Format(stampLayout),
	)
	return r.Replace(template)
}
