package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jembi/datim-update-infoman/internal/config"
)

// parseTimeout accepts a Go duration ("45s", "2m") or a bare number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, &config.UsageError{Msg: fmt.Sprintf("invalid timeout %q", s)}
}
