package googlesheets

import (
	"time"

	sheetbind "github.com/ideamans/go-sheetbind"
)

// DefaultSessionConfig returns the recommended default configuration for
// sessions over the Sheets API, with longer retry intervals to respect API
// quotas
func DefaultSessionConfig() *sheetbind.Config {
	return &sheetbind.Config{
		MaxRetries:    3,
		RetryInterval: 20 * time.Second,
	}
}
