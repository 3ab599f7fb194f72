package excel

import (
	"time"

	sheetbind "github.com/ideamans/go-sheetbind"
)

// Config holds configuration for the Excel backend
type Config struct {
	Password string // Workbook password for protected files, empty for none
}

// DefaultSessionConfig returns the recommended default configuration for
// sessions over local Excel files
func DefaultSessionConfig() *sheetbind.Config {
	return &sheetbind.Config{
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
	}
}
