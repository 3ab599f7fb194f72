package sheetbind

import "time"

// Config represents configuration for a Session
type Config struct {
	MaxRetries    int           // Maximum number of retries for backend open/create calls (default: 3)
	RetryInterval time.Duration // Upper bound on the exponential retry backoff (default: 1s)
	Converter     Converter     // Default value converter (default: BasicConverter)
}
