package sheetbind

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Identifier sentinels accepted by Session.Resolve next to display names
// and file paths.
const (
	// NewDocumentRef resolves to a freshly created blank document in the
	// active instance.
	NewDocumentRef = "new"

	// ActiveDocumentRef resolves to the active document of the active
	// instance.
	ActiveDocumentRef = "active"
)

// Session is the entry point of the binding layer. It ties a Backend to the
// document resolver and range builder. A Session holds no host state of its
// own: active-instance and active-document questions are answered fresh by
// the registry on every call.
type Session struct {
	config    Config
	registry  *Registry
	converter Converter
}

// New creates a Session over the given backend and configuration
func New(backend Backend, config *Config) *Session {
	// Use default config if not provided
	if config == nil {
		config = &Config{
			MaxRetries:    3,
			RetryInterval: 1 * time.Second,
		}
	}

	// Set defaults for zero values
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 1 * time.Second
	}
	if config.Converter == nil {
		config.Converter = BasicConverter{}
	}

	return &Session{
		config:    *config,
		registry:  NewRegistry(backend),
		converter: config.Converter,
	}
}

// Registry returns the session's instance registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Resolve returns exactly one document handle for the given identifier, or
// fails with a precise reason. The identifier is a display name, a full
// path, or one of the sentinels NewDocumentRef and ActiveDocumentRef.
//
// An identifier that matches no open document but names an existing file is
// opened in the active instance, starting one if necessary.
func (s *Session) Resolve(ctx context.Context, identifier string) (Document, error) {
	switch NormalizeIdentifier(identifier) {
	case "":
		return nil, fmt.Errorf("empty document identifier: %w", ErrInvalidArguments)
	case NewDocumentRef:
		return s.createDocument(ctx)
	case ActiveDocumentRef:
		return s.registry.ActiveDocument(ctx)
	}

	matches, err := s.registry.FindDocuments(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to scan instances for %q: %w", identifier, err)
	}

	switch len(matches) {
	case 0:
		if info, err := os.Stat(identifier); err == nil && !info.IsDir() {
			return s.openDocument(ctx, identifier)
		}
		return nil, &NotFoundError{Identifier: identifier}
	case 1:
		return matches[0].Document, nil
	default:
		return nil, &AmbiguousError{Identifier: identifier, Matches: len(matches)}
	}
}

// openDocument opens a file from disk in the active instance with retry
// logic.
func (s *Session) openDocument(ctx context.Context, path string) (Document, error) {
	inst, err := s.registry.ActiveInstance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active instance: %w", err)
	}

	var doc Document
	err = s.withRetry(ctx, func() error {
		var openErr error
		doc, openErr = inst.Open(ctx, path)
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	return doc, nil
}

// createDocument creates a blank document in the active instance with retry
// logic.
func (s *Session) createDocument(ctx context.Context) (Document, error) {
	inst, err := s.registry.ActiveInstance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active instance: %w", err)
	}

	var doc Document
	err = s.withRetry(ctx, func() error {
		var createErr error
		doc, createErr = inst.Create(ctx)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// withRetry runs fn with exponential backoff. Resolution failures are not
// retried; this only guards the backend calls that touch the host.
func (s *Session) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= s.config.MaxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if i < s.config.MaxRetries {
			// Exponential backoff capped at the configured interval
			backoff := time.Duration(1<<uint(i)) * 100 * time.Millisecond
			if backoff > s.config.RetryInterval {
				backoff = s.config.RetryInterval
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("failed after %d retries: %w", s.config.MaxRetries, err)
}

// Sheets lists the sheets of doc, or of the active document when doc is
// nil.
func (s *Session) Sheets(ctx context.Context, doc Document) ([]Sheet, error) {
	if doc == nil {
		var err error
		doc, err = s.registry.ActiveDocument(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active document: %w", err)
		}
	}
	return doc.Sheets(ctx)
}

// activeSheet returns the active sheet of the active document. It is the
// implicit binding target for bare range forms, resolved exactly once at
// range construction.
func (s *Session) activeSheet(ctx context.Context) (Sheet, error) {
	doc, err := s.registry.ActiveDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active document: %w", err)
	}
	return doc.ActiveSheet(ctx)
}

// activeDocument returns the document that owns sheet lookups for bare and
// sheet-qualified range forms.
func (s *Session) activeDocument(ctx context.Context) (Document, error) {
	return s.registry.ActiveDocument(ctx)
}
