package sheetbind

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Registry is a stateless view over a Backend's live instances and
// documents. It never caches: every call re-queries the backend, so the
// answer always reflects the host's current state.
type Registry struct {
	backend Backend
}

// NewRegistry wraps a backend.
func NewRegistry(backend Backend) *Registry {
	return &Registry{backend: backend}
}

// ListInstances enumerates the running application instances.
func (r *Registry) ListInstances(ctx context.Context) ([]Instance, error) {
	return r.backend.Instances(ctx)
}

// DocumentsOf enumerates the open documents of one instance.
func (r *Registry) DocumentsOf(ctx context.Context, inst Instance) ([]Document, error) {
	return inst.Documents(ctx)
}

// ActiveInstance returns the most recently activated instance, starting one
// if none is running.
func (r *Registry) ActiveInstance(ctx context.Context) (Instance, error) {
	return r.backend.ActiveInstance(ctx)
}

// ActiveDocument returns the active document of the active instance.
func (r *Registry) ActiveDocument(ctx context.Context) (Document, error) {
	inst, err := r.backend.ActiveInstance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active instance: %w", err)
	}
	return inst.ActiveDocument(ctx)
}

// Match pairs a matched document with the instance holding it.
type Match struct {
	Instance Instance
	Document Document
}

// FindDocuments scans every (instance, document) pair and collects those
// whose display name or full path equals the normalized identifier.
// Documents open in several instances produce several matches.
func (r *Registry) FindDocuments(ctx context.Context, identifier string) ([]Match, error) {
	want := NormalizeIdentifier(identifier)

	instances, err := r.backend.Instances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	var matches []Match
	for _, inst := range instances {
		docs, err := inst.Documents(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		for _, doc := range docs {
			// A never-saved document has no path; only its name can match.
			if NormalizeIdentifier(doc.Name()) == want ||
				(doc.Path() != "" && NormalizeIdentifier(doc.Path()) == want) {
				matches = append(matches, Match{Instance: inst, Document: doc})
			}
		}
	}
	return matches, nil
}

// NormalizeIdentifier lowercases an identifier and normalizes its path
// separators for the host platform, so comparisons are case-insensitive and
// separator-insensitive.
func NormalizeIdentifier(identifier string) string {
	s := strings.ToLower(strings.TrimSpace(identifier))
	if s == "" {
		return s
	}
	return filepath.ToSlash(s)
}
