package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sheetbind "github.com/ideamans/go-sheetbind"
	"github.com/ideamans/go-sheetbind/adapters/backendtest"
	"github.com/ideamans/go-sheetbind/adapters/excel"
	"github.com/ideamans/go-sheetbind/adapters/googlesheets"
)

type backendCase struct {
	name        string
	description string
	factory     backendtest.Factory
}

// getTestBackends returns all backends to test. Excel runs everywhere;
// Google Sheets only with credentials and a test spreadsheet configured.
func getTestBackends(t *testing.T) []backendCase {
	envPath := filepath.Join("..", "..", ".env")
	if _, err := os.Stat(envPath); err == nil {
		loadEnvFile(envPath)
	}

	cases := []backendCase{
		{
			name:        "Excel",
			description: "excelize-backed local files",
			factory: func(t *testing.T) sheetbind.Backend {
				backend, err := excel.New(nil)
				if err != nil {
					t.Fatalf("Failed to create Excel backend: %v", err)
				}
				return backend
			},
		},
	}

	spreadsheetID := os.Getenv("TEST_GOOGLE_SHEET_ID")
	jsonPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	switch {
	case spreadsheetID == "":
		t.Log("Skipping Google Sheets tests: TEST_GOOGLE_SHEET_ID not set")
	case jsonPath == "":
		t.Log("Skipping Google Sheets tests: GOOGLE_APPLICATION_CREDENTIALS not set")
	default:
		if !filepath.IsAbs(jsonPath) {
			jsonPath = filepath.Join("..", "..", jsonPath)
		}
		cases = append(cases, backendCase{
			name:        "GoogleSheets",
			description: "Google Sheets API with JSON key auth",
			factory: func(t *testing.T) sheetbind.Backend {
				backend, err := googlesheets.NewWithJSONKeyFile(context.Background(), jsonPath)
				if err != nil {
					t.Fatalf("Failed to create Google Sheets backend: %v", err)
				}
				return backend
			},
		})
	}

	return cases
}

func TestBackendIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range getTestBackends(t) {
		t.Run(tc.name, func(t *testing.T) {
			t.Logf("Testing with %s", tc.description)

			t.Run("Contract", func(t *testing.T) {
				backendtest.Run(t, tc.factory)
			})

			t.Run("SessionScenario", func(t *testing.T) {
				testSessionScenario(t, tc.factory(t))
			})
		})
	}
}

// testSessionScenario drives one full resolve/write/expand/read cycle
// through the public Session API.
func testSessionScenario(t *testing.T, backend sheetbind.Backend) {
	ctx := context.Background()
	session := sheetbind.New(backend, nil)

	doc, err := session.Resolve(ctx, sheetbind.NewDocumentRef)
	if err != nil {
		t.Fatalf("Resolve(new) error = %v", err)
	}
	defer doc.Close(ctx)

	seed, err := session.Range(ctx, "A1:C3")
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	err = seed.SetValue(ctx, [][]interface{}{
		{"name", "score", "active"},
		{"alice", int64(90), true},
		{"bob", int64(75), false},
	})
	if err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}

	anchor, err := session.Range(ctx, "A1")
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	table, err := anchor.Table(ctx)
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	if rows, cols := table.Shape(); rows != 3 || cols != 3 {
		t.Fatalf("Table() shape = %dx%d, want 3x3", rows, cols)
	}

	got, err := table.Value(ctx)
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	data, ok := got.([][]interface{})
	if !ok {
		t.Fatalf("Value() = %T, want [][]interface{}", got)
	}
	if data[1][0] != "alice" {
		t.Errorf("Value()[1][0] = %v, want alice", data[1][0])
	}

	active, err := session.Resolve(ctx, sheetbind.ActiveDocumentRef)
	if err != nil {
		t.Fatalf("Resolve(active) error = %v", err)
	}
	if active.Key() != doc.Key() {
		t.Errorf("Resolve(active) = %q, want %q", active.Key(), doc.Key())
	}

	byName, err := session.Resolve(ctx, doc.Name())
	if err != nil {
		t.Fatalf("Resolve(%q) error = %v", doc.Name(), err)
	}
	if byName.Key() != doc.Key() {
		t.Errorf("Resolve(name) = %q, want %q", byName.Key(), doc.Key())
	}
}

// loadEnvFile loads environment variables from a .env file.
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		if key == "TEST_CLIENT_PRIVATE_KEY" {
			value = strings.ReplaceAll(value, "\\n", "\n")
		}
		os.Setenv(key, value)
	}

	return nil
}
