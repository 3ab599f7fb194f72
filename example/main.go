package main

import (
	"context"
	"fmt"
	"log"
	"os"

	sheetbind "github.com/ideamans/go-sheetbind"
	"github.com/ideamans/go-sheetbind/adapters/googlesheets"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	// Authenticate with a service account JSON key file
	backend, err := googlesheets.NewWithJSONKeyFile(ctx, "./service-account.json")
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}

	// Create a session using recommended defaults for Google Sheets
	session := sheetbind.New(backend, googlesheets.DefaultSessionConfig())

	// Attach a spreadsheet by ID or full URL
	inst, err := backend.ActiveInstance(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	doc, err := inst.Open(ctx, os.Getenv("SPREADSHEET_ID"))
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	fmt.Printf("Opened %q\n", doc.Name())

	// Write a header row and some data
	header, err := session.Range(ctx, "A1:C1")
	if err != nil {
		return err
	}
	if err := header.SetValue(ctx, []interface{}{"name", "email", "age"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	body, err := session.Range(ctx, "A2:C3")
	if err != nil {
		return err
	}
	err = body.SetValue(ctx, [][]interface{}{
		{"John Doe", "john@example.com", int64(30)},
		{"Jane Smith", "jane@example.com", int64(25)},
	})
	if err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	// Read the whole table back by expanding from the header cell
	anchor, err := session.RangeWith(ctx, sheetbind.Options{Expand: sheetbind.ExpandTable}, "A1")
	if err != nil {
		return err
	}
	value, err := anchor.Value(ctx)
	if err != nil {
		return fmt.Errorf("failed to read table: %w", err)
	}

	rows := value.([][]interface{})
	fmt.Printf("Read %d rows:\n", len(rows))
	for _, row := range rows {
		fmt.Printf("  %v\n", row)
	}

	// Address arithmetic: the last data cell of the table
	table, err := anchor.Table(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Table covers %s\n", table.Address(false, false, true, false))

	return nil
}
