package main

import (
	"context"
	"fmt"
	"log"

	sheetbind "github.com/ideamans/go-sheetbind"
	"github.com/ideamans/go-sheetbind/adapters/excel"
)

func main() {
	// Create an Excel backend (no authentication required)
	backend, err := excel.New(nil)
	if err != nil {
		log.Fatalf("Failed to create Excel backend: %v", err)
	}

	// Create a session using recommended defaults for Excel
	session := sheetbind.New(backend, excel.DefaultSessionConfig())
	ctx := context.Background()

	// 1. Start a blank workbook
	fmt.Println("Creating workbook...")
	doc, err := session.Resolve(ctx, sheetbind.NewDocumentRef)
	if err != nil {
		log.Fatalf("Failed to create workbook: %v", err)
	}
	defer doc.Close(ctx)

	// 2. Write a table of users
	fmt.Println("Writing data...")
	table, err := session.Range(ctx, "A1:D4")
	if err != nil {
		log.Fatalf("Failed to build range: %v", err)
	}
	err = table.SetValue(ctx, [][]interface{}{
		{"id", "name", "department", "active"},
		{int64(1), "Alice Johnson", "Engineering", true},
		{int64(2), "Bob Smith", "Marketing", true},
		{int64(3), "Charlie Brown", "Engineering", false},
	})
	if err != nil {
		log.Fatalf("Failed to write table: %v", err)
	}

	// 3. Expand from the header cell and read everything back
	anchor, err := session.RangeWith(ctx, sheetbind.Options{Expand: sheetbind.ExpandTable}, "A1")
	if err != nil {
		log.Fatalf("Failed to build range: %v", err)
	}
	value, err := anchor.Value(ctx)
	if err != nil {
		log.Fatalf("Failed to read table: %v", err)
	}
	for _, row := range value.([][]interface{}) {
		fmt.Printf("  %v\n", row)
	}

	// 4. Element access with negative indices and slices
	grown, err := anchor.Table(ctx)
	if err != nil {
		log.Fatalf("Failed to expand table: %v", err)
	}
	last, err := grown.At(-1)
	if err != nil {
		log.Fatalf("Failed to index table: %v", err)
	}
	fmt.Printf("Last cell is %s\n", last.Address(false, false, false, false))

	firstColumn, err := grown.SliceRC(sheetbind.SpanFrom(1), sheetbind.NewSpan(1, 2))
	if err != nil {
		log.Fatalf("Failed to slice table: %v", err)
	}
	names, err := firstColumn.Value(ctx)
	if err != nil {
		log.Fatalf("Failed to read names: %v", err)
	}
	fmt.Printf("Names: %v\n", names)

	// 5. Save the workbook to disk
	fmt.Println("Saving workbook...")
	if err := doc.(*excel.Document).Save("./example_data.xlsx"); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	fmt.Println("Example completed. Check ./example_data.xlsx for the data.")
}
