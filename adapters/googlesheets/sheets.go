// Package googlesheets implements a sheetbind.Backend over the Google
// Sheets API. One Instance is one authenticated Sheets service connection;
// documents are spreadsheets attached by ID or URL.
package googlesheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	sheetbind "github.com/ideamans/go-sheetbind"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Backend manages Sheets service connections.
type Backend struct {
	mu        sync.Mutex
	ctx       context.Context
	opts      []option.ClientOption
	instances []*Instance
	active    *Instance
	nextInst  int
}

// NewBackend creates a Google Sheets backend. The client options are used
// for every service connection the backend starts.
func NewBackend(ctx context.Context, opts ...option.ClientOption) *Backend {
	return &Backend{ctx: ctx, opts: opts}
}

// Instances implements sheetbind.Backend.
func (b *Backend) Instances(ctx context.Context) ([]sheetbind.Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]sheetbind.Instance, len(b.instances))
	for i, inst := range b.instances {
		out[i] = inst
	}
	return out, nil
}

// ActiveInstance implements sheetbind.Backend, starting a service
// connection when none exists.
func (b *Backend) ActiveInstance(ctx context.Context) (sheetbind.Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == nil {
		return b.startInstance(ctx)
	}
	return b.active, nil
}

// NewInstance implements sheetbind.Backend.
func (b *Backend) NewInstance(ctx context.Context) (sheetbind.Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.startInstance(ctx)
}

func (b *Backend) startInstance(ctx context.Context) (*Instance, error) {
	service, err := sheets.NewService(b.ctx, b.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	b.nextInst++
	inst := &Instance{backend: b, service: service, id: b.nextInst}
	b.instances = append(b.instances, inst)
	b.active = inst
	return inst, nil
}

// Instance is one authenticated Sheets service connection.
type Instance struct {
	backend *Backend
	service *sheets.Service
	id      int
	docs    []*Document
	active  *Document
}

// Documents implements sheetbind.Instance.
func (i *Instance) Documents(ctx context.Context) ([]sheetbind.Document, error) {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	out := make([]sheetbind.Document, len(i.docs))
	for j, d := range i.docs {
		out[j] = d
	}
	return out, nil
}

// ActiveDocument implements sheetbind.Instance.
func (i *Instance) ActiveDocument(ctx context.Context) (sheetbind.Document, error) {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	if i.active == nil {
		return nil, fmt.Errorf("connection %d has no attached spreadsheet: %w", i.id, sheetbind.ErrNotFound)
	}
	return i.active, nil
}

// Open implements sheetbind.Instance. The path is a spreadsheet ID or a
// full spreadsheet URL.
func (i *Instance) Open(ctx context.Context, path string) (sheetbind.Document, error) {
	id := SpreadsheetIDFromPath(path)

	meta, err := i.service.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %q: %w", id, err)
	}

	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()
	return i.addDocument(meta.SpreadsheetId, meta.Properties.Title), nil
}

// Create implements sheetbind.Instance.
func (i *Instance) Create(ctx context.Context) (sheetbind.Document, error) {
	meta, err := i.service.Spreadsheets.Create(&sheets.Spreadsheet{}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create spreadsheet: %w", err)
	}

	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()
	return i.addDocument(meta.SpreadsheetId, meta.Properties.Title), nil
}

// Activate implements sheetbind.Instance.
func (i *Instance) Activate(ctx context.Context) error {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	i.backend.active = i
	return nil
}

func (i *Instance) addDocument(spreadsheetID, title string) *Document {
	doc := &Document{
		instance:      i,
		spreadsheetID: spreadsheetID,
		title:         title,
	}
	i.docs = append(i.docs, doc)
	i.active = doc
	i.backend.active = i
	return doc
}

// SpreadsheetIDFromPath extracts the spreadsheet ID from a full URL, or
// returns the input unchanged when it is already a bare ID.
func SpreadsheetIDFromPath(path string) string {
	const marker = "/spreadsheets/d/"
	idx := strings.Index(path, marker)
	if idx < 0 {
		return path
	}
	rest := path[idx+len(marker):]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

// Document is one attached spreadsheet.
type Document struct {
	instance      *Instance
	spreadsheetID string
	title         string
	closed        bool
}

// Name implements sheetbind.Document.
func (d *Document) Name() string { return d.title }

// Path implements sheetbind.Document. The spreadsheet ID stands in for the
// on-disk path.
func (d *Document) Path() string { return d.spreadsheetID }

// Key implements sheetbind.Document. The same spreadsheet attached through
// two connections yields two documents with distinct keys, so the
// resolver's ambiguity detection applies across connections.
func (d *Document) Key() string {
	return fmt.Sprintf("conn%d/%s", d.instance.id, d.spreadsheetID)
}

// Sheets implements sheetbind.Document. Metadata is fetched fresh on every
// call, never cached.
func (d *Document) Sheets(ctx context.Context) ([]sheetbind.Sheet, error) {
	meta, err := d.metadata(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sheetbind.Sheet, len(meta.Sheets))
	for i, sh := range meta.Sheets {
		out[i] = &Sheet{doc: d, name: sh.Properties.Title, index: i + 1}
	}
	return out, nil
}

// Sheet implements sheetbind.Document.
func (d *Document) Sheet(ctx context.Context, name string) (sheetbind.Sheet, error) {
	meta, err := d.metadata(ctx)
	if err != nil {
		return nil, err
	}
	for i, sh := range meta.Sheets {
		if strings.EqualFold(sh.Properties.Title, name) {
			return &Sheet{doc: d, name: sh.Properties.Title, index: i + 1}, nil
		}
	}
	return nil, fmt.Errorf("sheet %q in %q: %w", name, d.title, sheetbind.ErrSheetNotFound)
}

// SheetAt implements sheetbind.Document.
func (d *Document) SheetAt(ctx context.Context, index int) (sheetbind.Sheet, error) {
	meta, err := d.metadata(ctx)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(meta.Sheets) {
		return nil, fmt.Errorf("sheet index %d in %q: %w", index, d.title, sheetbind.ErrSheetNotFound)
	}
	return &Sheet{doc: d, name: meta.Sheets[index-1].Properties.Title, index: index}, nil
}

// ActiveSheet implements sheetbind.Document. The Sheets API has no focus
// notion; the first sheet is the active one.
func (d *Document) ActiveSheet(ctx context.Context) (sheetbind.Sheet, error) {
	return d.SheetAt(ctx, 1)
}

// NamedRange implements sheetbind.Document over the spreadsheet's named
// ranges. GridRange coordinates are 0-based half-open and are converted to
// the 1-based closed model.
func (d *Document) NamedRange(ctx context.Context, name string) (sheetbind.Sheet, sheetbind.Region, error) {
	meta, err := d.metadata(ctx)
	if err != nil {
		return nil, sheetbind.Region{}, err
	}
	for _, nr := range meta.NamedRanges {
		if !strings.EqualFold(nr.Name, name) {
			continue
		}
		gr := nr.Range
		for i, sh := range meta.Sheets {
			if sh.Properties.SheetId != gr.SheetId {
				continue
			}
			region := sheetbind.NewRegion(
				sheetbind.Cell{Row: int(gr.StartRowIndex) + 1, Col: int(gr.StartColumnIndex) + 1},
				sheetbind.Cell{Row: int(gr.EndRowIndex), Col: int(gr.EndColumnIndex)},
			)
			return &Sheet{doc: d, name: sh.Properties.Title, index: i + 1}, region, nil
		}
	}
	return nil, sheetbind.Region{}, fmt.Errorf("named range %q in %q: %w", name, d.title, sheetbind.ErrNameNotFound)
}

// Activate implements sheetbind.Document.
func (d *Document) Activate(ctx context.Context) error {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return d.staleErr()
	}
	d.instance.active = d
	d.instance.backend.active = d.instance
	return nil
}

// Close implements sheetbind.Document. It detaches the spreadsheet from the
// connection; the spreadsheet itself lives on server side.
func (d *Document) Close(ctx context.Context) error {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return d.staleErr()
	}
	d.closed = true

	docs := d.instance.docs
	for i, doc := range docs {
		if doc == d {
			d.instance.docs = append(docs[:i], docs[i+1:]...)
			break
		}
	}
	if d.instance.active == d {
		d.instance.active = nil
		if len(d.instance.docs) > 0 {
			d.instance.active = d.instance.docs[len(d.instance.docs)-1]
		}
	}
	return nil
}

// checkOpen fails with a stale-handle error once the document is detached.
func (d *Document) checkOpen() error {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return d.staleErr()
	}
	return nil
}

func (d *Document) metadata(ctx context.Context) (*sheets.Spreadsheet, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}

	meta, err := d.instance.service.Spreadsheets.Get(d.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}
	return meta, nil
}

func (d *Document) staleErr() error {
	return fmt.Errorf("spreadsheet %q is detached: %w", d.title, sheetbind.ErrStaleHandle)
}

// Sheet is a handle on one sheet of a spreadsheet.
type Sheet struct {
	doc   *Document
	name  string
	index int
}

// Name implements sheetbind.Sheet.
func (s *Sheet) Name() string { return s.name }

// Index implements sheetbind.Sheet.
func (s *Sheet) Index() int { return s.index }

// Document implements sheetbind.Sheet.
func (s *Sheet) Document() sheetbind.Document { return s.doc }

// CellValue implements sheetbind.Sheet.
func (s *Sheet) CellValue(ctx context.Context, row, col int) (interface{}, error) {
	if err := s.doc.checkOpen(); err != nil {
		return nil, err
	}
	cell := fmt.Sprintf("%s!%s%d", s.name, sheetbind.ColumnName(col), row)
	resp, err := s.service().Spreadsheets.Values.Get(s.doc.spreadsheetID, cell).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get cell %s: %w", cell, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return nil, nil
	}
	return convertCellValue(resp.Values[0][0]), nil
}

// SetCellValue implements sheetbind.Sheet.
func (s *Sheet) SetCellValue(ctx context.Context, row, col int, value interface{}) error {
	if err := s.doc.checkOpen(); err != nil {
		return err
	}
	cell := fmt.Sprintf("%s!%s%d", s.name, sheetbind.ColumnName(col), row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{convertToSheetValue(value)}}}
	_, err := s.service().Spreadsheets.Values.Update(s.doc.spreadsheetID, cell, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update cell %s: %w", cell, err)
	}
	return nil
}

// CellFormula implements sheetbind.Sheet by rendering the cell as entered;
// formulas come back with a leading "=".
func (s *Sheet) CellFormula(ctx context.Context, row, col int) (string, error) {
	if err := s.doc.checkOpen(); err != nil {
		return "", err
	}
	cell := fmt.Sprintf("%s!%s%d", s.name, sheetbind.ColumnName(col), row)
	resp, err := s.service().Spreadsheets.Values.Get(s.doc.spreadsheetID, cell).
		ValueRenderOption("FORMULA").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to get cell %s: %w", cell, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	if str, ok := resp.Values[0][0].(string); ok && strings.HasPrefix(str, "=") {
		return str, nil
	}
	return "", nil
}

// RowCount implements sheetbind.Sheet using the sheet's used extent.
func (s *Sheet) RowCount(ctx context.Context) (int, error) {
	values, err := s.usedValues(ctx)
	if err != nil {
		return 0, err
	}
	return len(values), nil
}

// ColumnCount implements sheetbind.Sheet using the sheet's used extent.
func (s *Sheet) ColumnCount(ctx context.Context) (int, error) {
	values, err := s.usedValues(ctx)
	if err != nil {
		return 0, err
	}
	maxCol := 0
	for _, row := range values {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	return maxCol, nil
}

// End implements sheetbind.Sheet by scanning the used values in memory,
// avoiding one API round trip per probed cell.
func (s *Sheet) End(ctx context.Context, row, col int, dir sheetbind.Direction) (sheetbind.Cell, error) {
	values, err := s.usedValues(ctx)
	if err != nil {
		return sheetbind.Cell{}, err
	}

	occupied := func(c sheetbind.Cell) bool {
		if c.Row < 1 || c.Col < 1 || c.Row > len(values) {
			return false
		}
		rowValues := values[c.Row-1]
		if c.Col > len(rowValues) {
			return false
		}
		v := rowValues[c.Col-1]
		return v != nil && v != ""
	}

	maxRow := len(values)
	maxCol := 0
	for _, rowValues := range values {
		if len(rowValues) > maxCol {
			maxCol = len(rowValues)
		}
	}

	dr, dc := 0, 0
	switch dir {
	case sheetbind.DirUp:
		dr = -1
	case sheetbind.DirDown:
		dr = 1
	case sheetbind.DirLeft:
		dc = -1
	case sheetbind.DirRight:
		dc = 1
	}

	cur := sheetbind.Cell{Row: row, Col: col}
	next := sheetbind.Cell{Row: cur.Row + dr, Col: cur.Col + dc}

	if occupied(cur) && occupied(next) {
		for occupied(next) {
			cur = next
			next = sheetbind.Cell{Row: cur.Row + dr, Col: cur.Col + dc}
		}
		return cur, nil
	}

	for next.Row >= 1 && next.Col >= 1 && next.Row <= maxRow+1 && next.Col <= maxCol+1 {
		if occupied(next) {
			return next, nil
		}
		next = sheetbind.Cell{Row: next.Row + dr, Col: next.Col + dc}
	}

	edge := cur
	switch dir {
	case sheetbind.DirUp:
		edge.Row = 1
	case sheetbind.DirDown:
		if maxRow > 0 {
			edge.Row = maxRow
		}
	case sheetbind.DirLeft:
		edge.Col = 1
	case sheetbind.DirRight:
		if maxCol > 0 {
			edge.Col = maxCol
		}
	}
	return edge, nil
}

func (s *Sheet) usedValues(ctx context.Context) ([][]interface{}, error) {
	if err := s.doc.checkOpen(); err != nil {
		return nil, err
	}
	readRange := fmt.Sprintf("%s!A:ZZ", s.name)
	resp, err := s.service().Spreadsheets.Values.Get(s.doc.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet data: %w", err)
	}
	return resp.Values, nil
}

func (s *Sheet) service() *sheets.Service {
	return s.doc.instance.service
}

// convertCellValue converts a Google Sheets cell value to a Go type
func convertCellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		// Try to parse as number
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		// Try to parse as bool
		if val == "true" || val == "TRUE" {
			return true
		}
		if val == "false" || val == "FALSE" {
			return false
		}
		return val
	case float64:
		// Check if it's actually an integer
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// convertToSheetValue converts a Go value to a Google Sheets cell value
func convertToSheetValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}
