// Package excel implements a sheetbind.Backend over local Excel files
// using excelize. One Instance is an in-process workspace of open files;
// several instances can run at once, which is what the resolver's
// ambiguity detection exists for.
package excel

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	sheetbind "github.com/ideamans/go-sheetbind"
	"github.com/xuri/excelize/v2"
)

// Backend manages excelize-backed workspaces.
type Backend struct {
	config    *Config
	mu        sync.Mutex
	instances []*Instance
	active    *Instance
	nextInst  int
	nextBook  int
}

// New creates a new Excel backend with the given configuration
func New(config *Config) (*Backend, error) {
	if config == nil {
		config = &Config{}
	}

	// Create a copy of config to avoid external modifications
	configCopy := *config

	return &Backend{config: &configCopy}, nil
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

// ActiveInstance implements sheetbind.Backend, starting a workspace when
// none is running.
func (b *Backend) ActiveInstance(ctx context.Context) (sheetbind.Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == nil {
		return b.startInstance(), nil
	}
	return b.active, nil
}

// NewInstance implements sheetbind.Backend.
func (b *Backend) NewInstance(ctx context.Context) (sheetbind.Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.startInstance(), nil
}

func (b *Backend) startInstance() *Instance {
	b.nextInst++
	inst := &Instance{backend: b, id: b.nextInst}
	b.instances = append(b.instances, inst)
	b.active = inst
	return inst
}

// Instance is one workspace of open Excel files.
type Instance struct {
	backend *Backend
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
		return nil, fmt.Errorf("workspace %d has no open document: %w", i.id, sheetbind.ErrNotFound)
	}
	return i.active, nil
}

// Open implements sheetbind.Instance.
func (i *Instance) Open(ctx context.Context, path string) (sheetbind.Document, error) {
	// Check if context is cancelled
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := excelize.OpenFile(path, excelize.Options{Password: i.backend.config.Password})
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}

	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()
	return i.addDocument(f, filepath.Base(path), path), nil
}

// Create implements sheetbind.Instance.
func (i *Instance) Create(ctx context.Context) (sheetbind.Document, error) {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	i.backend.nextBook++
	return i.addDocument(excelize.NewFile(), fmt.Sprintf("Book%d.xlsx", i.backend.nextBook), ""), nil
}

// Activate implements sheetbind.Instance.
func (i *Instance) Activate(ctx context.Context) error {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	i.backend.active = i
	return nil
}

func (i *Instance) addDocument(f *excelize.File, name, path string) *Document {
	doc := &Document{
		instance: i,
		file:     f,
		name:     name,
		path:     path,
		key:      fmt.Sprintf("ws%d/doc%d", i.id, len(i.docs)+1),
	}
	i.docs = append(i.docs, doc)
	i.active = doc
	i.backend.active = i
	return doc
}

// Document wraps one open excelize file.
type Document struct {
	instance *Instance
	file     *excelize.File
	name     string
	path     string
	key      string
	closed   bool
}

// Name implements sheetbind.Document.
func (d *Document) Name() string { return d.name }

// Path implements sheetbind.Document.
func (d *Document) Path() string { return d.path }

// Key implements sheetbind.Document.
func (d *Document) Key() string { return d.key }

// Sheets implements sheetbind.Document.
func (d *Document) Sheets(ctx context.Context) ([]sheetbind.Sheet, error) {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return nil, d.staleErr()
	}
	list := d.file.GetSheetList()
	out := make([]sheetbind.Sheet, len(list))
	for i, name := range list {
		out[i] = &Sheet{doc: d, name: name, index: i + 1}
	}
	return out, nil
}

// Sheet implements sheetbind.Document.
func (d *Document) Sheet(ctx context.Context, name string) (sheetbind.Sheet, error) {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return nil, d.staleErr()
	}
	for i, candidate := range d.file.GetSheetList() {
		if strings.EqualFold(candidate, name) {
			return &Sheet{doc: d, name: candidate, index: i + 1}, nil
		}
	}
	return nil, fmt.Errorf("sheet %q in %q: %w", name, d.name, sheetbind.ErrSheetNotFound)
}

// SheetAt implements sheetbind.Document.
func (d *Document) SheetAt(ctx context.Context, index int) (sheetbind.Sheet, error) {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return nil, d.staleErr()
	}
	list := d.file.GetSheetList()
	if index < 1 || index > len(list) {
		return nil, fmt.Errorf("sheet index %d in %q: %w", index, d.name, sheetbind.ErrSheetNotFound)
	}
	return &Sheet{doc: d, name: list[index-1], index: index}, nil
}

// ActiveSheet implements sheetbind.Document.
func (d *Document) ActiveSheet(ctx context.Context) (sheetbind.Sheet, error) {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return nil, d.staleErr()
	}
	name := d.file.GetSheetName(d.file.GetActiveSheetIndex())
	for i, candidate := range d.file.GetSheetList() {
		if candidate == name {
			return &Sheet{doc: d, name: name, index: i + 1}, nil
		}
	}
	return nil, fmt.Errorf("active sheet of %q: %w", d.name, sheetbind.ErrSheetNotFound)
}

// NamedRange implements sheetbind.Document via the workbook's defined
// names. RefersTo strings look like "Sheet1!$A$1:$B$2".
func (d *Document) NamedRange(ctx context.Context, name string) (sheetbind.Sheet, sheetbind.Region, error) {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return nil, sheetbind.Region{}, d.staleErr()
	}
	for _, dn := range d.file.GetDefinedName() {
		if !strings.EqualFold(dn.Name, name) {
			continue
		}
		sheetName, region, err := parseRefersTo(dn.RefersTo)
		if err != nil {
			return nil, sheetbind.Region{}, fmt.Errorf("defined name %q: %w", name, err)
		}
		for i, candidate := range d.file.GetSheetList() {
			if strings.EqualFold(candidate, sheetName) {
				return &Sheet{doc: d, name: candidate, index: i + 1}, region, nil
			}
		}
		return nil, sheetbind.Region{}, fmt.Errorf("defined name %q targets unknown sheet %q: %w",
			name, sheetName, sheetbind.ErrSheetNotFound)
	}
	return nil, sheetbind.Region{}, fmt.Errorf("defined name %q in %q: %w", name, d.name, sheetbind.ErrNameNotFound)
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

// Close implements sheetbind.Document. All handles into the document become
// stale.
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
	return d.file.Close()
}

// Save writes the document back to its path, or to the given path for a
// never-saved document.
func (d *Document) Save(path string) error {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return d.staleErr()
	}
	if path == "" {
		path = d.path
	}
	if path == "" {
		return ErrNotSaved
	}
	if err := d.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	d.path = path
	d.name = filepath.Base(path)
	return nil
}

func (d *Document) staleErr() error {
	return fmt.Errorf("document %q is closed: %w", d.name, sheetbind.ErrStaleHandle)
}

func parseRefersTo(refersTo string) (string, sheetbind.Region, error) {
	ref := strings.TrimPrefix(refersTo, "=")
	bang := strings.LastIndex(ref, "!")
	if bang < 0 {
		return "", sheetbind.Region{}, fmt.Errorf("reference %q: %w", refersTo, sheetbind.ErrInvalidArguments)
	}
	sheetName := strings.Trim(ref[:bang], "'")
	region, err := sheetbind.ParseAddress(ref[bang+1:])
	if err != nil {
		return "", sheetbind.Region{}, err
	}
	return sheetName, region, nil
}

// Sheet is a handle on one worksheet of a Document.
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

// CellValue implements sheetbind.Sheet. Numeric and boolean strings are
// parsed into typed values; empty cells yield nil.
func (s *Sheet) CellValue(ctx context.Context, row, col int) (interface{}, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	return s.cellValue(row, col)
}

func (s *Sheet) cellValue(row, col int) (interface{}, error) {
	if s.doc.closed {
		return nil, s.doc.staleErr()
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinates (%d, %d): %w", row, col, err)
	}
	value, err := s.doc.file.GetCellValue(s.name, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to read cell %s: %w", axis, err)
	}
	if value == "" {
		return nil, nil
	}
	return parseCellValue(value), nil
}

// SetCellValue implements sheetbind.Sheet.
func (s *Sheet) SetCellValue(ctx context.Context, row, col int, value interface{}) error {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	if s.doc.closed {
		return s.doc.staleErr()
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid coordinates (%d, %d): %w", row, col, err)
	}
	if err := s.doc.file.SetCellValue(s.name, axis, value); err != nil {
		return fmt.Errorf("failed to write cell %s: %w", axis, err)
	}
	return nil
}

// CellFormula implements sheetbind.Sheet.
func (s *Sheet) CellFormula(ctx context.Context, row, col int) (string, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	return s.cellFormula(row, col)
}

func (s *Sheet) cellFormula(row, col int) (string, error) {
	if s.doc.closed {
		return "", s.doc.staleErr()
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("invalid coordinates (%d, %d): %w", row, col, err)
	}
	formula, err := s.doc.file.GetCellFormula(s.name, axis)
	if err != nil {
		return "", fmt.Errorf("failed to read formula %s: %w", axis, err)
	}
	return formula, nil
}

// RowCount implements sheetbind.Sheet using the sheet's used extent.
func (s *Sheet) RowCount(ctx context.Context) (int, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	rows, _, err := s.usedExtent()
	return rows, err
}

// ColumnCount implements sheetbind.Sheet using the sheet's used extent.
func (s *Sheet) ColumnCount(ctx context.Context) (int, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	_, cols, err := s.usedExtent()
	return cols, err
}

func (s *Sheet) usedExtent() (int, int, error) {
	if s.doc.closed {
		return 0, 0, s.doc.staleErr()
	}
	rows, err := s.doc.file.GetRows(s.name)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get rows: %w", err)
	}
	maxCol := 0
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	return len(rows), maxCol, nil
}

// End implements sheetbind.Sheet with the host's Ctrl-arrow semantics: from
// an occupied cell with an occupied neighbor it walks to the last occupied
// cell of the run; otherwise it jumps to the next occupied cell, or the
// used extent's edge when there is none.
func (s *Sheet) End(ctx context.Context, row, col int, dir sheetbind.Direction) (sheetbind.Cell, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	maxRow, maxCol, err := s.usedExtent()
	if err != nil {
		return sheetbind.Cell{}, err
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

	curOcc, err := s.occupied(cur)
	if err != nil {
		return sheetbind.Cell{}, err
	}
	nextOcc, err := s.occupied(next)
	if err != nil {
		return sheetbind.Cell{}, err
	}

	if curOcc && nextOcc {
		for nextOcc {
			cur = next
			next = sheetbind.Cell{Row: cur.Row + dr, Col: cur.Col + dc}
			nextOcc, err = s.occupied(next)
			if err != nil {
				return sheetbind.Cell{}, err
			}
		}
		return cur, nil
	}

	for next.Row >= 1 && next.Col >= 1 && next.Row <= maxRow+1 && next.Col <= maxCol+1 {
		occ, err := s.occupied(next)
		if err != nil {
			return sheetbind.Cell{}, err
		}
		if occ {
			return next, nil
		}
		next = sheetbind.Cell{Row: next.Row + dr, Col: next.Col + dc}
	}

	edge := cur
	switch dir {
	case sheetbind.DirUp:
		edge.Row = 1
	case sheetbind.DirDown:
		edge.Row = maxIntVal(maxRow, 1)
	case sheetbind.DirLeft:
		edge.Col = 1
	case sheetbind.DirRight:
		edge.Col = maxIntVal(maxCol, 1)
	}
	return edge, nil
}

func (s *Sheet) occupied(c sheetbind.Cell) (bool, error) {
	if c.Row < 1 || c.Col < 1 {
		return false, nil
	}
	v, err := s.cellValue(c.Row, c.Col)
	if err != nil {
		return false, err
	}
	if v != nil && v != "" {
		return true, nil
	}
	formula, err := s.cellFormula(c.Row, c.Col)
	if err != nil {
		return false, err
	}
	return formula != "", nil
}

// parseCellValue converts an excelize string cell value to a typed Go value
func parseCellValue(value string) interface{} {
	if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
		// Check if it's an integer
		if intVal := int64(floatVal); float64(intVal) == floatVal {
			return intVal
		}
		return floatVal
	}
	if value == "true" || value == "false" || value == "TRUE" || value == "FALSE" {
		return value == "true" || value == "TRUE"
	}
	return value
}

func maxIntVal(a, b int) int {
	if a > b {
		return a
	}
	return b
}
