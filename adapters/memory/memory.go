// Package memory implements an in-memory sheetbind.Backend. It emulates a
// host application with multiple instances, activation tracking and stale
// handles, and is the backend used by the core tests and examples.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sheetbind "github.com/ideamans/go-sheetbind"
)

// Backend holds any number of emulated application instances.
type Backend struct {
	mu        sync.Mutex
	instances []*Instance
	active    *Instance
	nextInst  int
	nextBook  int
}

// New creates an empty backend with no running instances.
func New() *Backend {
	return &Backend{}
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

// ActiveInstance implements sheetbind.Backend. With no instance running it
// starts one, mirroring the host's launch-on-demand behavior.
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

// Instance is one emulated application process.
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
		return nil, fmt.Errorf("instance %d has no open document: %w", i.id, sheetbind.ErrNotFound)
	}
	return i.active, nil
}

// Open implements sheetbind.Instance. The backend has no real disk; the
// opened document is blank and carries the path's base name.
func (i *Instance) Open(ctx context.Context, path string) (sheetbind.Document, error) {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	return i.addDocument(filepath.Base(path), path), nil
}

// Create implements sheetbind.Instance.
func (i *Instance) Create(ctx context.Context) (sheetbind.Document, error) {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	i.backend.nextBook++
	return i.addDocument(fmt.Sprintf("Book%d", i.backend.nextBook), ""), nil
}

// Activate implements sheetbind.Instance.
func (i *Instance) Activate(ctx context.Context) error {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	i.backend.active = i
	return nil
}

// AddDocument seeds an open document with the given display name and path.
// It is the test seam for building multi-instance fixtures.
func (i *Instance) AddDocument(name, path string) *Document {
	i.backend.mu.Lock()
	defer i.backend.mu.Unlock()

	return i.addDocument(name, path)
}

func (i *Instance) addDocument(name, path string) *Document {
	doc := &Document{
		instance: i,
		name:     name,
		path:     path,
		key:      fmt.Sprintf("inst%d/doc%d", i.id, len(i.docs)+1),
		names:    make(map[string]namedRef),
	}
	doc.addSheet("Sheet1")
	i.docs = append(i.docs, doc)
	i.active = doc
	i.backend.active = i
	return doc
}

type namedRef struct {
	sheet  *Sheet
	region sheetbind.Region
}

// Document is one open document of an Instance.
type Document struct {
	instance *Instance
	name     string
	path     string
	key      string
	sheets   []*Sheet
	active   *Sheet
	names    map[string]namedRef
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
	out := make([]sheetbind.Sheet, len(d.sheets))
	for i, s := range d.sheets {
		out[i] = s
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
	for _, s := range d.sheets {
		if strings.EqualFold(s.name, name) {
			return s, nil
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
	if index < 1 || index > len(d.sheets) {
		return nil, fmt.Errorf("sheet index %d in %q: %w", index, d.name, sheetbind.ErrSheetNotFound)
	}
	return d.sheets[index-1], nil
}

// ActiveSheet implements sheetbind.Document.
func (d *Document) ActiveSheet(ctx context.Context) (sheetbind.Sheet, error) {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return nil, d.staleErr()
	}
	return d.active, nil
}

// NamedRange implements sheetbind.Document.
func (d *Document) NamedRange(ctx context.Context, name string) (sheetbind.Sheet, sheetbind.Region, error) {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	if d.closed {
		return nil, sheetbind.Region{}, d.staleErr()
	}
	ref, ok := d.names[strings.ToLower(name)]
	if !ok {
		return nil, sheetbind.Region{}, fmt.Errorf("defined name %q in %q: %w", name, d.name, sheetbind.ErrNameNotFound)
	}
	return ref.sheet, ref.region, nil
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
	return nil
}

// AddSheet appends a sheet and makes it active. Test seam.
func (d *Document) AddSheet(name string) *Sheet {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	return d.addSheet(name)
}

func (d *Document) addSheet(name string) *Sheet {
	s := &Sheet{
		doc:      d,
		name:     name,
		index:    len(d.sheets) + 1,
		values:   make(map[sheetbind.Cell]interface{}),
		formulas: make(map[sheetbind.Cell]string),
	}
	d.sheets = append(d.sheets, s)
	d.active = s
	return s
}

// DefineName registers a document-scoped defined name. Test seam.
func (d *Document) DefineName(name string, sheet *Sheet, region sheetbind.Region) {
	d.instance.backend.mu.Lock()
	defer d.instance.backend.mu.Unlock()

	d.names[strings.ToLower(name)] = namedRef{sheet: sheet, region: region}
}

func (d *Document) staleErr() error {
	return fmt.Errorf("document %q is closed: %w", d.name, sheetbind.ErrStaleHandle)
}

// Sheet is one page of a Document.
type Sheet struct {
	doc      *Document
	name     string
	index    int
	values   map[sheetbind.Cell]interface{}
	formulas map[sheetbind.Cell]string
}

// Name implements sheetbind.Sheet.
func (s *Sheet) Name() string { return s.name }

// Index implements sheetbind.Sheet.
func (s *Sheet) Index() int { return s.index }

// Document implements sheetbind.Sheet.
func (s *Sheet) Document() sheetbind.Document { return s.doc }

// CellValue implements sheetbind.Sheet.
func (s *Sheet) CellValue(ctx context.Context, row, col int) (interface{}, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	if s.doc.closed {
		return nil, s.doc.staleErr()
	}
	return s.values[sheetbind.Cell{Row: row, Col: col}], nil
}

// SetCellValue implements sheetbind.Sheet.
func (s *Sheet) SetCellValue(ctx context.Context, row, col int, value interface{}) error {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	if s.doc.closed {
		return s.doc.staleErr()
	}
	c := sheetbind.Cell{Row: row, Col: col}
	if value == nil {
		delete(s.values, c)
		delete(s.formulas, c)
		return nil
	}
	s.values[c] = value
	return nil
}

// CellFormula implements sheetbind.Sheet.
func (s *Sheet) CellFormula(ctx context.Context, row, col int) (string, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	if s.doc.closed {
		return "", s.doc.staleErr()
	}
	return s.formulas[sheetbind.Cell{Row: row, Col: col}], nil
}

// SetFormula records a formula together with its computed value. Test seam
// for the strict-expansion behavior.
func (s *Sheet) SetFormula(row, col int, formula string, computed interface{}) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	c := sheetbind.Cell{Row: row, Col: col}
	s.formulas[c] = formula
	s.values[c] = computed
}

// RowCount implements sheetbind.Sheet.
func (s *Sheet) RowCount(ctx context.Context) (int, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	if s.doc.closed {
		return 0, s.doc.staleErr()
	}
	max := 0
	for c := range s.values {
		if c.Row > max {
			max = c.Row
		}
	}
	for c := range s.formulas {
		if c.Row > max {
			max = c.Row
		}
	}
	return max, nil
}

// ColumnCount implements sheetbind.Sheet.
func (s *Sheet) ColumnCount(ctx context.Context) (int, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	if s.doc.closed {
		return 0, s.doc.staleErr()
	}
	max := 0
	for c := range s.values {
		if c.Col > max {
			max = c.Col
		}
	}
	for c := range s.formulas {
		if c.Col > max {
			max = c.Col
		}
	}
	return max, nil
}

// End implements sheetbind.Sheet with the host's Ctrl-arrow semantics: from
// an occupied cell with an occupied neighbor it jumps to the last occupied
// cell of the run; otherwise it jumps to the next occupied cell, or the
// used extent's edge when there is none.
func (s *Sheet) End(ctx context.Context, row, col int, dir sheetbind.Direction) (sheetbind.Cell, error) {
	s.doc.instance.backend.mu.Lock()
	defer s.doc.instance.backend.mu.Unlock()

	if s.doc.closed {
		return sheetbind.Cell{}, s.doc.staleErr()
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

	if s.occupied(cur) && s.occupied(next) {
		// Walk to the end of the contiguous run.
		for s.occupied(next) {
			cur = next
			next = sheetbind.Cell{Row: cur.Row + dr, Col: cur.Col + dc}
		}
		return cur, nil
	}

	// Jump to the next occupied cell, bounded by the used extent.
	limitRow, limitCol := s.extent()
	for next.Row >= 1 && next.Col >= 1 && next.Row <= limitRow+1 && next.Col <= limitCol+1 {
		if s.occupied(next) {
			return next, nil
		}
		next = sheetbind.Cell{Row: next.Row + dr, Col: next.Col + dc}
	}
	edge := cur
	switch dir {
	case sheetbind.DirUp:
		edge.Row = 1
	case sheetbind.DirDown:
		edge.Row = limitRow
	case sheetbind.DirLeft:
		edge.Col = 1
	case sheetbind.DirRight:
		edge.Col = limitCol
	}
	if edge.Row < 1 {
		edge.Row = 1
	}
	if edge.Col < 1 {
		edge.Col = 1
	}
	return edge, nil
}

func (s *Sheet) occupied(c sheetbind.Cell) bool {
	if c.Row < 1 || c.Col < 1 {
		return false
	}
	if v, ok := s.values[c]; ok && v != nil && v != "" {
		return true
	}
	_, hasFormula := s.formulas[c]
	return hasFormula
}

func (s *Sheet) extent() (int, int) {
	maxRow, maxCol := 0, 0
	for c := range s.values {
		if c.Row > maxRow {
			maxRow = c.Row
		}
		if c.Col > maxCol {
			maxCol = c.Col
		}
	}
	for c := range s.formulas {
		if c.Row > maxRow {
			maxRow = c.Row
		}
		if c.Col > maxCol {
			maxCol = c.Col
		}
	}
	return maxRow, maxCol
}
