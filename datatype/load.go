package datatype

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/geoknoesis/cimshacl/rdf"
	log "github.com/geoknoesis/cimshacl/internal/logging"
)

// Defaults for spreadsheet and CSV sources.
const (
	DefaultSheet          = "RDFS Datatypes"
	DefaultPropertyColumn = "Property"
	DefaultDatatypeColumn = "Datatype"
)

// Kind identifies the shape of a table source.
type Kind string

const (
	KindXLSX Kind = "xlsx"
	KindCSV  Kind = "csv"
	// KindRDFS reads rdfs:range statements from an RDF vocabulary.
	KindRDFS Kind = "rdfs"
)

// KindForPath resolves the source kind from a file extension.
func KindForPath(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return KindXLSX, true
	case ".csv":
		return KindCSV, true
	}
	if _, ok := rdf.FormatForPath(path); ok {
		return KindRDFS, true
	}
	return "", false
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	sheet          string
	propertyColumn string
	datatypeColumn string
}

// WithSheet selects the spreadsheet tab.
func WithSheet(sheet string) LoadOption {
	return func(o *loadOptions) { o.sheet = sheet }
}

// WithColumns sets the header names of the predicate and datatype columns.
func WithColumns(property, datatype string) LoadOption {
	return func(o *loadOptions) {
		o.propertyColumn = property
		o.datatypeColumn = datatype
	}
}

// Load builds a table from path. The source kind follows the file extension.
func Load(path string, opts ...LoadOption) (*Table, error) {
	kind, ok := KindForPath(path)
	if !ok {
		return nil, &SourceError{Path: path, Reason: "unrecognized table extension"}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Reason: "open failed", Err: err}
	}
	defer f.Close()

	table, err := loadReader(f, path, kind, opts)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", path).
		Int("predicates", table.Len()).
		Int("overridden", len(table.overridden)).
		Msg("loaded datatype table")
	return table, nil
}

// LoadReader builds a table from an in-memory source. name labels errors and,
// for RDFS sources, selects the RDF format by extension.
func LoadReader(r io.Reader, name string, kind Kind, opts ...LoadOption) (*Table, error) {
	return loadReader(r, name, kind, opts)
}

func loadReader(r io.Reader, name string, kind Kind, opts []LoadOption) (*Table, error) {
	o := loadOptions{
		sheet:          DefaultSheet,
		propertyColumn: DefaultPropertyColumn,
		datatypeColumn: DefaultDatatypeColumn,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		rows []Row
		err  error
	)
	switch kind {
	case KindXLSX:
		rows, err = readXLSX(r, name, o)
	case KindCSV:
		rows, err = readCSV(r, name, o)
	case KindRDFS:
		rows, err = readRDFS(r, name)
	default:
		err = &SourceError{Path: name, Reason: fmt.Sprintf("unknown source kind %q", kind)}
	}
	if err != nil {
		return nil, err
	}

	table := NewTable(rows)
	table.source = name
	for _, predicate := range table.overridden {
		dt, _ := table.Lookup(predicate)
		log.Warn().Str("predicate", predicate).Str("datatype", dt).Msg("duplicate datatype mapping, last row wins")
	}
	return table, nil
}

func readXLSX(r io.Reader, name string, o loadOptions) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &SourceError{Path: name, Reason: "opening XLSX", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &SourceError{Path: name, Reason: "workbook has no sheets"}
	}
	sheet := sheets[0]
	found := false
	for _, candidate := range sheets {
		if candidate == o.sheet {
			sheet, found = candidate, true
			break
		}
	}
	if !found {
		log.Warn().Str("path", name).Str("wanted", o.sheet).Str("using", sheet).Msg("datatype sheet not found, falling back to first sheet")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &SourceError{Path: name, Reason: fmt.Sprintf("reading sheet %q", sheet), Err: err}
	}
	return tableRows(rows, name, o)
}

func readCSV(r io.Reader, name string, o loadOptions) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &SourceError{Path: name, Reason: "reading CSV", Err: err}
	}
	return tableRows(records, name, o)
}

// tableRows locates the header row and extracts the two configured columns.
func tableRows(records [][]string, name string, o loadOptions) ([]Row, error) {
	header := -1
	for i, record := range records {
		if !blankRecord(record) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, &SourceError{Path: name, Reason: "table is empty"}
	}

	propertyIdx, datatypeIdx := -1, -1
	for i, cell := range records[header] {
		label := strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		switch {
		case strings.EqualFold(label, o.propertyColumn):
			propertyIdx = i
		case strings.EqualFold(label, o.datatypeColumn):
			datatypeIdx = i
		}
	}
	var missing []string
	if propertyIdx < 0 {
		missing = append(missing, o.propertyColumn)
	}
	if datatypeIdx < 0 {
		missing = append(missing, o.datatypeColumn)
	}
	if len(missing) > 0 {
		return nil, &SourceError{Path: name, Reason: fmt.Sprintf("missing column(s) %s", strings.Join(missing, ", "))}
	}

	var rows []Row
	skipped := 0
	for _, record := range records[header+1:] {
		predicate := cellAt(record, propertyIdx)
		dt := cellAt(record, datatypeIdx)
		if predicate == "" || dt == "" {
			if !blankRecord(record) {
				skipped++
			}
			continue
		}
		rows = append(rows, Row{Predicate: predicate, Datatype: dt})
	}
	if skipped > 0 {
		log.Debug().Str("path", name).Int("rows", skipped).Msg("skipped incomplete datatype rows")
	}
	return rows, nil
}

// readRDFS turns every "p rdfs:range D" statement with an IRI range into a row.
func readRDFS(r io.Reader, name string) ([]Row, error) {
	format, ok := rdf.FormatForPath(name)
	if !ok {
		return nil, &SourceError{Path: name, Reason: "unrecognized RDF extension"}
	}
	g, err := rdf.ReadGraph(context.Background(), r, format)
	if err != nil {
		var parseErr *rdf.ParseError
		if errors.As(err, &parseErr) {
			return nil, &SourceError{Path: name, Reason: "parsing vocabulary", Err: err}
		}
		return nil, &SourceError{Path: name, Reason: "reading vocabulary", Err: err}
	}
	rangeIRI := rdf.IRI{Value: rdf.RDFSRange}
	var rows []Row
	for _, t := range g.Match(nil, &rangeIRI, nil) {
		subject, ok := t.S.(rdf.IRI)
		if !ok {
			continue
		}
		object, ok := t.O.(rdf.IRI)
		if !ok {
			continue
		}
		rows = append(rows, Row{Predicate: subject.Value, Datatype: object.Value})
	}
	return rows, nil
}

func cellAt(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
