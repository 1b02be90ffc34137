package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/logger"
)

// Canonical CSV headers. Matching is case-insensitive.
var (
	relationshipHeader = []string{"HEAD_ENTITY", "TAIL_ENTITY", "EDGE_TYPE", "CONFIDENCE"}
	entityHeader       = []string{"ID", "NAME", "METADATA"}
)

// CSVSource reads raw records from a CSV stream with a mandatory header
// row. Rows that cannot be framed (wrong column count, bad quoting,
// unparseable metadata packing) are skipped and counted; field-level
// validation is left to the pipeline.
type CSVSource struct {
	reader    *csv.Reader
	chunkSize int
	entity    bool
	checked   bool
	skipped   int
	line      int
}

// NewRelationshipCSVSource reads relationship records shaped as
// HEAD_ENTITY,TAIL_ENTITY,EDGE_TYPE,CONFIDENCE. chunkSize bounds the
// records returned per Next call.
func NewRelationshipCSVSource(r io.Reader, chunkSize int) *CSVSource {
	return newCSVSource(r, chunkSize, false)
}

// NewEntityCSVSource reads entity records shaped as ID,NAME,METADATA,
// where METADATA packs key=value pairs separated by semicolons.
func NewEntityCSVSource(r io.Reader, chunkSize int) *CSVSource {
	return newCSVSource(r, chunkSize, true)
}

func newCSVSource(r io.Reader, chunkSize int, entity bool) *CSVSource {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	return &CSVSource{reader: cr, chunkSize: chunkSize, entity: entity}
}

// Skipped reports how many rows were dropped for framing problems.
func (s *CSVSource) Skipped() int {
	return s.skipped
}

func (s *CSVSource) Next(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.checked {
		if err := s.checkHeader(); err != nil {
			return nil, err
		}
		s.checked = true
	}

	records := make([]Record, 0, s.chunkSize)
	for len(records) < s.chunkSize {
		row, err := s.reader.Read()
		s.line++
		if err == io.EOF {
			if len(records) == 0 {
				return nil, io.EOF
			}
			return records, nil
		}
		if err != nil {
			s.skipped++
			logger.Logger.Warnw("Skipping malformed CSV row",
				logger.FieldComponent, "ingest.csv",
				logger.FieldCount, s.line,
				logger.FieldError, err,
			)
			continue
		}
		rec, ok := s.toRecord(row)
		if !ok {
			s.skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *CSVSource) checkHeader() error {
	row, err := s.reader.Read()
	if err == io.EOF {
		return errors.NewValidationError("CSV input is empty, expected a header row")
	}
	if err != nil {
		return errors.Wrap(err, "reading CSV header")
	}
	want := relationshipHeader
	if s.entity {
		want = entityHeader
	}
	if len(row) != len(want) {
		return errors.NewValidationError("CSV header has %d columns, expected %d", len(row), len(want))
	}
	for i, col := range row {
		if !strings.EqualFold(strings.TrimSpace(col), want[i]) {
			return errors.NewValidationError("CSV header column %d is %q, expected %q", i+1, col, want[i])
		}
	}
	return nil
}

func (s *CSVSource) toRecord(row []string) (Record, bool) {
	if s.entity {
		meta, err := parseMetadata(row[2])
		if err != nil {
			logger.Logger.Warnw("Skipping entity row with malformed metadata",
				logger.FieldComponent, "ingest.csv",
				logger.FieldCount, s.line,
				logger.FieldError, err,
			)
			return Record{}, false
		}
		return Record{Entity: &EntityRecord{ID: row[0], Name: row[1], Metadata: meta}}, true
	}
	return Record{Relationship: &RelationshipRecord{
		HeadEntity: row[0],
		TailEntity: row[1],
		EdgeType:   row[2],
		Confidence: row[3],
	}}, true
}

// parseMetadata unpacks "k1=v1;k2=v2" into a map. Empty input yields nil;
// empty segments are tolerated so a trailing semicolon is harmless.
func parseMetadata(packed string) (map[string]string, error) {
	packed = strings.TrimSpace(packed)
	if packed == "" {
		return nil, nil
	}
	meta := make(map[string]string)
	for _, pair := range strings.Split(packed, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, errors.NewValidationError("metadata pair %q is not key=value", pair)
		}
		meta[key] = strings.TrimSpace(value)
	}
	return meta, nil
}
