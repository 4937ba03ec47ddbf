// Package inmem is a RecordStore kept in memory. It understands the same filter formulas the
// gateways emit, which is enough for tests and for running the API without remote credentials.
package inmem

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nihongowithmoeno/moeno/core"
)

var (
	equalsRegex      = regexp.MustCompile(`^\{([^}]+)\}\s*=\s*"((?:[^"\\]|\\.)*)"$`)
	formulaUnescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
)

type table struct {
	order   []string
	records map[string]*core.Record
}

type Store struct {
	mu       sync.RWMutex
	tables   map[string]*table
	failNext error
	nowFunc  func() time.Time
}

var _ core.RecordStore = (*Store)(nil) // interface compliance check

func NewStore() *Store {
	return &Store{
		tables:  make(map[string]*table),
		nowFunc: time.Now,
	}
}

// FailNext makes the next store call return err.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Seed inserts a raw row, bypassing any gateway coercion.
func (s *Store) Seed(tbl string, fields map[string]interface{}) core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(tbl, fields)
}

// Raw returns a copy of a stored row.
func (s *Store) Raw(tbl, id string) (core.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.table(tbl).records[id]; ok {
		return copyRecord(*rec), true
	}
	return core.Record{}, false
}

func (s *Store) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{records: make(map[string]*core.Record)}
		s.tables[name] = t
	}
	return t
}

func (s *Store) popFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) insert(tbl string, fields map[string]interface{}) core.Record {
	t := s.table(tbl)
	rec := &core.Record{
		ID:          "rec" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Fields:      copyFields(fields),
		CreatedTime: s.nowFunc().UTC().Format(time.RFC3339),
	}
	t.records[rec.ID] = rec
	t.order = append(t.order, rec.ID)
	return copyRecord(*rec)
}

func (s *Store) ListRecords(_ context.Context, tbl string, opts core.ListOptions) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return nil, err
	}

	match, err := compileFormula(opts.Formula)
	if err != nil {
		return nil, err
	}

	t := s.table(tbl)
	recs := make([]core.Record, 0, len(t.order))
	for _, id := range t.order {
		if rec := t.records[id]; match(*rec) {
			recs = append(recs, copyRecord(*rec))
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(recs, func(i, j int) bool {
			for _, ord := range opts.Sort {
				a, b := recs[i].StringField(ord.Field), recs[j].StringField(ord.Field)
				if a == b {
					continue
				}
				if ord.Ascending {
					return a < b
				}
				return a > b
			}
			return false
		})
	}
	if opts.MaxRecords > 0 && len(recs) > opts.MaxRecords {
		recs = recs[:opts.MaxRecords]
	}
	return recs, nil
}

func (s *Store) GetRecord(_ context.Context, tbl, id string) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return core.Record{}, err
	}
	rec, ok := s.table(tbl).records[id]
	if !ok {
		return core.Record{}, core.NewNotFoundError("Record not found")
	}
	return copyRecord(*rec), nil
}

func (s *Store) CreateRecord(_ context.Context, tbl string, fields map[string]interface{}) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return core.Record{}, err
	}
	return s.insert(tbl, fields), nil
}

func (s *Store) UpdateRecord(_ context.Context, tbl, id string, fields map[string]interface{}) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return core.Record{}, err
	}
	rec, ok := s.table(tbl).records[id]
	if !ok {
		return core.Record{}, core.NewNotFoundError("Record not found")
	}
	if rec.Fields == nil {
		rec.Fields = make(map[string]interface{}, len(fields))
	}
	for col, val := range fields {
		rec.Fields[col] = val
	}
	return copyRecord(*rec), nil
}

func (s *Store) DeleteRecord(_ context.Context, tbl, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return err
	}
	t := s.table(tbl)
	if _, ok := t.records[id]; !ok {
		return core.NewNotFoundError("Record not found")
	}
	delete(t.records, id)
	for i, rid := range t.order {
		if rid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// compileFormula supports the empty formula and single equality predicates.
func compileFormula(formula string) (func(core.Record) bool, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return func(core.Record) bool { return true }, nil
	}
	m := equalsRegex.FindStringSubmatch(formula)
	if m == nil {
		return nil, core.NewValidationMessage("Invalid formula. Please check your formula text. (%s)", formula)
	}
	column, value := m[1], formulaUnescaper.Replace(m[2])
	return func(rec core.Record) bool {
		return rec.StringField(column) == value
	}, nil
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	cp := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v == nil || v == "" { // blank cells are not returned by the remote store
			continue
		}
		cp[k] = v
	}
	return cp
}

func copyRecord(rec core.Record) core.Record {
	rec.Fields = copyFields(rec.Fields)
	return rec
}
