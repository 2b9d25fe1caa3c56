package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Sheet keeps snapshot rows in memory, one table per year.
type Sheet struct {
	mu     sync.Mutex
	tables map[int][][]string
}

var (
	_ sheets.SnapshotWriter = (*Sheet)(nil)
	_ sheets.SnapshotLister = (*Sheet)(nil)
)

func New() *Sheet {
	return &Sheet{tables: map[int][][]string{}}
}

func (s *Sheet) AppendSnapshot(_ context.Context, snap core.MonthSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	year := snap.Month.Year()
	rows := s.tables[year]
	if len(rows) == 0 {
		rows = append(rows, append([]string(nil), sheets.Header...))
	}
	row := sheets.Row(snap)
	for i := 1; i < len(rows); i++ {
		if rows[i][0] == row[0] && rows[i][1] == row[1] {
			rows[i] = row
			s.tables[year] = rows
			return nil
		}
	}
	s.tables[year] = append(rows, row)
	return nil
}

func (s *Sheet) ListSnapshotRows(_ context.Context, year int) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[year]
	if len(rows) < 2 {
		return nil, nil
	}
	out := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		out = append(out, append([]string(nil), r...))
	}
	return out, nil
}
