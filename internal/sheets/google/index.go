package google

import (
	"fmt"
	"strings"
	"time"
)

// rowIndex maps record keys to 1-based sheet rows.
type rowIndex struct {
	keys      map[string]int
	rows      int
	expiresAt time.Time
}

// buildRowIndex indexes the first column as returned by the Values API. Row 1
// is the header and never indexed.
func buildRowIndex(values [][]any) *rowIndex {
	idx := &rowIndex{keys: map[string]int{}, rows: len(values)}
	if idx.rows == 0 {
		// The header is written before any data row.
		idx.rows = 1
	}
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(row[0]))
		if key == "" {
			continue
		}
		if _, dup := idx.keys[key]; !dup {
			idx.keys[key] = i + 1
		}
	}
	return idx
}

func (idx *rowIndex) record(key string, row int) {
	idx.keys[key] = row
	if row > idx.rows {
		idx.rows = row
	}
}

// columnLetter converts a 1-based column number to A1 notation.
func columnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
