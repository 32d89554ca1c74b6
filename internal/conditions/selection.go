package conditions

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSelection evaluates a row-selection expression against n rows and
// returns the selected row indices in order.
//
// Supported forms:
//
//	""        all rows
//	"4"       the single row 4
//	"1,3,5"   an explicit list
//	"a:b:c"   python-style slice start:stop:step; blank parts default to
//	          0, n, and 1 ("::2" is every other row). "a:b" is accepted
//	          as shorthand for "a:b:1".
//
// Indices are 0-based and must fall in [0, n); negative values and zero
// step are rejected. A malformed expression is fatal at load time.
func ParseSelection(expr string, n int) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return allRows(n), nil
	}

	if strings.Contains(expr, ":") {
		return parseSlice(expr, n)
	}

	parts := strings.Split(expr, ",")
	rows := make([]int, 0, len(parts))
	for _, part := range parts {
		idx, err := parseIndex(part, n)
		if err != nil {
			return nil, err
		}
		rows = append(rows, idx)
	}
	return rows, nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func parseIndex(s string, n int) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid row index %q", s)
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("row index %d out of range [0, %d)", idx, n)
	}
	return idx, nil
}

// parseSlice evaluates "a:b:c" (or "a:b") against n rows.
func parseSlice(expr string, n int) ([]int, error) {
	parts := strings.Split(expr, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid slice expression %q", expr)
	}

	start, stop, step := 0, n, 1
	var err error

	if s := strings.TrimSpace(parts[0]); s != "" {
		if start, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid slice start %q", s)
		}
	}
	if s := strings.TrimSpace(parts[1]); s != "" {
		if stop, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid slice stop %q", s)
		}
	}
	if len(parts) == 3 {
		if s := strings.TrimSpace(parts[2]); s != "" {
			if step, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("invalid slice step %q", s)
			}
		}
	}

	if start < 0 || stop < 0 {
		return nil, fmt.Errorf("negative slice bounds in %q", expr)
	}
	if step <= 0 {
		return nil, fmt.Errorf("slice step must be positive in %q", expr)
	}
	if stop > n {
		stop = n
	}

	var rows []int
	for i := start; i < stop; i += step {
		rows = append(rows, i)
	}
	return rows, nil
}
