package usecase

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var ErrNotAMapping = errors.New("market data must be a mapping of item id to k-lines")

// kLineFieldOrder is the positional layout of a k-line row.
var kLineFieldOrder = [][]string{
	{"time", "timestamp", "date", "t"},
	{"open", "o"},
	{"close", "c"},
	{"high", "h"},
	{"low", "l"},
	{"volume", "v"},
	{"amount", "a"},
}

type DataCleaner struct {
	logger *zap.Logger
}

func NewDataCleaner(logger *zap.Logger) *DataCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataCleaner{logger: logger}
}

// CleanKLineData drops empty rows and, with removeNone, rows holding a nil
// value. Mapping rows are flattened into positional order. Any other shape is
// skipped with a warning.
func (c *DataCleaner) CleanKLineData(raw []any, removeNone bool) [][]any {
	if len(raw) == 0 {
		c.logger.Warn("Empty k-line input")
		return [][]any{}
	}

	cleaned := make([][]any, 0, len(raw))
	for i, item := range raw {
		switch v := item.(type) {
		case nil:
			continue
		case []any:
			if len(v) == 0 || (removeNone && containsNil(v)) {
				continue
			}
			cleaned = append(cleaned, v)
		case map[string]any:
			if len(v) == 0 {
				continue
			}
			row := flattenKLine(v)
			if removeNone && containsNil(row) {
				continue
			}
			cleaned = append(cleaned, row)
		default:
			c.logger.Warn("Skipping k-line row of unknown shape",
				zap.Int("index", i), zap.String("type", fmt.Sprintf("%T", item)))
		}
	}
	return cleaned
}

// CleanMarketData cleans every item of a whole-market payload.
func (c *DataCleaner) CleanMarketData(raw any, removeNone bool) (map[string][][]any, error) {
	result := make(map[string][][]any)
	switch m := raw.(type) {
	case map[string][]any:
		for id, rows := range m {
			result[id] = c.CleanKLineData(rows, removeNone)
		}
	case map[string]any:
		for id, v := range m {
			rows, ok := v.([]any)
			if !ok {
				c.logger.Warn("Item k-lines are not a list", zap.String("item_id", id))
				result[id] = [][]any{}
				continue
			}
			result[id] = c.CleanKLineData(rows, removeNone)
		}
	default:
		c.logger.Error("Market data is not a mapping", zap.String("type", fmt.Sprintf("%T", raw)))
		return nil, ErrNotAMapping
	}
	return result, nil
}

func containsNil(row []any) bool {
	for _, v := range row {
		if v == nil {
			return true
		}
	}
	return false
}

func flattenKLine(m map[string]any) []any {
	used := make(map[string]bool, len(m))
	row := make([]any, 0, len(m))
	for _, aliases := range kLineFieldOrder {
		for _, key := range aliases {
			if v, ok := m[key]; ok {
				row = append(row, v)
				used[key] = true
				break
			}
		}
	}
	if len(row) == len(m) {
		return row
	}

	// Unknown keys: keep a stable order after the known fields.
	rest := make([]string, 0, len(m)-len(row))
	for k := range m {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		row = append(row, m[k])
	}
	return row
}
