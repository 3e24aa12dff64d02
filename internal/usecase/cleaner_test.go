package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/cs2_market_watch/internal/usecase"
)

func TestCleanKLineData(t *testing.T) {
	c := usecase.NewDataCleaner(nil)

	raw := []any{
		[]any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0},
		nil,
		[]any{},
		[]any{1.0, nil, 3.0, 4.0, 5.0},
		map[string]any{},
		map[string]any{"low": 5.0, "time": 1.0, "high": 4.0, "open": 2.0, "close": 3.0},
		"garbage",
	}

	tests := []struct {
		name       string
		removeNone bool
		want       [][]any
	}{
		{
			name:       "drop nil-bearing rows",
			removeNone: true,
			want: [][]any{
				{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0},
				{1.0, 2.0, 3.0, 4.0, 5.0},
			},
		},
		{
			name:       "keep nil-bearing rows",
			removeNone: false,
			want: [][]any{
				{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0},
				{1.0, nil, 3.0, 4.0, 5.0},
				{1.0, 2.0, 3.0, 4.0, 5.0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CleanKLineData(raw, tt.removeNone))
		})
	}
}

func TestCleanKLineData_EmptyInput(t *testing.T) {
	c := usecase.NewDataCleaner(nil)
	out := c.CleanKLineData(nil, true)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestCleanKLineData_MappingExtraKeys(t *testing.T) {
	c := usecase.NewDataCleaner(nil)
	out := c.CleanKLineData([]any{
		map[string]any{"t": 1.0, "o": 2.0, "c": 3.0, "h": 4.0, "l": 5.0, "zeta": 9.0, "alpha": 8.0},
	}, true)
	require.Len(t, out, 1)
	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0, 5.0, 8.0, 9.0}, out[0])
}

func TestCleanMarketData(t *testing.T) {
	c := usecase.NewDataCleaner(nil)

	out, err := c.CleanMarketData(map[string]any{
		"a": []any{[]any{1.0, 2.0, 3.0, 4.0, 5.0}, nil},
		"b": "not a list",
	}, true)
	require.NoError(t, err)
	assert.Len(t, out["a"], 1)
	assert.Empty(t, out["b"])

	out, err = c.CleanMarketData(map[string][]any{"c": {[]any{1.0, 2.0, 3.0, 4.0, 5.0}}}, true)
	require.NoError(t, err)
	assert.Len(t, out["c"], 1)
}

func TestCleanMarketData_NotAMapping(t *testing.T) {
	c := usecase.NewDataCleaner(nil)
	for _, raw := range []any{nil, []any{1}, "x", 42} {
		_, err := c.CleanMarketData(raw, true)
		assert.ErrorIs(t, err, usecase.ErrNotAMapping)
	}
}
