package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPatterns(t *testing.T) PatternSet {
	t.Helper()
	s, err := CompilePatterns([]KindPattern{
		{Kind: "temperature", Expr: `temp[:\s]+(-?\d+\.?\d*)`},
		{Kind: "rainfall", Expr: `rain[:\s]+(\d+\.?\d*)`},
	})
	require.NoError(t, err)
	return s
}

func TestCompilePatterns(t *testing.T) {
	t.Run("rejects empty table", func(t *testing.T) {
		_, err := CompilePatterns(nil)
		require.Error(t, err)
	})

	t.Run("rejects duplicate kinds", func(t *testing.T) {
		_, err := CompilePatterns([]KindPattern{
			{Kind: "temperature", Expr: `(\d+)`},
			{Kind: "temperature", Expr: `(\d+\.\d+)`},
		})
		require.Error(t, err)
	})

	t.Run("rejects invalid regex", func(t *testing.T) {
		_, err := CompilePatterns([]KindPattern{{Kind: "temperature", Expr: `([`}})
		require.Error(t, err)
	})

	t.Run("rejects pattern without capture group", func(t *testing.T) {
		_, err := CompilePatterns([]KindPattern{{Kind: "temperature", Expr: `temp \d+`}})
		require.Error(t, err)
	})

	t.Run("preserves declaration order", func(t *testing.T) {
		s := testPatterns(t)
		assert.Equal(t, []string{"temperature", "rainfall"}, s.Kinds())
	})
}

func TestExtract(t *testing.T) {
	patterns := testPatterns(t)

	t.Run("first declared rule wins on ambiguous message", func(t *testing.T) {
		m, err := patterns.Extract("temp: 23.5 rain: 10")

		require.NoError(t, err)
		assert.Equal(t, "temperature", m.Kind)
		require.NotNil(t, m.Value)
		assert.Equal(t, 23.5, *m.Value)
	})

	t.Run("later rule matches when earlier does not", func(t *testing.T) {
		m, err := patterns.Extract("rain: 10")

		require.NoError(t, err)
		assert.Equal(t, "rainfall", m.Kind)
		require.NotNil(t, m.Value)
		assert.Equal(t, 10.0, *m.Value)
	})

	t.Run("no match yields the sentinel, not an error", func(t *testing.T) {
		m, err := patterns.Extract("station offline")

		require.NoError(t, err)
		assert.False(t, m.Known())
		assert.Empty(t, m.Kind)
		assert.Nil(t, m.Value)
	})

	t.Run("selects first group that captured text", func(t *testing.T) {
		// Alternate phrasings capture into different groups; the value
		// must come from whichever group participated, not group 1.
		s, err := CompilePatterns([]KindPattern{
			{Kind: "pollution", Expr: `=\s*(-?\d+(\.\d+)?)|Pollution at \s*(-?\d+(\.\d+)?)`},
		})
		require.NoError(t, err)

		m, err := s.Extract("Pollution at 12.5")
		require.NoError(t, err)
		assert.Equal(t, "pollution", m.Kind)
		require.NotNil(t, m.Value)
		assert.Equal(t, 12.5, *m.Value)

		m, err = s.Extract("reading = -3.25")
		require.NoError(t, err)
		require.NotNil(t, m.Value)
		assert.Equal(t, -3.25, *m.Value)
	})

	t.Run("negative values parse", func(t *testing.T) {
		m, err := patterns.Extract("temp: -4")

		require.NoError(t, err)
		require.NotNil(t, m.Value)
		assert.Equal(t, -4.0, *m.Value)
	})

	t.Run("non-numeric capture is a fatal configuration error", func(t *testing.T) {
		s, err := CompilePatterns([]KindPattern{
			{Kind: "temperature", Expr: `temp[:\s]+(\S+)`},
		})
		require.NoError(t, err)

		_, err = s.Extract("temp: scorching")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "temperature")
		assert.Contains(t, err.Error(), "scorching")
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			m, err := patterns.Extract("temp: 23.5 rain: 10")
			require.NoError(t, err)
			assert.Equal(t, "temperature", m.Kind)
		}
	})
}
