package trial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Clone_Independent(t *testing.T) {
	r := Record{"word": "red", "rt": 0.5}
	c := r.Clone()
	c["word"] = "blue"

	assert.Equal(t, "red", r["word"])
	assert.Nil(t, Record(nil).Clone())
}

func TestRecord_SortedKeys(t *testing.T) {
	r := Record{"zeta": 1, "alpha": 2, "mid": 3}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.SortedKeys())
}

func TestRecord_MarshalOrdered(t *testing.T) {
	r := Record{"b": 2, "a": "x<y", "c": true}
	data, err := r.MarshalOrdered()
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x<y","b":2,"c":true}`, string(data), "sorted keys, no HTML escaping")
}

func TestSet_ImmutableFromInput(t *testing.T) {
	input := []Record{{"word": "red"}}
	s := NewSet(input)
	input[0]["word"] = "mutated"

	rec, ok := s.At(0)
	require.True(t, ok)
	assert.Equal(t, "red", rec["word"])
}

func TestSet_At_Bounds(t *testing.T) {
	s := NewSet([]Record{{"a": 1}, {"a": 2}})

	_, ok := s.At(-1)
	assert.False(t, ok)
	_, ok = s.At(2)
	assert.False(t, ok)

	rec, ok := s.At(1)
	require.True(t, ok)
	assert.Equal(t, 2, rec["a"])

	var nilSet *Set
	assert.Equal(t, 0, nilSet.Len())
	_, ok = nilSet.At(0)
	assert.False(t, ok)
}

func TestSet_At_ReturnsCopies(t *testing.T) {
	s := NewSet([]Record{{"word": "red"}})
	rec, _ := s.At(0)
	rec["word"] = "mutated"

	again, _ := s.At(0)
	assert.Equal(t, "red", again["word"])
}

func TestSet_Fields_UnionSorted(t *testing.T) {
	s := NewSet([]Record{
		{"word": "red", "ink": "blue"},
		{"word": "green", "congruent": false},
	})
	assert.Equal(t, []string{"congruent", "ink", "word"}, s.Fields())
}
