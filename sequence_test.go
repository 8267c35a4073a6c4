package hxrt

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceAliasing(t *testing.T) {
	a := NewSequence(1, 2, 3)
	b := a
	b.Push(4)
	assert.Equal(t, []int{1, 2, 3, 4}, a.Items())
	assert.True(t, a.Same(b))

	c := a.Copy()
	c.Push(5)
	a.Set(0, 100)
	assert.Equal(t, []int{100, 2, 3, 4}, a.Items())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, c.Items())
	assert.False(t, a.Same(c))
}

func TestSequenceNewCopiesInput(t *testing.T) {
	src := []int{1, 2}
	s := NewSequence(src...)
	src[0] = 9
	assert.Equal(t, []int{1, 2}, s.Items())
}

func TestSequenceStackOps(t *testing.T) {
	s := NewSequence[string]()
	assert.Equal(t, 1, s.Push("b"))
	assert.Equal(t, 2, s.Push("c"))
	s.Unshift("a")
	assert.Equal(t, []string{"a", "b", "c"}, s.Items())

	v, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, "c", v)
	v, ok = s.Shift()
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	v, ok = s.Pop()
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = s.Pop()
	assert.False(t, ok)
	_, ok = s.Shift()
	assert.False(t, ok)
}

func TestSequenceIndexing(t *testing.T) {
	s := NewSequence(5, 6)
	v, ok := s.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 6, v)
	_, ok = s.Get(2)
	assert.False(t, ok)
	_, ok = s.Get(-1)
	assert.False(t, ok)

	assert.Equal(t, 5, s.At(0))
	assert.Equal(t, OutsideBounds, faultKind(t, func() { s.At(2) }))
	assert.Equal(t, OutsideBounds, faultKind(t, func() { s.Set(-1, 0) }))
	assert.Equal(t, OutsideBounds, faultKind(t, func() { s.Set(2, 0) }))

	var null Sequence[int]
	assert.Equal(t, NullAccess, faultKind(t, func() { null.Len() }))
}

func TestSequenceInsert(t *testing.T) {
	cases := []struct {
		pos  int
		want []int
	}{
		{0, []int{9, 1, 2, 3}},
		{2, []int{1, 2, 9, 3}},
		{3, []int{1, 2, 3, 9}},
		{10, []int{1, 2, 3, 9}},
		{-1, []int{1, 2, 9, 3}},
		{-3, []int{9, 1, 2, 3}},
		{-10, []int{9, 1, 2, 3}},
	}
	for _, tc := range cases {
		s := NewSequence(1, 2, 3)
		s.Insert(tc.pos, 9)
		assert.Equal(t, tc.want, s.Items(), "insert at %d", tc.pos)
	}
}

func TestSequenceSplice(t *testing.T) {
	s := NewSequence(1, 2, 3, 4)
	removed := s.Splice(1, 2)
	assert.Equal(t, []int{2, 3}, removed.Items())
	assert.Equal(t, []int{1, 4}, s.Items())

	s = NewSequence(1, 2, 3, 4)
	assert.Equal(t, []int{3, 4}, s.Splice(-2, 10).Items())
	assert.Equal(t, []int{1, 2}, s.Items())

	s = NewSequence(1, 2, 3)
	assert.Empty(t, s.Splice(1, -5).Items())
	assert.Empty(t, s.Splice(7, 1).Items())
	assert.Equal(t, []int{1, 2, 3}, s.Items())

	s = NewSequence(1, 2, 3, 4)
	assert.Equal(t, []int{2, 3, 4}, s.Splice(1, math.MaxInt).Items())
	assert.Equal(t, []int{1}, s.Items())
	assert.Equal(t, []int{1}, s.Splice(-1, math.MaxInt).Items())
	assert.Empty(t, s.Items())
}

func TestSequenceSlice(t *testing.T) {
	s := NewSequence(1, 2, 3, 4, 5)
	assert.Equal(t, []int{4, 5}, s.SliceFrom(-2).Items())
	assert.Equal(t, []int{2, 3}, s.Slice(1, 3).Items())
	assert.Equal(t, []int{2, 3, 4}, s.Slice(1, -1).Items())
	assert.Empty(t, s.Slice(3, 1).Items())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, s.Slice(-10, 10).Items())

	part := s.Slice(0, 2)
	part.Set(0, 100)
	assert.Equal(t, 1, s.At(0), "slice must copy")
}

func TestSequenceResize(t *testing.T) {
	s := NewSequence("a", "b", "c")
	s.Resize(1)
	assert.Equal(t, []string{"a"}, s.Items())
	s.Resize(3)
	assert.Equal(t, []string{"a", "", ""}, s.Items())
	s.Resize(-4)
	assert.Equal(t, 0, s.Len())
}

func TestSequenceSearch(t *testing.T) {
	s := NewSequence(1, 2, 1, 3, 1)

	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(4))
	assert.Equal(t, 0, s.IndexOf(1))
	assert.Equal(t, 2, s.IndexOfFrom(1, 1))
	assert.Equal(t, 4, s.IndexOfFrom(1, -1))
	assert.Equal(t, -1, s.IndexOfFrom(3, -1), "-1 only inspects the last element")
	assert.Equal(t, -1, s.IndexOfFrom(1, 9))
	assert.Equal(t, 0, s.IndexOfFrom(1, -99))

	assert.Equal(t, 4, s.LastIndexOf(1))
	assert.Equal(t, 2, s.LastIndexOfFrom(1, 3))
	assert.Equal(t, 2, s.LastIndexOfFrom(1, -2))
	assert.Equal(t, 4, s.LastIndexOfFrom(1, 99))
	assert.Equal(t, -1, s.LastIndexOfFrom(3, 2))
	assert.Equal(t, -1, NewSequence[int]().LastIndexOf(1))

	assert.True(t, s.Remove(1))
	assert.Equal(t, []int{2, 1, 3, 1}, s.Items())
	assert.False(t, s.Remove(7))
}

func TestSequenceSearchUncomparablePayload(t *testing.T) {
	type tagged struct{ X any }
	s := NewSequence(tagged{X: []int{1}}, tagged{X: "a"})

	assert.False(t, s.Contains(tagged{X: []int{1}}))
	assert.Equal(t, 1, s.IndexOf(tagged{X: "a"}))
	assert.False(t, s.Remove(tagged{X: map[string]int{}}))
	assert.Equal(t, 2, s.Len())
}

func TestSequenceReferenceSearch(t *testing.T) {
	a, b := NewRef("x"), NewRef("x")
	s := NewSequence(a, b, a)

	assert.Equal(t, 1, s.IndexOfRef(b))
	assert.Equal(t, 2, s.IndexOfRefFrom(a, 1))
	assert.Equal(t, 2, s.LastIndexOfRef(a))
	assert.Equal(t, 0, s.LastIndexOfRefFrom(a, 1))
	assert.True(t, s.ContainsRef(b))
	assert.False(t, s.ContainsRef(NewRef("x")))

	assert.True(t, s.RemoveRef(b))
	assert.Equal(t, -1, s.IndexOfRef(b))
	assert.Equal(t, 2, s.Len())

	// Value search on handles falls back to identity
	assert.Equal(t, 0, s.IndexOf(a))
	assert.Equal(t, -1, s.IndexOf(NewRef("x")))
}

func TestSequenceSortIsStable(t *testing.T) {
	type entry struct {
		key   int
		label string
	}
	s := NewSequence(
		entry{2, "a"}, entry{1, "b"}, entry{2, "c"}, entry{1, "d"}, entry{0, "e"},
	)
	s.Sort(func(x, y entry) int { return x.key - y.key })

	var labels []string
	for _, e := range s.Items() {
		labels = append(labels, e.label)
	}
	assert.Equal(t, []string{"e", "b", "d", "a", "c"}, labels)
}

func TestSequenceConcatReverseJoin(t *testing.T) {
	a := NewSequence(1, 2)
	b := NewSequence(3)
	c := a.Concat(b)
	assert.Equal(t, []int{1, 2, 3}, c.Items())
	assert.False(t, c.Same(a))

	self := a.Concat(a)
	assert.Equal(t, []int{1, 2, 1, 2}, self.Items())

	c.Reverse()
	assert.Equal(t, []int{3, 2, 1}, c.Items())
	assert.Equal(t, "3-2-1", c.Join("-"))
	assert.Equal(t, "[3,2,1]", c.String())
	assert.Equal(t, "1.5,null", NewSequence(Box(1.5), Null()).Join(","))
	assert.Equal(t, "null", Sequence[int]{}.String())
}

func TestSequenceFunctional(t *testing.T) {
	s := NewSequence(1, 2, 3, 4)

	even := s.Filter(func(v int) bool { return v%2 == 0 })
	assert.Equal(t, []int{2, 4}, even.Items())

	words := MapSequence(s, func(v int) string { return strings.Repeat("x", v) })
	assert.Equal(t, []string{"x", "xx", "xxx", "xxxx"}, words.Items())

	sum := 0
	for i, v := range s.All() {
		sum += i * v
	}
	assert.Equal(t, 0*1+1*2+2*3+3*4, sum)
}

func TestSequenceIterator(t *testing.T) {
	s := NewSequence("a", "b")
	it := s.Iterator()
	s.Push("c") // not seen by the snapshot

	var got []string
	for it.HasNext() {
		got = append(got, it.Next())
	}
	require.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, OutsideBounds, faultKind(t, func() { it.Next() }))
}

func TestSequenceDynamicElements(t *testing.T) {
	s := NewSequence(Box(1), Box("two"), Null())
	assert.Equal(t, 1, s.IndexOf(Box("two")))
	assert.Equal(t, 2, s.IndexOf(Null()))
	assert.Equal(t, -1, s.IndexOf(Box(1.0)))
}
