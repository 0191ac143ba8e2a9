package diag

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/stretchr/testify/require"
)

func mustNewErrors(t *testing.T, policy OverflowPolicy, cap int) *Errors {
	t.Helper()
	e, err := NewErrors(policy, cap)
	require.NoError(t, err)
	return e
}

func newErr(line int) *TranslationError {
	return Errorf(IssueUnterminated, reader.NewMark("a.jsp", line, 1, 0), "unterminated comment")
}

func TestNewErrors_NegativeCap_ReturnsConfigError(t *testing.T) {
	_, err := NewErrors(OverflowDrop, -1)
	require.Error(t, err)

	var ce *ConfigError
	require.True(t, errors.As(err, &ce), "expected *ConfigError, got %T (%v)", err, err)
	require.Equal(t, IssueNegativeErrorsCap, ce.Issue)
}

func TestErrors_NoCap_IgnoresCap(t *testing.T) {
	e := mustNewErrors(t, OverflowNoCap, 2)

	for i := 1; i <= 10; i++ {
		e.Add(newErr(i))
	}

	require.False(t, e.IsOverflow())
	require.Equal(t, 10, e.Len())
	require.Equal(t, 10, e.List()[9].Mark.Line)
}

func TestErrors_Drop_KeepsFirstN(t *testing.T) {
	e := mustNewErrors(t, OverflowDrop, 2)

	e.Add(newErr(1))
	e.Add(newErr(2))
	e.Add(newErr(3))
	e.Add(newErr(4))

	require.True(t, e.IsOverflow())
	require.Equal(t, 0, e.DroppedCount())
	require.Equal(t, 3, e.FirstDrop().Line)
	require.Equal(t, 2, e.Len())
}

func TestErrors_Trunc_AddsMarker(t *testing.T) {
	e := mustNewErrors(t, OverflowTrunc, 3)

	for i := 1; i <= 6; i++ {
		e.Add(newErr(i))
	}

	require.True(t, e.IsOverflow())
	require.Equal(t, 4, e.DroppedCount())
	require.Len(t, e.List(), 3)
	require.Equal(t, IssueErrorsTruncated, e.List()[2].Issue)
	require.Equal(t, 3, e.List()[2].Mark.Line)
}

func TestErrors_WrapsForeignErrors(t *testing.T) {
	e := mustNewErrors(t, OverflowNoCap, 0)
	e.Add(fs.ErrNotExist)
	e.Add(nil)

	require.Equal(t, 1, e.Len())
	require.Equal(t, IssueInternal, e.List()[0].Issue)
	require.True(t, errors.Is(e.Err(), fs.ErrNotExist))
}

func TestErrorList(t *testing.T) {
	e := mustNewErrors(t, OverflowNoCap, 0)
	require.NoError(t, e.Err())

	e.Add(newErr(7))
	e.Add(newErr(9))

	err := e.Err()
	require.EqualError(t, err, "a.jsp:7:1: unterminated comment (and 1 more errors)")

	te, ok := AsTranslationError(err)
	require.True(t, ok)
	require.Equal(t, 7, te.Mark.Line)

	out := SerializeAll(err)
	require.Len(t, out, 2)
	require.Equal(t, "pagec.error.unterminated", out[1].Key)
	require.Equal(t, 9, out[1].Line)
}

func TestErrorfWrapsCause(t *testing.T) {
	err := Errorf(IssueIncludeFailed, reader.NewMark("a.jsp", 2, 3, 10), "cannot include %s: %w", "b.jsp", fs.ErrNotExist)

	require.True(t, errors.Is(err, fs.ErrNotExist))
	require.Equal(t, "a.jsp:2:3: cannot include b.jsp: file does not exist", err.Error())
	require.Equal(t, "pagec.error.include.failed", err.Key())
}

func TestIssueKeysAreDefined(t *testing.T) {
	seen := map[string]bool{}
	for i := Issue(0); i < NumIssues; i++ {
		key := i.Key()
		require.NotEmpty(t, key, "issue %d has no key", i)
		require.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}
