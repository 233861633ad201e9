package discussion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSignals_NamesAreUnique(t *testing.T) {
	s := NewSignals()
	t.Cleanup(s.Close)

	seen := map[string]bool{}
	for _, sig := range s.All() {
		require.NotNil(t, sig)
		require.False(t, seen[sig.Name()], "duplicate signal %s", sig.Name())
		seen[sig.Name()] = true
	}
	require.Len(t, seen, 9)
}

func TestSignals_ByName(t *testing.T) {
	s := NewSignals()
	t.Cleanup(s.Close)

	sig, ok := s.ByName(SignalCommentCreated)
	require.True(t, ok)
	require.Same(t, s.CommentCreated, sig)

	_, ok = s.ByName("thread_flagged")
	require.False(t, ok)
}
