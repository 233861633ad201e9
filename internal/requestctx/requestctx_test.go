package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSiteDomainRoundTrip(t *testing.T) {
	ctx := WithSiteDomain(context.Background(), "courses.example.com")
	require.Equal(t, "courses.example.com", SiteDomainFromContext(ctx))
	require.Equal(t, "", SiteDomainFromContext(context.Background()))
}

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), 123)
	id, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, int64(123), id)

	_, ok = UserIDFromContext(context.Background())
	require.False(t, ok)
}

//nolint:staticcheck // SA1012
func TestNilContext(t *testing.T) {
	require.Equal(t, "", SiteDomainFromContext(nil))
	_, ok := UserIDFromContext(nil)
	require.False(t, ok)

	ctx := WithSiteDomain(nil, "example.com")
	require.Equal(t, "example.com", SiteDomainFromContext(ctx))
	ctx = WithUserID(nil, 7)
	id, _ := UserIDFromContext(ctx)
	require.Equal(t, int64(7), id)
}
