package limiter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testFactory(t *testing.T) Factory {
	return func(id Identity) (*Limiter, error) {
		return NewBursty(10, 1, WithClock(&fakeClock{}))
	}
}

func TestRegistry_GetCreatesLazily(t *testing.T) {
	var created []Identity
	reg := NewRegistry(4, func(id Identity) (*Limiter, error) {
		created = append(created, id)
		return NewBursty(5, 1, WithClock(&fakeClock{}))
	})

	id := Identity{Namespace: "tenant", Key: "acme"}
	l1, err := reg.Get(id)
	require.NoError(t, err)
	require.NotNil(t, l1)

	l2, err := reg.Get(id)
	require.NoError(t, err)
	require.Same(t, l1, l2)

	require.Len(t, created, 1, "factory should only run once per identity")
	require.Equal(t, 1, reg.Len())
}

func TestRegistry_FactoryErrorNotCached(t *testing.T) {
	reg := NewRegistry(4, func(id Identity) (*Limiter, error) {
		return NewBursty(0, 1, WithClock(&fakeClock{})) // invalid rate
	})

	id := Identity{Namespace: "tenant", Key: "acme"}
	_, err := reg.Get(id)
	require.ErrorIs(t, err, ErrInvalidRate)
	require.Equal(t, 0, reg.Len())
}

func TestRegistry_SetRateAppliesToExistingLimiter(t *testing.T) {
	reg := NewRegistry(4, testFactory(t))
	id := Identity{Namespace: "tenant", Key: "acme"}

	l, err := reg.Get(id)
	require.NoError(t, err)

	require.NoError(t, reg.SetRate(id, 42))
	require.Equal(t, 42.0, l.GetRate())
}

func TestRegistry_SetRateCreatesIfAbsent(t *testing.T) {
	reg := NewRegistry(4, testFactory(t))
	id := Identity{Namespace: "tenant", Key: "new"}

	require.NoError(t, reg.SetRate(id, 7))
	l, err := reg.Get(id)
	require.NoError(t, err)
	require.Equal(t, 7.0, l.GetRate())
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry(4, testFactory(t))
	id := Identity{Namespace: "tenant", Key: "acme"}

	_, err := reg.Get(id)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	reg.Remove(id)
	require.Equal(t, 0, reg.Len())

	reg.Remove(Identity{Namespace: "tenant", Key: "never-created"})
	require.Equal(t, 0, reg.Len())
}

// Stripe assignment must be a pure function of the identity: looking the
// same identity up repeatedly must always land on exactly one Limiter
// instance per Registry.
func TestRegistry_StripeAssignmentIsStable(t *testing.T) {
	reg := NewRegistry(16, testFactory(t))

	ids := []Identity{
		{Namespace: "tenant", Key: "a"},
		{Namespace: "tenant", Key: "b"},
		{Namespace: "route", Key: "/v1/widgets"},
		{Namespace: "api-key", Key: "abc123"},
	}

	first := make(map[Identity]*Limiter, len(ids))
	for _, id := range ids {
		l, err := reg.Get(id)
		require.NoError(t, err)
		first[id] = l
	}

	for i := 0; i < 5; i++ {
		for _, id := range ids {
			l, err := reg.Get(id)
			require.NoError(t, err)
			require.Same(t, first[id], l)
		}
	}
}

func TestRegistry_DistinctIdentitiesGetDistinctLimiters(t *testing.T) {
	reg := NewRegistry(4, testFactory(t))

	a, err := reg.Get(Identity{Namespace: "tenant", Key: "a"})
	require.NoError(t, err)
	b, err := reg.Get(Identity{Namespace: "tenant", Key: "b"})
	require.NoError(t, err)

	require.NotSame(t, a, b)
}

func TestRegistry_NumStripesClampedToOne(t *testing.T) {
	reg := NewRegistry(0, testFactory(t))
	_, err := reg.Get(Identity{Namespace: "x", Key: "y"})
	require.NoError(t, err)
	require.Len(t, reg.stripes, 1)
}

func TestIdentity_String(t *testing.T) {
	id := Identity{Namespace: "tenant", Key: "acme"}
	require.Equal(t, "tenant:acme", id.String())
}
