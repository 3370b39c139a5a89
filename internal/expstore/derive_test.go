package expstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/donatienLeray/toychain-argos/internal/experr"
)

func newDerivedStore(t *testing.T, numRobots, density string) *Store {
	t.Helper()
	s := Parse([]byte("NUMROBOTS=" + numRobots + "\nDENSITY=" + density + "\n"))
	RegisterArenaDim(s)
	return s
}

func TestDerive_ArenaDim(t *testing.T) {
	t.Parallel()

	s := newDerivedStore(t, "20", "2")

	v, err := s.Derive("ARENADIM")
	require.NoError(t, err)
	require.Equal(t, 3.162, v, "round(sqrt(20/2), 3)")
}

func TestDerive_RecomputesOnEveryRead(t *testing.T) {
	t.Parallel()

	s := newDerivedStore(t, "20", "2")

	_, err := s.Derive("ARENADIM")
	require.NoError(t, err)

	require.True(t, s.Set("NUMROBOTS", 50))

	v, err := s.Derive("ARENADIM")
	require.NoError(t, err)
	require.Equal(t, 5.0, v, "derived value must track its inputs")
}

func TestDerive_Deterministic(t *testing.T) {
	t.Parallel()

	s := newDerivedStore(t, "37", "1.7")

	first, err := s.Derive("ARENADIM")
	require.NoError(t, err)
	second, err := s.Derive("ARENADIM")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDerive_ZeroOrNegativeDensity(t *testing.T) {
	t.Parallel()

	for _, density := range []string{"0", "-2"} {
		s := newDerivedStore(t, "20", density)

		_, err := s.Derive("ARENADIM")
		require.Error(t, err)

		var domainErr *experr.DomainError
		require.ErrorAs(t, err, &domainErr, "out-of-domain density must be a DomainError, not NaN/Inf")
	}
}

func TestDerive_NonNumericInput(t *testing.T) {
	t.Parallel()

	s := newDerivedStore(t, "twenty", "2")

	_, err := s.Derive("ARENADIM")
	var domainErr *experr.DomainError
	require.ErrorAs(t, err, &domainErr)
}

func TestDerive_MissingInput(t *testing.T) {
	t.Parallel()

	s := Parse([]byte("NUMROBOTS=20\n"))
	RegisterArenaDim(s)

	_, err := s.Derive("ARENADIM")
	var cfgErr *experr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestDerive_NoFormula(t *testing.T) {
	t.Parallel()

	s := Parse([]byte("NUMROBOTS=20\n"))

	_, err := s.Derive("ARENADIM")
	var cfgErr *experr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	s := newDerivedStore(t, "20", "2")

	v, ok, err := s.Resolve("ARENADIM")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3.162", v)

	v, ok, err = s.Resolve("DENSITY")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	_, ok, err = s.Resolve("ABSENT")
	require.NoError(t, err)
	require.False(t, ok)
}
