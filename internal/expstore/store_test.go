package expstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `# experiment configuration
NUMROBOTS=20
DENSITY=2
CONSENSUS=ProofOfAuthority
TIMELIMIT=60

TPS=10
`

func TestParse_PreservesOrderAndNonParameterLines(t *testing.T) {
	t.Parallel()

	s := Parse([]byte(sampleConfig))

	require.Equal(t, []string{"NUMROBOTS", "DENSITY", "CONSENSUS", "TIMELIMIT", "TPS"}, s.Names())
	require.Equal(t, []byte(sampleConfig), s.Bytes(), "round-trip must be byte-identical")
}

func TestSet_KnownName(t *testing.T) {
	t.Parallel()

	s := Parse([]byte(sampleConfig))

	require.True(t, s.Set("NUMROBOTS", 50))

	v, ok := s.Get("NUMROBOTS")
	require.True(t, ok)
	require.Equal(t, "50", v)
}

func TestSet_UnknownNameIsNoOp(t *testing.T) {
	t.Parallel()

	s := Parse([]byte(sampleConfig))
	before := string(s.Bytes())

	require.False(t, s.Set("NO_SUCH_KEY", "value"), "unknown name must not be created")

	require.Equal(t, before, string(s.Bytes()), "store must be observably unchanged")
	_, ok := s.Get("NO_SUCH_KEY")
	require.False(t, ok)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "experimentconfig")
	s := Parse([]byte(sampleConfig))
	require.True(t, s.Set("TPS", 15))
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	v, ok := loaded.Get("TPS")
	require.True(t, ok)
	require.Equal(t, "15", v)
	require.Equal(t, s.Names(), loaded.Names())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSnapshot_IsolatedFromMutation(t *testing.T) {
	t.Parallel()

	s := Parse([]byte(sampleConfig))
	snap := s.Snapshot()

	require.True(t, s.Set("DENSITY", 4))

	v, ok := snap.Get("DENSITY")
	require.True(t, ok)
	require.Equal(t, "2", v, "snapshot must not observe later mutations")
}

func TestEnviron(t *testing.T) {
	t.Parallel()

	s := Parse([]byte("NUMROBOTS=20\n# comment\nDENSITY=2\n"))

	require.Equal(t, []string{"NUMROBOTS=20", "DENSITY=2"}, s.Environ())
}

func TestSet_DottedNameRoutesToParamFile(t *testing.T) {
	t.Parallel()

	pf := ParseParamFile([]byte("params['consensus']['module'] = 'ProofOfAuthority'\n"), "params", "")
	s := Parse([]byte(sampleConfig))
	s.AttachParamFile(pf)

	require.True(t, s.Set("consensus.module", "'ProofOfWork'"))

	v, ok := pf.Get("consensus", "module")
	require.True(t, ok)
	require.Equal(t, "'ProofOfWork'", v)

	require.False(t, s.Set("consensus.missing", "x"), "unknown nested key must report false")
}

func TestSet_DottedNameWithoutParamFile(t *testing.T) {
	t.Parallel()

	s := Parse([]byte(sampleConfig))
	require.False(t, s.Set("generic.num_robots", "10"))
}
