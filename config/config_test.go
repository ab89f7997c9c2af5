package config

import (
	"path/filepath"
	"testing"

	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/partitions"
	"github.com/notargets/DGMesh/quantity"
	"github.com/notargets/DGMesh/serialize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
geometric_dimension: 2
logging:
  level: debug
  encoding: console
serialization:
  compression: zstd
refinement:
  max_edge_length: 0.75
quantity:
  layout: sparse
partitioning:
  strategy: space_filling_curve
  target_size: 64
`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.GeometricDimension)
	assert.Equal(t, "console", cfg.Logging.Encoding)

	c, err := cfg.Compression()
	require.NoError(t, err)
	assert.Equal(t, serialize.CompressionZstd, c)
	l, err := cfg.FieldLayout()
	require.NoError(t, err)
	assert.Equal(t, quantity.Sparse, l)

	h := cfg.NewHierarchy()
	assert.Equal(t, 2, h.GeometricDimension())

	pb, err := cfg.PartitionBuilder(h.Root(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, partitions.SpaceFillingCurve, pb.Strategy)
	assert.Equal(t, 64, pb.TargetPartitionSize)

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("refinement:\n  max_edge_length: 2\n"))
	require.NoError(t, err)
	def := Default()
	def.Refinement.MaxEdgeLength = 2
	assert.Equal(t, def, cfg)
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"dimension":   "geometric_dimension: 0\n",
		"level":       "logging:\n  level: loud\n",
		"encoding":    "logging:\n  encoding: xml\n",
		"compression": "serialization:\n  compression: brotli\n",
		"edge length": "refinement:\n  max_edge_length: -1\n",
		"layout":      "quantity:\n  layout: packed\n",
		"strategy":    "partitioning:\n  strategy: metis\n",
		"target size": "partitioning:\n  target_size: 0\n",
		"syntax":      "geometric_dimension: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg.Serialization.Compression = "lz4"
	cfg.Partitioning.TargetSize = 8
	path := filepath.Join(dir, "nested", "mesh.yaml")
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestSelector(t *testing.T) {
	cfg := Default()
	cfg.GeometricDimension = 2
	h := cfg.NewHierarchy()
	for _, c := range [][]float64{{0, 0}, {2, 0}, {0, 1}} {
		_, err := h.MakeVertex(c)
		require.NoError(t, err)
	}
	_, err := h.MakeElement(element.Triangle, []int{0, 1, 2})
	require.NoError(t, err)

	all, err := cfg.Selector()(h.Root())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Edge lengths are 2, 1 and sqrt(5)
	cfg.Refinement.MaxEdgeLength = 1.5
	long, err := cfg.Selector()(h.Root())
	require.NoError(t, err)
	assert.Len(t, long, 2)
}
