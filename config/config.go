// Package config holds the YAML configuration of a mesh workflow and builds
// the logger, hierarchy and helpers it describes.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/notargets/DGMesh/hierarchy"
	"github.com/notargets/DGMesh/partitions"
	"github.com/notargets/DGMesh/quantity"
	"github.com/notargets/DGMesh/refine"
	"github.com/notargets/DGMesh/serialize"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration
type Config struct {
	// Geometric dimension of new hierarchies
	GeometricDimension int `yaml:"geometric_dimension"`

	Logging       LoggingConfig       `yaml:"logging"`
	Serialization SerializationConfig `yaml:"serialization"`
	Refinement    RefinementConfig    `yaml:"refinement"`
	Quantity      QuantityConfig      `yaml:"quantity"`
	Partitioning  PartitioningConfig  `yaml:"partitioning"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // json, console
}

type SerializationConfig struct {
	Compression string `yaml:"compression"` // none, zstd, lz4
}

type RefinementConfig struct {
	// Edges longer than this are split; 0 splits every edge
	MaxEdgeLength float64 `yaml:"max_edge_length"`
}

type QuantityConfig struct {
	Layout string `yaml:"layout"` // dense, sparse
}

type PartitioningConfig struct {
	Strategy   string `yaml:"strategy"` // block, round_robin, graph, space_filling_curve
	TargetSize int    `yaml:"target_size"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		GeometricDimension: hierarchy.DefaultGeometricDimension,
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Serialization: SerializationConfig{
			Compression: "none",
		},
		Quantity: QuantityConfig{
			Layout: "dense",
		},
		Partitioning: PartitioningConfig{
			Strategy:   "graph",
			TargetSize: 1024,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks every field that names an enumerated value
func (c *Config) Validate() error {
	if c.GeometricDimension <= 0 {
		return fmt.Errorf("geometric_dimension must be positive, got %d", c.GeometricDimension)
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("logging.encoding must be json or console, got %q", c.Logging.Encoding)
	}
	if _, err := c.Compression(); err != nil {
		return fmt.Errorf("serialization.compression: %w", err)
	}
	if c.Refinement.MaxEdgeLength < 0 {
		return fmt.Errorf("refinement.max_edge_length must not be negative, got %g",
			c.Refinement.MaxEdgeLength)
	}
	if _, err := c.FieldLayout(); err != nil {
		return fmt.Errorf("quantity.layout: %w", err)
	}
	if _, err := partitions.ParseStrategy(c.Partitioning.Strategy); err != nil {
		return fmt.Errorf("partitioning.strategy: %w", err)
	}
	if c.Partitioning.TargetSize <= 0 {
		return fmt.Errorf("partitioning.target_size must be positive, got %d", c.Partitioning.TargetSize)
	}
	return nil
}

// Logger builds a production zap logger at the configured level
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = c.Logging.Encoding
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// NewHierarchy creates an empty hierarchy with the configured dimension.
// Options given here are applied after the configured ones.
func (c *Config) NewHierarchy(opts ...hierarchy.Option) *hierarchy.Hierarchy {
	all := append([]hierarchy.Option{hierarchy.WithGeometricDimension(c.GeometricDimension)}, opts...)
	return hierarchy.New(all...)
}

func (c *Config) FieldLayout() (quantity.Layout, error) {
	return quantity.ParseLayout(c.Quantity.Layout)
}

func (c *Config) Compression() (serialize.Compression, error) {
	return serialize.ParseCompression(c.Serialization.Compression)
}

// Selector picks the edges to refine: every edge longer than
// MaxEdgeLength, or all edges when it is zero.
func (c *Config) Selector() refine.Selector {
	if c.Refinement.MaxEdgeLength > 0 {
		return refine.LongerThan(c.Refinement.MaxEdgeLength)
	}
	return refine.AllEdges()
}

// PartitionBuilder returns a builder over m with the configured strategy
func (c *Config) PartitionBuilder(m hierarchy.Mesh, logger *zap.Logger) (*partitions.PartitionBuilder, error) {
	strategy, err := partitions.ParseStrategy(c.Partitioning.Strategy)
	if err != nil {
		return nil, err
	}
	return &partitions.PartitionBuilder{
		Mesh:                m,
		TargetPartitionSize: c.Partitioning.TargetSize,
		Strategy:            strategy,
		Logger:              logger,
	}, nil
}
