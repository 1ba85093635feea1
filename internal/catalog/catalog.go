// Package catalog resolves logical dataset names (trained_model,
// model_metrics, raw_weather_data, ...) to files on disk, using the same
// catalog file the training pipeline writes its outputs through.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ErrUnknownDataset is returned for names the catalog does not define.
var ErrUnknownDataset = errors.New("dataset not in catalog")

// Dataset is one catalog entry.
type Dataset struct {
	Type     string `koanf:"type"`
	Filepath string `koanf:"filepath"`
}

// Catalog maps dataset names to absolute file paths.
type Catalog struct {
	root     string
	datasets map[string]Dataset
}

// Load reads catalogFile (relative to projectPath unless absolute).
func Load(projectPath, catalogFile string) (*Catalog, error) {
	if !filepath.IsAbs(catalogFile) {
		catalogFile = filepath.Join(projectPath, catalogFile)
	}

	content, err := os.ReadFile(catalogFile)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	k := koanf.New("::")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", catalogFile, err)
	}

	datasets := make(map[string]Dataset)
	if err := k.Unmarshal("", &datasets); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", catalogFile, err)
	}

	for name, ds := range datasets {
		if ds.Filepath == "" {
			return nil, fmt.Errorf("catalog entry %q has no filepath", name)
		}
	}

	return New(projectPath, datasets), nil
}

// New builds a catalog from already-decoded entries.
func New(projectPath string, datasets map[string]Dataset) *Catalog {
	return &Catalog{root: projectPath, datasets: datasets}
}

// Names lists the defined datasets in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.datasets))
	for name := range c.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Path returns the absolute file path of a dataset.
func (c *Catalog) Path(name string) (string, error) {
	ds, ok := c.datasets[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	if filepath.IsAbs(ds.Filepath) {
		return ds.Filepath, nil
	}
	return filepath.Join(c.root, ds.Filepath), nil
}

// Stat returns the dataset path and its modification time.
func (c *Catalog) Stat(name string) (string, time.Time, error) {
	path, err := c.Path(name)
	if err != nil {
		return "", time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return path, time.Time{}, err
	}
	return path, info.ModTime(), nil
}
