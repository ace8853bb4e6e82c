// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/exp/slices"
)

const defaultCacheSize = 256

// Store loads artifacts from a hardhat artifacts directory. Parsed artifacts
// are kept in an LRU cache keyed by the requested name.
type Store struct {
	dir   string
	cache *lru.Cache[string, *Artifact]
}

type storeConfig struct {
	cacheSize int
}

// Option configures a Store.
type Option func(*storeConfig)

// WithCacheSize sets the number of artifacts retained in memory. A size of
// zero or less disables caching.
func WithCacheSize(size int) Option {
	return func(c *storeConfig) {
		c.cacheSize = size
	}
}

// NewStore creates a store reading from the given directory.
func NewStore(dir string, options ...Option) (*Store, error) {
	config := storeConfig{cacheSize: defaultCacheSize}
	for _, option := range options {
		option(&config)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid artifact directory: %s is not a directory", dir)
	}
	res := &Store{dir: dir}
	if config.cacheSize > 0 {
		res.cache, err = lru.New[string, *Artifact](config.cacheSize)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Load returns the artifact of the named contract. The name is either a plain
// contract name or a fully qualified <source>:<contract> name.
func (s *Store) Load(name string) (*Artifact, error) {
	if s.cache != nil {
		if res, found := s.cache.Get(name); found {
			return res, nil
		}
	}
	path, err := s.find(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.cache != nil {
		s.cache.Add(name, res)
	}
	return res, nil
}

// Names lists the fully qualified names of all artifacts in the store.
func (s *Store) Names() ([]string, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(files))
	for _, file := range files {
		res = append(res, s.qualifiedName(file))
	}
	slices.Sort(res)
	return res, nil
}

func (s *Store) find(name string) (string, error) {
	if source, contract, found := strings.Cut(name, ":"); found {
		path := filepath.Join(s.dir, filepath.FromSlash(source), contract+".json")
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%s: %w", name, ErrNotFound)
			}
			return "", err
		}
		return path, nil
	}

	files, err := s.files()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, file := range files {
		if strings.TrimSuffix(filepath.Base(file), ".json") == name {
			matches = append(matches, file)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	case 1:
		return matches[0], nil
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, s.qualifiedName(match))
	}
	slices.Sort(names)
	return "", fmt.Errorf("%s matches %s: %w", name, strings.Join(names, ", "), ErrAmbiguousName)
}

// files lists the artifact files, skipping debug files and build info.
func (s *Store) files() ([]string, error) {
	var res []string
	err := filepath.WalkDir(s.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".dbg.json") {
			res = append(res, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return res, nil
}

func (s *Store) qualifiedName(path string) string {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		rel = path
	}
	source := filepath.ToSlash(filepath.Dir(rel))
	contract := strings.TrimSuffix(filepath.Base(rel), ".json")
	if source == "." {
		return contract
	}
	return source + ":" + contract
}
