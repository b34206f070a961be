// Package file implements the repositories over flat JSON files, one array
// per collection. Every call reads the file so edits made by other tools are
// picked up; writes replace the file atomically.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"carrental/internal/domain"
)

// File names of the collections inside the data directory.
const (
	CarsFile    = "cars.json"
	UsersFile   = "users.json"
	RentalsFile = "rentItem.json"
)

// keyNamespace derives keys for records stored without one.
var keyNamespace = uuid.MustParse("0d5f3b4e-55c8-4a4e-9b53-2f7e3c6a1d90")

type record interface {
	key() string
	setKey(string)
	legacy() jsonRef
}

// collection is one JSON array on disk.
type collection[R record] struct {
	mu   sync.RWMutex
	path string
	name string
}

func newCollection[R record](dir, name string) *collection[R] {
	return &collection[R]{
		path: filepath.Join(dir, name),
		name: strings.TrimSuffix(name, filepath.Ext(name)),
	}
}

// load reads the collection. A missing or empty file is an empty
// collection. Records without a key get one derived from their legacy id,
// or their position when they have none, so keys are stable across reads.
func (c *collection[R]) load() ([]R, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var records []R
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.path, err)
	}

	for i, r := range records {
		if r.key() != "" {
			continue
		}
		name := fmt.Sprintf("%s:index:%d", c.name, i)
		if legacy := domain.Ref(r.legacy()); !legacy.IsZero() {
			name = fmt.Sprintf("%s:%d:%s", c.name, legacy.Kind, legacy)
		}
		r.setKey(uuid.NewSHA1(keyNamespace, []byte(name)).String())
	}
	return records, nil
}

// save writes records to a temporary file and renames it over the
// collection.
func (c *collection[R]) save(records []R) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), "."+c.name+"-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace %s: %w", c.path, err)
	}
	return nil
}

// find returns the first record satisfying match.
func (c *collection[R]) find(match func(R) bool) (R, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero R
	records, err := c.load()
	if err != nil {
		return zero, false, err
	}
	for _, r := range records {
		if match(r) {
			return r, true, nil
		}
	}
	return zero, false, nil
}

// filter returns every record satisfying match.
func (c *collection[R]) filter(match func(R) bool) ([]R, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records, err := c.load()
	if err != nil {
		return nil, err
	}

	var out []R
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// modify runs fn over the loaded records and saves what it returns.
func (c *collection[R]) modify(fn func([]R) ([]R, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load()
	if err != nil {
		return err
	}
	records, err = fn(records)
	if err != nil {
		return err
	}
	return c.save(records)
}

// parseKey accepts any UUID spelling and returns the canonical form.
func parseKey(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
