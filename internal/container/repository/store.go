package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record matches an ID or name.
var ErrNotFound = errors.New("not found")

// Record is implemented by every persisted domain type.
type Record interface {
	RecordID() string
	SetRecordID(id string)
	RecordName() string
}

// Store keeps one JSON file per record, named after the record ID.
type Store[T any, P interface {
	*T
	Record
}] struct {
	dir string
}

// NewStore creates dir if needed and returns a store rooted there.
func NewStore[T any, P interface {
	*T
	Record
}](dir string) (*Store[T, P], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &Store[T, P]{dir: dir}, nil
}

func (s *Store[T, P]) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save assigns an ID when the record has none and writes it atomically.
func (s *Store[T, P]) Save(v P) error {
	if v.RecordID() == "" {
		v.SetRecordID(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", v.RecordID(), err)
	}

	tmp := s.path(v.RecordID()) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", v.RecordID(), err)
	}
	if err := os.Rename(tmp, s.path(v.RecordID())); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", v.RecordID(), err)
	}
	return nil
}

// FindByID loads the record stored under id.
func (s *Store[T, P]) FindByID(id string) (P, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return &v, nil
}

// FindByName returns the first record whose name matches.
func (s *Store[T, P]) FindByName(name string) (P, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		if v.RecordName() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// List returns every readable record. Corrupt files are skipped.
func (s *Store[T, P]) List() ([]P, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var out []P
	for _, file := range files {
		id, ok := strings.CutSuffix(file.Name(), ".json")
		if !ok || file.IsDir() {
			continue
		}
		v, err := s.FindByID(id)
		if err == nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// Delete removes the record stored under id.
func (s *Store[T, P]) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return err
	}
	return nil
}
