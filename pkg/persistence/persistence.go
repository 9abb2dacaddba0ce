// Package persistence is a JSON-file key/value store, one file per key.
// Writes go through a temp file and rename so a crash never leaves a
// half-written state file behind.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

type Service interface {
	NewStore(prefix, id, tag string) Store
}

type Store interface {
	Save(data interface{}) error
	Load(data interface{}) error
}

// ErrNotExists is returned by Load when the key has never been saved.
var ErrNotExists = fmt.Errorf("persistence data not exists")

type JSONFileService struct {
	baseDir string
}

func NewJSONFileService(baseDir string) *JSONFileService {
	return &JSONFileService{baseDir: baseDir}
}

func (s *JSONFileService) NewStore(prefix, id, tag string) Store {
	return &JSONFileStore{
		service: s,
		key:     fmt.Sprintf("%s:%s:%s", prefix, id, tag),
	}
}

type JSONFileStore struct {
	service *JSONFileService
	key     string
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func (s *JSONFileStore) filePath() string {
	safe := keySanitizer.ReplaceAllString(s.key, "_")
	return filepath.Join(s.service.baseDir, safe+".json")
}

func (s *JSONFileStore) Save(data interface{}) error {
	if err := os.MkdirAll(s.service.baseDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	path := s.filePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *JSONFileStore) Load(data interface{}) error {
	b, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExists
		}
		return err
	}
	if len(b) == 0 {
		return ErrNotExists
	}
	return json.Unmarshal(b, data)
}
