package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const lastPointerFile = "last"

// FileStore keeps one JSON file per thread in a directory, plus a pointer
// file naming the most recently saved thread.
type FileStore struct {
	dir string
}

var _ ThreadStore = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "could not create store directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) threadPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) SaveThread(state *ThreadState) error {
	if state == nil || state.ID == "" {
		return errors.New("thread state needs an id")
	}
	state.UpdatedAt = time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = state.UpdatedAt
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not marshal thread state")
	}
	if err := os.WriteFile(s.threadPath(state.ID), data, 0644); err != nil {
		return errors.Wrapf(err, "could not write thread %s", state.ID)
	}
	if err := os.WriteFile(filepath.Join(s.dir, lastPointerFile), []byte(state.ID), 0644); err != nil {
		return errors.Wrap(err, "could not update last-thread pointer")
	}
	return nil
}

func (s *FileStore) LoadThread(id string) (*ThreadState, bool, error) {
	data, err := os.ReadFile(s.threadPath(id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "could not read thread %s", id)
	}

	if issues := ValidateThreadJSON(data); len(issues) > 0 {
		log.Warn().Str("thread", id).Strs("issues", issues).Msg("thread state does not match schema, loading anyway")
	}

	var state ThreadState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, errors.Wrapf(err, "could not decode thread %s", id)
	}
	return &state, true, nil
}

func (s *FileStore) LoadLastThread() (*ThreadState, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, lastPointerFile))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "could not read last-thread pointer")
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return nil, false, nil
	}
	return s.LoadThread(id)
}

func (s *FileStore) ListThreads() ([]ThreadInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not list store directory %s", s.dir)
	}

	infos := []ThreadInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		state, ok, err := s.LoadThread(id)
		if err != nil || !ok {
			// a single unreadable file does not break the listing
			log.Warn().Err(err).Str("thread", id).Msg("skipping unreadable thread file")
			continue
		}
		infos = append(infos, state.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// DeleteThread removes a thread. Absence is a successful no-op.
func (s *FileStore) DeleteThread(id string) error {
	if err := os.Remove(s.threadPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not delete thread %s", id)
	}

	lastPath := filepath.Join(s.dir, lastPointerFile)
	if data, err := os.ReadFile(lastPath); err == nil && strings.TrimSpace(string(data)) == id {
		if err := os.Remove(lastPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "could not clear last-thread pointer")
		}
	}
	return nil
}

func (s *FileStore) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrapf(err, "could not list store directory %s", s.dir)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() != lastPointerFile && !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return errors.Wrapf(err, "could not remove %s", entry.Name())
		}
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
