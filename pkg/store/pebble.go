package store

import (
	"encoding/json"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	threadKeyPrefix = "thread:"
	lastThreadKey   = "meta:last"
)

// PebbleStore persists thread state in a Pebble key-value database.
// Keys: thread:<id> holds the JSON state, meta:last names the most
// recently saved thread.
type PebbleStore struct {
	db *pebble.DB
}

var _ ThreadStore = (*PebbleStore)(nil)

func NewPebbleStore(path string) (*PebbleStore, error) {
	log.Debug().Str("path", path).Msg("opening pebble thread store")
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open pebble database at %s", path)
	}
	return &PebbleStore{db: db}, nil
}

func threadKey(id string) []byte {
	return []byte(threadKeyPrefix + id)
}

func (s *PebbleStore) SaveThread(state *ThreadState) error {
	if state == nil || state.ID == "" {
		return errors.New("thread state needs an id")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "could not marshal thread state")
	}
	if err := s.db.Set(threadKey(state.ID), data, pebble.Sync); err != nil {
		return errors.Wrapf(err, "could not write thread %s", state.ID)
	}
	if err := s.db.Set([]byte(lastThreadKey), []byte(state.ID), pebble.Sync); err != nil {
		return errors.Wrap(err, "could not update last-thread pointer")
	}
	return nil
}

func (s *PebbleStore) LoadThread(id string) (*ThreadState, bool, error) {
	data, closer, err := s.db.Get(threadKey(id))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "could not read thread %s", id)
	}
	defer func() { _ = closer.Close() }()

	if issues := ValidateThreadJSON(data); len(issues) > 0 {
		log.Warn().Str("thread", id).Strs("issues", issues).Msg("thread state does not match schema, loading anyway")
	}

	var state ThreadState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, errors.Wrapf(err, "could not decode thread %s", id)
	}
	return &state, true, nil
}

func (s *PebbleStore) LoadLastThread() (*ThreadState, bool, error) {
	data, closer, err := s.db.Get([]byte(lastThreadKey))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "could not read last-thread pointer")
	}
	id := string(data)
	_ = closer.Close()
	return s.LoadThread(id)
}

func (s *PebbleStore) ListThreads() ([]ThreadInfo, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(threadKeyPrefix),
		UpperBound: []byte(threadKeyPrefix + "\xff"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not iterate threads")
	}
	defer func() { _ = iter.Close() }()

	infos := []ThreadInfo{}
	for iter.First(); iter.Valid(); iter.Next() {
		var state ThreadState
		if err := json.Unmarshal(iter.Value(), &state); err != nil {
			log.Warn().Err(err).Str("key", string(iter.Key())).Msg("skipping undecodable thread entry")
			continue
		}
		infos = append(infos, state.Info())
	}
	return infos, nil
}

// DeleteThread removes a thread. Absence is a successful no-op: Pebble
// deletes are blind writes.
func (s *PebbleStore) DeleteThread(id string) error {
	if err := s.db.Delete(threadKey(id), pebble.Sync); err != nil {
		return errors.Wrapf(err, "could not delete thread %s", id)
	}

	data, closer, err := s.db.Get([]byte(lastThreadKey))
	if err == pebble.ErrNotFound {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "could not read last-thread pointer")
	}
	last := string(data)
	_ = closer.Close()
	if last == id {
		if err := s.db.Delete([]byte(lastThreadKey), pebble.Sync); err != nil {
			return errors.Wrap(err, "could not clear last-thread pointer")
		}
	}
	return nil
}

func (s *PebbleStore) Clear() error {
	if err := s.db.DeleteRange([]byte(threadKeyPrefix), []byte(threadKeyPrefix+"\xff"), pebble.Sync); err != nil {
		return errors.Wrap(err, "could not clear threads")
	}
	if err := s.db.Delete([]byte(lastThreadKey), pebble.Sync); err != nil {
		return errors.Wrap(err, "could not clear last-thread pointer")
	}
	return nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
