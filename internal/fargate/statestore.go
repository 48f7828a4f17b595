package fargate

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// stateFileMode is the permission mode for persisted state files.
const stateFileMode = 0o644

// StateStore persists deployment state as JSON on the local filesystem. The
// state file is the record of what previous applies created and drives plan
// diffs, status checks, and destroy.
type StateStore struct {
	path string
}

// NewStateStore creates a store backed by the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the backing file path.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the persisted state. A missing file is not an error: it means
// nothing has been deployed yet and Load returns nil.
func (s *StateStore) Load() (*DeploymentState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read state file %s", s.path)
	}
	var state DeploymentState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, errors.Wrapf(err, "parse state file %s", s.path)
	}
	return &state, nil
}

// Save writes the state atomically via a temp file and rename, so a crash
// mid-write never leaves a truncated state file behind.
func (s *StateStore) Save(state *DeploymentState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create state dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".caravel-state-*")
	if err != nil {
		return errors.Wrap(err, "create temp state file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp state file")
	}
	if err := os.Chmod(tmpName, stateFileMode); err != nil {
		return errors.Wrap(err, "chmod temp state file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Wrapf(err, "rename state file to %s", s.path)
	}
	return nil
}

// Clear removes the state file. Missing files are ignored so Clear is
// idempotent.
func (s *StateStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove state file %s", s.path)
	}
	return nil
}
