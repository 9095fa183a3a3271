package titanic

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/grassroot72/smamp/broker/protocol"
)

// Store is the filesystem directory holding one .req and optionally one
// .rep file per UUID, plus the dispatcher's queue file (see queue.go).
// It corresponds to spec.md §4.2 and §6.3.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir. dir defaults to ".titanic"
// under the process working directory when empty, matching spec.md §6.3.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = ".titanic"
	}
	return &Store{Dir: dir}
}

// EnsureDir idempotently creates the store directory.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating store directory %s", s.Dir)
	}
	return nil
}

// RequestPath returns the .req file path for uuid.
func (s *Store) RequestPath(uuid string) string {
	return filepath.Join(s.Dir, uuid+".req")
}

// ReplyPath returns the .rep file path for uuid.
func (s *Store) ReplyPath(uuid string) string {
	return filepath.Join(s.Dir, uuid+".rep")
}

// QueuePath returns the path of the dispatcher's queue file.
func (s *Store) QueuePath() string {
	return filepath.Join(s.Dir, "queue")
}

// SaveMessage durably writes frames to path, serialized with the same
// frame codec the broker uses on the wire (broker/protocol), so a save
// followed by a load round-trips exactly: same frame count, same bytes
// per frame, per spec.md §4.2.
func (s *Store) SaveMessage(path string, frames protocol.Frames) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "opening %s for write", path)
	}
	defer f.Close()

	if err := protocol.EncodeFrames(f, frames); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	// The file's contents are fsynced before returning, so an endpoint that
	// replies after SaveMessage succeeds has the data on disk. The directory
	// entry itself is not fsynced.
	return f.Sync()
}

// LoadMessage reads back frames previously written by SaveMessage.
func (s *Store) LoadMessage(path string) (protocol.Frames, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err // Caller distinguishes os.IsNotExist; don't wrap.
	}
	defer f.Close()

	frames, err := protocol.DecodeFrames(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return frames, nil
}

// Exists reports whether path is present, never erroring on absence.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Delete idempotently removes path; a missing file is not an error.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "deleting %s", path)
	}
	return nil
}
