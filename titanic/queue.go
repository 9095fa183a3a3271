package titanic

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Queue entries are fixed-width: one status byte ('-' pending, '+'
// processed), 32 hex UUID characters, and a line terminator — 33 bytes of
// record plus either 1 ('\n') or 2 ('\r\n') bytes of terminator, per
// spec.md §3. The queue file is owned exclusively by the dispatcher;
// endpoints never open it, removing any need for file locking.
const (
	statusPending  = '-'
	statusDone     = '+'
	recordLen      = 33 // 1 status byte + 32 hex UUID characters.
	uuidCharsInRec = 32
)

// Enqueue appends uuid to the queue file as a pending ('-') entry. The
// queue file is created lazily on first use.
func (s *Store) Enqueue(uuid string) error {
	f, err := os.OpenFile(s.QueuePath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening queue for append")
	}
	defer f.Close()

	if _, err := f.Write(append([]byte{statusPending}, append([]byte(uuid), '\n')...)); err != nil {
		return errors.Wrap(err, "appending queue entry")
	}
	return f.Sync()
}

// ScanQueue performs one pass over the queue file, invoking deliver for
// every entry still marked pending. When deliver returns true, the entry
// is flipped in place to processed ('+'); it is otherwise left pending to
// be retried on a future scan. The scan stops early if ctx is cancelled,
// per spec.md §4.6 ("abort the scan if interrupted"). A missing queue
// file (no request has ever been enqueued) is not an error.
func (s *Store) ScanQueue(ctx context.Context, deliver func(uuid string) (bool, error)) error {
	f, err := os.OpenFile(s.QueuePath(), os.O_RDWR, 0o644)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrap(err, "opening queue for scan")
	}
	defer f.Close()

	var record [recordLen]byte
	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := io.ReadFull(f, record[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return errors.Wrap(err, "reading queue record")
		}

		if record[0] == statusPending {
			uuid := string(record[1:recordLen])
			ok, err := deliver(uuid)
			if err != nil {
				return err
			}
			if ok {
				if err := markProcessed(f); err != nil {
					return err
				}
			}
		}

		if err := skipTerminator(f); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "skipping queue record terminator")
		}
	}
}

// markProcessed flips the status byte of the record just read (the file
// offset sits immediately after it) from '-' to '+', then restores the
// offset to where it was before this call.
func markProcessed(f *os.File) error {
	if _, err := f.Seek(-recordLen, io.SeekCurrent); err != nil {
		return errors.Wrap(err, "seeking to record start")
	}
	if _, err := f.Write([]byte{statusDone}); err != nil {
		return errors.Wrap(err, "writing processed marker")
	}
	if _, err := f.Seek(uuidCharsInRec, io.SeekCurrent); err != nil {
		return errors.Wrap(err, "seeking past uuid")
	}
	return nil
}

// skipTerminator consumes the '\n' or '\r\n' following a record.
func skipTerminator(f *os.File) error {
	var b [1]byte
	if _, err := io.ReadFull(f, b[:]); err != nil {
		return err
	}
	if b[0] == '\r' {
		if _, err := io.ReadFull(f, b[:]); err != nil {
			return err
		}
	}
	return nil
}
