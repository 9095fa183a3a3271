// Package protocol defines the wire representation shared by the broker,
// its client and worker sessions, and the Titanic persistent store: an
// ordered sequence of opaque byte frames, plus the small set of envelope
// commands the broker speaks.
//
// Frames are deliberately uninterpreted here. Titanic treats a request's
// first frame as a target service name and nothing more; the MM and
// document-store workers are the only code in this repository that goes
// further and treats frame contents as JSON.
package protocol

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Frames is an ordered sequence of opaque byte frames, the unit every
// endpoint, the dispatcher, and the on-disk store exchange.
type Frames [][]byte

// Command identifies the kind of envelope carried over a broker connection.
type Command byte

const (
	// CmdReady registers a worker connection for a named service.
	CmdReady Command = iota + 1
	// CmdRequest carries a client request to the broker, and the broker's
	// relay of that request on to a worker.
	CmdRequest
	// CmdReply carries a worker's reply back through the broker to a client.
	CmdReply
	// CmdHeartbeat is reserved for worker keep-alives. Nothing in this
	// repository sends it, and the broker gives it no special handling.
	CmdHeartbeat
	// CmdDisconnect is reserved for a clean session close. Nothing in this
	// repository sends it, and the broker gives it no special handling.
	CmdDisconnect
)

// Envelope is one broker-protocol message: a Command, the service the
// message concerns (empty for heartbeats/disconnects), and payload Frames.
type Envelope struct {
	Command Command
	Service string
	Frames  Frames
}

var bufferPool = sync.Pool{
	New: func() interface{} { return new([]byte) },
}

// WriteEnvelope writes env to w as: command byte, service length+bytes,
// frame count, then each frame's length+bytes. All lengths are uint32
// big-endian. Files written by titanic/store.go use EncodeFrames instead,
// which has the same frame layout without the command and service fields.
//
// Writes go straight to w with no intermediate buffering: w is very often
// a long-lived net.Conn shared across many calls (a Worker's or Client's
// session), and a bufio.Writer discarded at the end of this function
// would be harmless on the write side, but ReadEnvelope's matching
// concern — not over-reading into a buffer that doesn't survive past a
// single call — rules out buffering on this side too, for symmetry and
// because io.MultiWriter-style framing bugs are easy to reintroduce by
// "fixing" just one side.
func WriteEnvelope(w io.Writer, env Envelope) error {
	if _, err := w.Write([]byte{byte(env.Command)}); err != nil {
		return errors.Wrap(err, "writing command")
	}
	if err := writeChunk(w, []byte(env.Service)); err != nil {
		return errors.Wrap(err, "writing service")
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(env.Frames))); err != nil {
		return errors.Wrap(err, "writing frame count")
	}
	for i, f := range env.Frames {
		if err := writeChunk(w, f); err != nil {
			return errors.Wrapf(err, "writing frame %d", i)
		}
	}
	return nil
}

// ReadEnvelope reads back an Envelope written by WriteEnvelope. r is read
// directly, with no bufio.Reader wrapping: r is typically a persistent
// net.Conn read from by many successive ReadEnvelope calls (a Worker
// polling for requests, a broker connection relaying many client calls),
// and a bufio.Reader created fresh each call would read ahead into its
// own internal buffer and discard on return whatever bytes belonged to
// the *next* envelope — corrupting the stream. Every read below asks for
// exactly the bytes it needs, so no such buffer is needed.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var env Envelope

	var cmd [1]byte
	if _, err := io.ReadFull(r, cmd[:]); err != nil {
		return env, err // EOF / connection closed propagates unwrapped.
	}
	env.Command = Command(cmd[0])

	svc, err := readChunk(r)
	if err != nil {
		return env, errors.Wrap(err, "reading service")
	}
	env.Service = string(svc)

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return env, errors.Wrap(err, "reading frame count")
	}
	env.Frames = make(Frames, n)
	for i := range env.Frames {
		if env.Frames[i], err = readChunk(r); err != nil {
			return env, errors.Wrapf(err, "reading frame %d", i)
		}
	}
	return env, nil
}

// EncodeFrames writes just a Frames sequence (no envelope/command),
// used to persist .req and .rep files to disk.
func EncodeFrames(w io.Writer, frames Frames) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(frames))); err != nil {
		return errors.Wrap(err, "writing frame count")
	}
	for i, f := range frames {
		if err := writeChunk(w, f); err != nil {
			return errors.Wrapf(err, "writing frame %d", i)
		}
	}
	return nil
}

// DecodeFrames reads back a Frames sequence written by EncodeFrames.
func DecodeFrames(r io.Reader) (Frames, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, errors.Wrap(err, "reading frame count")
	}
	frames := make(Frames, n)
	for i := range frames {
		f, err := readChunk(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading frame %d", i)
		}
		frames[i] = f
	}
	return frames, nil
}

func writeChunk(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readChunk(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	bp := bufferPool.Get().(*[]byte)
	if cap(*bp) < int(n) {
		*bp = make([]byte, n)
	}
	buf := (*bp)[:n]
	if _, err := io.ReadFull(r, buf); err != nil {
		bufferPool.Put(bp)
		return nil, err
	}
	// Return a copy: the pooled buffer is reused by the next readChunk call.
	out := make([]byte, n)
	copy(out, buf)
	bufferPool.Put(bp)
	return out, nil
}
