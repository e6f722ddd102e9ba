// Package replay records and plays back a stream of input events and
// lifecycle events as length-prefixed msgpack frames, letting "forge
// replay" feed a previously captured session into a host's ioloop in
// place of a live platform backend.
//
// This is a side-channel tool format. The core registries never read or
// write it; it exists purely for deterministic reload/input testing.
package replay

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/forge-engine/forge/ioloop"
	"github.com/forge-engine/forge/notify"
)

// lengthPrefixSize is the size, in bytes, of each frame's big-endian
// length prefix.
const lengthPrefixSize = 4

// maxFrameSize bounds a single recorded frame, guarding Player against a
// corrupt or truncated length prefix driving an unbounded allocation.
const maxFrameSize = 16 * 1024 * 1024

// frameKind discriminates the two recordable event types within a single
// frame stream.
type frameKind string

const (
	kindInput     frameKind = "input"
	kindLifecycle frameKind = "lifecycle"
)

type envelope struct {
	Kind      frameKind             `msgpack:"kind"`
	Input     *ioloop.InputEvent    `msgpack:"input,omitempty"`
	Lifecycle *notify.LifecycleEvent `msgpack:"lifecycle,omitempty"`
}

// ErrTooLarge is returned by Player.Next when a frame's declared length
// exceeds maxFrameSize.
var ErrTooLarge = errors.New("replay: frame exceeds maximum size")

// Recorder appends frames to an io.Writer.
type Recorder struct {
	w io.Writer
}

// NewRecorder wraps w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: w}
}

// RecordInput appends ev as a length-prefixed msgpack frame.
func (r *Recorder) RecordInput(ev ioloop.InputEvent) error {
	return r.writeEnvelope(envelope{Kind: kindInput, Input: &ev})
}

// RecordLifecycle appends ev as a length-prefixed msgpack frame.
func (r *Recorder) RecordLifecycle(ev notify.LifecycleEvent) error {
	return r.writeEnvelope(envelope{Kind: kindLifecycle, Lifecycle: &ev})
}

func (r *Recorder) writeEnvelope(e envelope) error {
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("replay: encode frame: %w", err)
	}
	_, err = r.w.Write(encodeFrame(payload))
	return err
}

func encodeFrame(payload []byte) []byte {
	buf := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:lengthPrefixSize], uint32(len(payload)))
	copy(buf[lengthPrefixSize:], payload)
	return buf
}

// Player reads frames from an io.Reader in recorded order.
type Player struct {
	r *bufio.Reader
}

// NewPlayer wraps r.
func NewPlayer(r io.Reader) *Player {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Player{r: br}
}

// Next returns the next recorded event, either an ioloop.InputEvent or a
// notify.LifecycleEvent, in the order it was recorded. It returns io.EOF
// once the stream is exhausted.
func (p *Player) Next() (any, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(p.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("replay: read length prefix: %w", err)
	}

	size := binary.BigEndian.Uint32(lenBuf[:])
	if size > maxFrameSize {
		return nil, ErrTooLarge
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(p.r, payload); err != nil {
		return nil, fmt.Errorf("replay: read payload: %w", err)
	}

	var e envelope
	if err := msgpack.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("replay: decode frame: %w", err)
	}

	switch e.Kind {
	case kindInput:
		if e.Input == nil {
			return nil, errors.New("replay: input frame missing payload")
		}
		return *e.Input, nil
	case kindLifecycle:
		if e.Lifecycle == nil {
			return nil, errors.New("replay: lifecycle frame missing payload")
		}
		return *e.Lifecycle, nil
	default:
		return nil, fmt.Errorf("replay: unknown frame kind %q", e.Kind)
	}
}
