// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire implements the length-prefixed, versioned binary message
// codec used between peers (§5). Framing follows the teacher's qzmq
// handshake messages (qzmq/messages.go): a fixed-width tag byte followed
// by big-endian length-prefixed fields, rather than the teacher's other
// codec package (codec/codec.go), which is JSON-only and has no wire
// version field of its own.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/luxfi/pqconsensus/vertex"
)

// Version is the current wire format version. A peer receiving an
// Envelope with a different version must reject it rather than guess at
// compatibility.
const Version uint8 = 1

// Kind tags which message variant an Envelope body holds.
type Kind uint8

const (
	// KindProposeVertex tags a ProposeVertex body.
	KindProposeVertex Kind = 1
	// KindQueryVertex tags a QueryVertex body.
	KindQueryVertex Kind = 2
	// KindVoteAccept tags a VoteAccept body.
	KindVoteAccept Kind = 3
	// KindVoteReject tags a VoteReject body.
	KindVoteReject Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindProposeVertex:
		return "ProposeVertex"
	case KindQueryVertex:
		return "QueryVertex"
	case KindVoteAccept:
		return "VoteAccept"
	case KindVoteReject:
		return "VoteReject"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ErrUnsupportedVersion is returned when an Envelope's version field does
// not match Version.
var ErrUnsupportedVersion = fmt.Errorf("wire: unsupported version")

// ErrUnknownKind is returned by the Decode* functions when an Envelope's
// kind field is not the kind that function decodes.
var ErrUnknownKind = fmt.Errorf("wire: unknown message kind")

// Envelope is a single framed wire message: a version, a kind tag, and an
// opaque length-prefixed body produced by one of the Encode* helpers
// below.
type Envelope struct {
	Version uint8
	Kind    Kind
	Body    []byte
}

// WriteTo serializes the envelope as: version(1) | kind(1) | len(4) |
// body(len), all big-endian.
func (e Envelope) WriteTo(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, e.Version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint8(e.Kind)); err != nil {
		return err
	}
	if len(e.Body) > 0x7FFFFFFF {
		return fmt.Errorf("wire: body too long: %d", len(e.Body))
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(e.Body))); err != nil {
		return err
	}
	_, err := w.Write(e.Body)
	return err
}

// ReadEnvelope deserializes a single Envelope from r.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var e Envelope
	if err := binary.Read(r, binary.BigEndian, &e.Version); err != nil {
		return Envelope{}, err
	}
	if e.Version != Version {
		return Envelope{}, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, e.Version, Version)
	}

	var kind uint8
	if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
		return Envelope{}, err
	}
	e.Kind = Kind(kind)

	var bodyLen uint32
	if err := binary.Read(r, binary.BigEndian, &bodyLen); err != nil {
		return Envelope{}, err
	}
	e.Body = make([]byte, bodyLen)
	if _, err := io.ReadFull(r, e.Body); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// writeLenPrefixed writes a uint16-length-prefixed byte slice.
func writeLenPrefixed(w io.Writer, b []byte) error {
	if len(b) > 0xFFFF {
		return fmt.Errorf("wire: field too long: %d", len(b))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readLenPrefixed reads a uint16-length-prefixed byte slice.
func readLenPrefixed(r io.Reader) ([]byte, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// writeID writes a fixed-size vertex.ID.
func writeID(w io.Writer, id vertex.ID) error {
	_, err := w.Write(id[:])
	return err
}

// readID reads a fixed-size vertex.ID.
func readID(r io.Reader) (vertex.ID, error) {
	var id vertex.ID
	_, err := io.ReadFull(r, id[:])
	return id, err
}

// writeUint64 writes a big-endian uint64.
func writeUint64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.BigEndian, v)
}

// readUint64 reads a big-endian uint64.
func readUint64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

// writeVote serializes the common VoteAccept/VoteReject body shape:
// queryID | vertexID | voter | len-prefixed signature.
func writeVote(w io.Writer, queryID, vertexID, voter vertex.ID, sig []byte) error {
	if err := writeID(w, queryID); err != nil {
		return err
	}
	if err := writeID(w, vertexID); err != nil {
		return err
	}
	if err := writeID(w, voter); err != nil {
		return err
	}
	return writeLenPrefixed(w, sig)
}

// readVote deserializes the common VoteAccept/VoteReject body shape.
func readVote(body []byte) (queryID, vertexID, voter vertex.ID, sig []byte, err error) {
	r := io.Reader(bytes.NewReader(body))
	if queryID, err = readID(r); err != nil {
		return
	}
	if vertexID, err = readID(r); err != nil {
		return
	}
	if voter, err = readID(r); err != nil {
		return
	}
	sig, err = readLenPrefixed(r)
	return
}
