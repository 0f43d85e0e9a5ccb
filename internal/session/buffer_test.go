package session

import (
	"bytes"
	"testing"

	"github.com/mediasmith/captor/pkg/capture"
)

func TestBufferAppendAccumulates(t *testing.T) {
	b := NewBuffer()

	if got := b.Append(capture.Chunk{Data: []byte{1, 2, 3}}); got != 3 {
		t.Errorf("cumulative = %d, want 3", got)
	}
	if got := b.Append(capture.Chunk{Data: []byte{4}}); got != 4 {
		t.Errorf("cumulative = %d, want 4", got)
	}
	// Empty fragments count as arrivals but add no bytes.
	if got := b.Append(capture.Chunk{}); got != 4 {
		t.Errorf("cumulative = %d, want 4", got)
	}

	if got := b.Len(); got != 3 {
		t.Errorf("len = %d, want 3", got)
	}
	if got := b.Bytes(); got != 4 {
		t.Errorf("bytes = %d, want 4", got)
	}
}

func TestBufferFinalizePreservesOrder(t *testing.T) {
	b := NewBuffer()
	b.Append(capture.Chunk{Data: []byte("one")})
	b.Append(capture.Chunk{Data: []byte("two")})
	b.Append(capture.Chunk{Data: []byte("three")})

	p := b.Finalize("audio/ogg;codecs=opus")
	if !bytes.Equal(p.Data, []byte("onetwothree")) {
		t.Errorf("payload = %q, want %q", p.Data, "onetwothree")
	}
	if p.MimeType != "audio/ogg;codecs=opus" {
		t.Errorf("mime type = %q", p.MimeType)
	}

	// Finalize must not consume the fragments: the payload doubles as a
	// preview until the next attempt resets the buffer.
	if got := b.Len(); got != 3 {
		t.Errorf("len after finalize = %d, want 3", got)
	}
	p2 := b.Finalize("audio/ogg;codecs=opus")
	if !bytes.Equal(p2.Data, p.Data) {
		t.Error("second finalize should produce the same payload")
	}
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer()
	b.Append(capture.Chunk{Data: []byte{1, 2}})
	b.Reset()

	if got := b.Bytes(); got != 0 {
		t.Errorf("bytes after reset = %d, want 0", got)
	}
	if got := b.Len(); got != 0 {
		t.Errorf("len after reset = %d, want 0", got)
	}
	if got := len(b.Finalize("").Data); got != 0 {
		t.Errorf("payload after reset = %d bytes, want 0", got)
	}
}
