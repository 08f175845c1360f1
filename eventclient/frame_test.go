package eventclient

import (
	"bufio"
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	body := []byte("hello event stream")
	var buf bytes.Buffer
	if err := writeFrame(&buf, body); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	got, err := readFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("round trip mismatch: got %q want %q", got, body)
	}
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	// length prefix claims a frame larger than maxFrameSize
	oversize := uint32(maxFrameSize + 1)
	buf.WriteByte(byte(oversize))
	buf.WriteByte(byte(oversize >> 8))
	buf.WriteByte(byte(oversize >> 16))
	buf.WriteByte(byte(oversize >> 24))

	if _, err := readFrame(bufio.NewReader(&buf)); err == nil {
		t.Fatal("expected error for oversize frame")
	}
}

func TestReadFrameRejectsTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte("truncate me")); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-3]

	if _, err := readFrame(bufio.NewReader(bytes.NewReader(truncated))); err == nil {
		t.Fatal("expected error for truncated frame body")
	}
}
