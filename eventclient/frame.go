package eventclient

import (
	"bufio"
	"encoding/binary"
	"io"
)

// maxFrameSize is the 64MiB cap from spec.md §4.8. Frames larger than this
// terminate the channel with ErrBadRequest.
const maxFrameSize = 64 * 1024 * 1024

// writeFrame prepends a little-endian u32 length (inclusive of itself, per
// spec.md §4.8) to body and writes it to w. Grounded on the teacher's
// client.send, which manually shifts length bytes into a header buffer
// before the socket write; here the shift direction is little-endian to
// match spec.md instead of the teacher's big-endian AMPS framing.
func writeFrame(w io.Writer, body []byte) error {
	total := uint32(len(body) + 4)
	if total > maxFrameSize {
		return wrapError(ErrBadRequest, "outbound frame exceeds 64MiB")
	}
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, total)
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// readFrame reads one length-prefixed frame from r and returns its body
// (the bytes following the 4-byte length prefix).
func readFrame(r *bufio.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint32(header)
	if total > maxFrameSize {
		return nil, wrapError(ErrBadRequest, "inbound frame exceeds 64MiB")
	}
	if total < 4 {
		return nil, wrapError(ErrBadRequest, "inbound frame shorter than its own length prefix")
	}
	body := make([]byte, total-4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
