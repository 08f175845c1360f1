package eventclient

import (
	"bytes"
	"io"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
)

// compressionThreshold is the payload size above which encodePackage
// opportunistically flate-compresses the payload. Compression is
// self-describing via flagCompressed, so it never changes the fixed header
// layout spec.md §4.8 defines.
const compressionThreshold = 8 * 1024

// Flag bits carried in a Package's flags byte.
const (
	flagAuth       byte = 1 << 0
	flagCompressed byte = 1 << 1
)

// Package is the framed protocol unit described in spec.md §3/§4.8:
// {command, flags, correlationId, credentials?, payload}.
type Package struct {
	Command       Command
	CorrelationID uuid.UUID
	Credentials   *Credentials
	Payload       []byte
}

// hasAuth reports whether the package carries login credentials.
func (p *Package) hasAuth() bool { return p.Credentials != nil }

// encodePackage renders p into the on-the-wire package layout described in
// spec.md §4.8: command(u8) | flags(u8) | correlationId(16 bytes) |
// [authLen(u8), login, passLen(u8), pass if Auth flag set] | payload.
// Grounded on the teacher's client.send, which hand-packs a header and
// payload into a single buffer before handing it to the frame writer.
func encodePackage(p *Package) ([]byte, error) {
	if p == nil {
		return nil, wrapError(ErrInvalidArgument, "nil package")
	}
	var flags byte
	if p.hasAuth() {
		flags |= flagAuth
	}

	payload := p.Payload
	if len(payload) > compressionThreshold {
		compressed, err := compressPayload(payload)
		if err == nil && len(compressed) < len(payload) {
			payload = compressed
			flags |= flagCompressed
		}
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(p.Command))
	buf.WriteByte(flags)
	buf.Write(p.CorrelationID[:])

	if p.hasAuth() {
		if len(p.Credentials.Login) > 255 || len(p.Credentials.Password) > 255 {
			return nil, wrapError(ErrInvalidArgument, "credentials too long")
		}
		buf.WriteByte(byte(len(p.Credentials.Login)))
		buf.WriteString(p.Credentials.Login)
		buf.WriteByte(byte(len(p.Credentials.Password)))
		buf.WriteString(p.Credentials.Password)
	}

	buf.Write(payload)
	return buf.Bytes(), nil
}

// compressPayload flate-compresses data, grounded on
// jptalukdar-waddlemap-db's use of klauspost/compress for content bodies.
func compressPayload(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressPayload(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

// decodePackage parses the on-the-wire package layout back into a Package.
func decodePackage(raw []byte) (*Package, error) {
	if len(raw) < 1+1+16 {
		return nil, wrapError(ErrBadRequest, "package shorter than fixed header")
	}

	p := &Package{Command: Command(raw[0])}
	flags := raw[1]
	copy(p.CorrelationID[:], raw[2:18])
	rest := raw[18:]

	if flags&flagAuth != 0 {
		if len(rest) < 1 {
			return nil, wrapError(ErrBadRequest, "truncated auth login length")
		}
		loginLen := int(rest[0])
		rest = rest[1:]
		if len(rest) < loginLen+1 {
			return nil, wrapError(ErrBadRequest, "truncated auth login")
		}
		login := string(rest[:loginLen])
		rest = rest[loginLen:]

		passLen := int(rest[0])
		rest = rest[1:]
		if len(rest) < passLen {
			return nil, wrapError(ErrBadRequest, "truncated auth password")
		}
		password := string(rest[:passLen])
		rest = rest[passLen:]

		p.Credentials = &Credentials{Login: login, Password: password}
	}

	if flags&flagCompressed != 0 {
		decompressed, err := decompressPayload(rest)
		if err != nil {
			return nil, wrapError(ErrBadRequest, "corrupt compressed payload")
		}
		rest = decompressed
	}

	p.Payload = rest
	return p, nil
}
