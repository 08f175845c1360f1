package eventclient

import (
	"bufio"
	"net"
	"sync"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// fakeServer is a minimal in-process stand-in for the event-stream server,
// grounded on the teacher's tools/fakeamps accept-loop/handler split but
// trimmed to just the framing and command dispatch engine_test.go needs to
// drive the connection state machine end to end. Each accepted connection is
// handed to a test-supplied handler running on its own goroutine.
type fakeServer struct {
	t       *testing.T
	ln      net.Listener
	handler func(*fakeServer, net.Conn)

	mu      sync.Mutex
	conns   []net.Conn
	accepts int
}

func newFakeServer(t *testing.T, handler func(*fakeServer, net.Conn)) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fs := &fakeServer{t: t, ln: ln, handler: handler}
	go fs.acceptLoop()
	t.Cleanup(fs.close)
	return fs
}

func (fs *fakeServer) acceptLoop() {
	for {
		conn, err := fs.ln.Accept()
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.accepts++
		fs.mu.Unlock()
		go fs.handler(fs, conn)
	}
}

func (fs *fakeServer) acceptCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.accepts
}

func (fs *fakeServer) endpoint() NodeEndpoints {
	addr := fs.ln.Addr().(*net.TCPAddr)
	return NodeEndpoints{Host: "127.0.0.1", TCPPort: addr.Port}
}

func (fs *fakeServer) close() {
	_ = fs.ln.Close()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, c := range fs.conns {
		_ = c.Close()
	}
}

// fakeConn bundles a connection with the buffered reader its readFrame calls
// need to persist across reads.
type fakeConn struct {
	net.Conn
	r *bufio.Reader
}

func wrapFakeConn(conn net.Conn) *fakeConn {
	return &fakeConn{Conn: conn, r: bufio.NewReaderSize(conn, 64*1024)}
}

func (fc *fakeConn) readPackage() (*Package, error) {
	body, err := readFrame(fc.r)
	if err != nil {
		return nil, err
	}
	return decodePackage(body)
}

func (fc *fakeConn) writePackage(pkg *Package) error {
	body, err := encodePackage(pkg)
	if err != nil {
		return err
	}
	return writeFrame(fc.Conn, body)
}

// --- payload builders for scripted server responses ---

func fakeWriteResultPayload(code ResultCode, nextVersion, commitPos, preparePos int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldResultCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(code))
	b = protowire.AppendTag(b, fieldFirstEventNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(nextVersion))
	b = protowire.AppendTag(b, fieldCommitPosition, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(commitPos))
	b = protowire.AppendTag(b, fieldPreparePosition, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(preparePos))
	return b
}

func fakeConfirmationPayload(commitPosition, eventNumber int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldLastCommitPosition, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(commitPosition))
	b = protowire.AppendTag(b, fieldLastEventNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(eventNumber))
	return b
}

// respondToHeartbeats answers heartbeat probes inline and reports whether pkg
// was one, so scenario handlers can filter them out of their own switch.
func respondToHeartbeats(fc *fakeConn, pkg *Package) bool {
	if pkg.Command != CommandHeartbeatRequest {
		return false
	}
	_ = fc.writePackage(&Package{Command: CommandHeartbeatResponse, CorrelationID: pkg.CorrelationID})
	return true
}
