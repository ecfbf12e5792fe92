package comms

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/trustyvm/keymint-hal/interfaces"
)

// SocketDialer dials the comm service over a stream socket ("tcp" for
// a VM comm bridge, "unix" for a local one).
type SocketDialer struct {
	Network string
	Address string

	// Timeout bounds connection establishment only; exchanges on the
	// established connection have no timeout.
	Timeout time.Duration
}

// Dial opens the connection and wraps it as a CommService.
func (d *SocketDialer) Dial() (interfaces.CommService, error) {
	conn, err := (&net.Dialer{Timeout: d.Timeout}).Dial(d.Network, d.Address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s %s: %w", d.Network, d.Address, err)
	}
	return NewSocketCommService(conn), nil
}

// SocketCommService exchanges frames over a stream connection. Each
// frame is a 4-byte big-endian length followed by the payload; both
// directions are bounded by interfaces.MaxFrameSize.
//
// Not safe for concurrent use; the shared channel serializes callers.
type SocketCommService struct {
	conn net.Conn
}

// NewSocketCommService wraps an established stream connection.
func NewSocketCommService(conn net.Conn) *SocketCommService {
	return &SocketCommService{conn: conn}
}

// Execute writes one request frame and blocks until the response frame
// is read back. There is no timeout: a hang on the trusted side blocks
// the caller indefinitely.
func (s *SocketCommService) Execute(request []byte) ([]byte, error) {
	if err := s.writeFrame(request); err != nil {
		return nil, fmt.Errorf("writing request frame: %w", err)
	}
	response, err := s.readFrame()
	if err != nil {
		return nil, fmt.Errorf("reading response frame: %w", err)
	}
	return response, nil
}

// Close closes the underlying connection.
func (s *SocketCommService) Close() error {
	return s.conn.Close()
}

func (s *SocketCommService) writeFrame(payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := s.conn.Write(header[:]); err != nil {
		return err
	}
	_, err := s.conn.Write(payload)
	return err
}

func (s *SocketCommService) readFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(s.conn, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > interfaces.MaxFrameSize {
		return nil, fmt.Errorf("response frame of %d bytes exceeds limit of %d",
			length, interfaces.MaxFrameSize)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(s.conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
