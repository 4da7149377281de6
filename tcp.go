package wdns

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Largest message a 2-octet TCP length prefix can frame.
const maxTCPMessageSize = 0xFFFF

// tcpStream is one TCP connection to a server, framing messages with a
// 16-bit big-endian length prefix. A single connection carries the
// query and all continuation responses of one exchange.
type tcpStream struct {
	conn net.Conn
	stop func() bool
}

func dialTCPStream(ctx context.Context, addr string) (*tcpStream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "tcp dial")
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(0, 0)) })
	return &tcpStream{conn: conn, stop: stop}, nil
}

func (s *tcpStream) close() {
	s.stop()
	s.conn.Close()
}

// send writes one length-prefixed message.
func (s *tcpStream) send(wire []byte) error {
	if len(wire) > maxTCPMessageSize {
		return FormatError{"message exceeds 65535 octets"}
	}
	frame := make([]byte, 2+len(wire))
	binary.BigEndian.PutUint16(frame, uint16(len(wire)))
	copy(frame[2:], wire)
	if _, err := s.conn.Write(frame); err != nil {
		return errors.Wrap(err, "tcp send")
	}
	return nil
}

// receive reads the next length-prefixed message from the stream.
func (s *tcpStream) receive() (*Msg, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(s.conn, prefix[:]); err != nil {
		return nil, errors.Wrap(err, "tcp receive")
	}
	buf := make([]byte, binary.BigEndian.Uint16(prefix[:]))
	if _, err := io.ReadFull(s.conn, buf); err != nil {
		return nil, errors.Wrap(err, "tcp receive")
	}
	a := new(Msg)
	if err := a.Unpack(buf); err != nil {
		return nil, err
	}
	return a, nil
}
