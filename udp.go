package wdns

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Largest datagram accepted for plain queries without EDNS(0).
const defaultUDPSize = 512

// exchangeUDP performs one query/response exchange over a fresh
// ephemeral UDP socket. Datagrams that fail the response checks are
// skipped and the read continues until the deadline. The socket is
// closed on every exit path.
func exchangeUDP(ctx context.Context, addr string, query *Msg, wire []byte, maxSize int) (*Msg, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "udp dial")
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	// Cancellation fires outside the I/O call, unblock it by expiring
	// the deadline.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(0, 0)) })
	defer stop()

	if _, err := conn.Write(wire); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "udp send")
	}
	buf := make([]byte, maxSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, errors.Wrap(err, "udp receive")
		}
		a := new(Msg)
		if err := a.Unpack(buf[:n]); err != nil {
			return nil, err
		}
		if !responseMatches(query, a) {
			Log.WithField("server", addr).Debug("dropping mismatched datagram")
			continue
		}
		return a, nil
	}
}

// responseMatches applies the RFC 5452 checks: the answer must have the
// QR bit set, echo the transaction ID and carry the same first
// question as the query.
func responseMatches(q, a *Msg) bool {
	if !a.Response || a.ID != q.ID {
		return false
	}
	if len(q.Question) == 0 {
		return true
	}
	if len(a.Question) == 0 {
		return false
	}
	return q.Question[0].Matches(a.Question[0])
}
