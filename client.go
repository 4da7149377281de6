package wdns

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"expvar"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

const (
	defaultTimeout = 5 * time.Second
	defaultPort    = "53"
)

// QueryOptions are the recognized per-query options. A nil options
// value means recursion desired and checking enabled.
type QueryOptions struct {
	RecursionDesired bool
	CheckingDisabled bool
}

// ClientMetrics hold expvar counters for one client instance.
type ClientMetrics struct {
	// Queries sent, per server
	query *expvar.Map
	// Failed attempts, per server
	failure *expvar.Map
	// Count of fail-overs to the next server
	failover *expvar.Int
	// Count of truncated UDP responses retried over TCP
	truncated *expvar.Int
}

func NewClientMetrics(id string) *ClientMetrics {
	return &ClientMetrics{
		query:     getVarMap("client", id, "query"),
		failure:   getVarMap("client", id, "failure"),
		failover:  getVarInt("client", id, "failover"),
		truncated: getVarInt("client", id, "truncated"),
	}
}

// Client resolves DNS queries against an ordered list of servers over
// plain UDP and TCP. Servers are tried strictly in order, each attempt
// receiving a fair share of the remaining time budget. A truncated UDP
// response is retried over TCP against the same server before moving
// on.
type Client struct {
	id      string
	servers []string
	timeout time.Duration

	// Transports available to the engine. Both are enabled by
	// NewClient; disable one directly before issuing queries.
	UDPEnabled bool
	TCPEnabled bool

	// Largest datagram the engine will send or accept over UDP.
	// Queries that don't fit go straight to TCP.
	UDPSize uint16

	metrics *ClientMetrics
}

var _ Resolver = &Client{}

// NewClient returns a new instance of Client with both transports
// enabled. Servers without a port get the default DNS port 53. A zero
// timeout selects the default of 5s.
func NewClient(id string, timeout time.Duration, servers ...string) (*Client, error) {
	if len(servers) == 0 {
		return nil, errors.New("at least one server is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	addrs := make([]string, 0, len(servers))
	for _, server := range servers {
		addrs = append(addrs, withDefaultPort(server))
	}
	return &Client{
		id:         id,
		servers:    addrs,
		timeout:    timeout,
		UDPEnabled: true,
		TCPEnabled: true,
		UDPSize:    defaultUDPSize,
		metrics:    NewClientMetrics(id),
	}, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("DNS(%s)", strings.Join(c.servers, ","))
}

// Query resolves name with the given type in the IN class using
// default options.
func (c *Client) Query(name string, t RecordType) (*Msg, error) {
	return c.QueryContext(context.Background(), name, t, ClassIN, nil)
}

// QueryContext builds a query from its parts and resolves it. The name
// is IDNA-encoded, so unicode names are accepted.
func (c *Client) QueryContext(ctx context.Context, name string, t RecordType, class RecordClass, opt *QueryOptions) (*Msg, error) {
	q, err := buildQuery(name, t, class, opt)
	if err != nil {
		return nil, err
	}
	return c.Resolve(ctx, q)
}

// SendMessage resolves a prebuilt query message.
func (c *Client) SendMessage(q *Msg) (*Msg, error) {
	return c.Resolve(context.Background(), q)
}

// Resolve a prebuilt DNS query. Implements the Resolver interface.
// Servers are tried in order until one produces a usable response;
// cancellation and the total timeout abort the sequence immediately.
func (c *Client) Resolve(ctx context.Context, q *Msg) (*Msg, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := logger(c.id, q)
	var lastErr error
	for i, server := range c.servers {
		attemptCtx, cancelAttempt := c.attemptContext(ctx, len(c.servers)-i)
		a, err := c.attempt(attemptCtx, server, q)
		cancelAttempt()
		if err == nil {
			return a, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, c.terminalError(ctx, q, err)
		}
		log.WithField("server", server).WithError(err).Debug("server attempt failed, trying next")
		c.metrics.failure.Add(server, 1)
		c.metrics.failover.Add(1)
		lastErr = err
	}
	// The last attempt's deadline coincides with the global one, so a
	// timeout there may surface as an attempt failure rather than
	// through ctx.Err().
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return nil, QueryTimeoutError{query: q}
	}
	return nil, NoResponseError{Cause: lastErr}
}

// attemptContext derives the per-server deadline: a fair share of the
// remaining budget split across the servers not yet tried.
func (c *Client) attemptContext(ctx context.Context, serversLeft int) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	share := time.Until(deadline) / time.Duration(serversLeft)
	return context.WithTimeout(ctx, share)
}

// terminalError distinguishes caller cancellation from the overall
// budget running out.
func (c *Client) terminalError(ctx context.Context, q *Msg, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}
	return QueryTimeoutError{query: q}
}

// attempt runs one server attempt: UDP first when the query fits the
// datagram cap, upgrading to TCP on the same server when the response
// comes back truncated.
func (c *Client) attempt(ctx context.Context, server string, q *Msg) (*Msg, error) {
	id, err := transactionID()
	if err != nil {
		return nil, err
	}
	attempt := q.copyForAttempt(id)
	wire, err := attempt.Pack()
	if err != nil {
		return nil, err
	}
	c.metrics.query.Add(server, 1)

	var udpErr error
	if c.UDPEnabled && len(wire) <= int(c.UDPSize) {
		a, err := exchangeUDP(ctx, server, attempt, wire, int(c.UDPSize))
		if err == nil {
			if !a.Truncated || !c.TCPEnabled {
				// A truncated answer is returned as-is, TC bit
				// preserved, when TCP is not available.
				return a, nil
			}
			c.metrics.truncated.Add(1)
			logger(c.id, q).WithField("server", server).Debug("truncated response, retrying over tcp")
		} else {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			udpErr = err
		}
	}
	if !c.TCPEnabled {
		if udpErr != nil {
			return nil, udpErr
		}
		return nil, errors.New("query does not fit in a udp payload and tcp is disabled")
	}
	return c.exchangeTCP(ctx, server, attempt, wire)
}

// exchangeTCP sends the query over a single TCP connection and reads
// framed responses until the message reports the stream as complete.
// Continuation messages, as in zone transfers, have their sections
// concatenated onto the first response.
func (c *Client) exchangeTCP(ctx context.Context, server string, q *Msg, wire []byte) (*Msg, error) {
	stream, err := dialTCPStream(ctx, server)
	if err != nil {
		return nil, err
	}
	defer stream.close()
	if err := stream.send(wire); err != nil {
		return nil, err
	}

	var combined *Msg
	var soaTotal int
	for {
		a, err := stream.receive()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if combined == nil {
			if !responseMatches(q, a) {
				return nil, errors.New("response does not match query")
			}
			combined = a
		} else {
			// Continuation messages may omit the question section,
			// only the transaction ID is checked.
			if a.ID != q.ID {
				return nil, errors.New("continuation message id mismatch")
			}
			combined.absorb(a)
		}
		soaTotal += a.soaCount()
		if !a.nextMessageWaiting(q.Question[0], soaTotal) {
			return combined, nil
		}
	}
}

// buildQuery assembles a query message from its parts, applying the
// option defaults and IDNA-encoding the name.
func buildQuery(name string, t RecordType, class RecordClass, opt *QueryOptions) (*Msg, error) {
	if name == "" {
		return nil, errors.New("query name is required")
	}
	host := strings.TrimSuffix(name, ".")
	if host != "" {
		var err error
		if host, err = idna.Lookup.ToASCII(host); err != nil {
			return nil, fmt.Errorf("invalid query name '%s': %w", name, err)
		}
	}
	n, err := ParseName(host)
	if err != nil {
		return nil, err
	}
	rd, cd := true, false
	if opt != nil {
		rd, cd = opt.RecursionDesired, opt.CheckingDisabled
	}
	m := new(Msg)
	m.SetQuestion(n, t)
	m.Question[0].Class = class
	m.RecursionDesired = rd
	m.CheckingDisabled = cd
	return m, nil
}

// validateQuery applies the caller contract before any I/O happens.
func validateQuery(q *Msg) error {
	if q == nil {
		return errors.New("query message is required")
	}
	if len(q.Question) == 0 {
		if q.Opcode == OpcodeUpdate {
			return errors.New("update message requires a zone")
		}
		return errors.New("message has no question")
	}
	return nil
}

// transactionID draws a fresh ID from the system CSPRNG for every
// server attempt. Predictable IDs make off-path spoofing easier.
func transactionID() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generating transaction id: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// withDefaultPort adds the DNS port to addresses that don't have one.
func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}
