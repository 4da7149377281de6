package wdns

import (
	"math/rand"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustName(t *testing.T, s string) Name {
	t.Helper()
	n, err := ParseName(s)
	require.NoError(t, err)
	return n
}

func TestPackQueryHeaderBytes(t *testing.T) {
	q := new(Msg)
	q.SetQuestion(mustName(t, "example.com"), TypeA)
	q.ID = 0x1234

	wire, err := q.Pack()
	require.NoError(t, err)

	header := []byte{0x12, 0x34, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	qname := []byte{7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}
	require.Equal(t, header, wire[:12])
	require.Equal(t, qname, wire[12:26])
	require.Equal(t, []byte{0x00, 0x01, 0x00, 0x01}, wire[26:])
}

func TestUnpackCompressedNS(t *testing.T) {
	// Response with one NS record whose owner and NSDNAME point back at
	// the question name at offset 12.
	wire := []byte{
		0x00, 0x01, 0x81, 0x80, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0, // QNAME at offset 12
		0x00, 0x02, 0x00, 0x01, // NS IN
		0xC0, 0x0C, // owner: pointer to offset 12
		0x00, 0x02, 0x00, 0x01, // NS IN
		0x00, 0x00, 0x0E, 0x10, // TTL 3600
		0x00, 0x02, // RDLENGTH
		0xC0, 0x0C, // NSDNAME: pointer to offset 12
	}
	m := new(Msg)
	require.NoError(t, m.Unpack(wire))
	require.Len(t, m.Answer, 1)
	require.Equal(t, "example.com.", m.Answer[0].Name.String())
	ns, ok := m.Answer[0].Data.(*NSData)
	require.True(t, ok)
	require.Equal(t, "example.com.", ns.Host.String())
	require.Equal(t, int32(3600), m.Answer[0].TTL)
}

func TestUnpackBinaryLabel(t *testing.T) {
	wire := []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x41, 0x20, 0xC0, 0x00, 0x02, 0x01, // binary label, 32 bits
		3, 'i', 'p', '6', 0x00,
		0x00, 0x0C, 0x00, 0x01, // PTR IN
	}
	m := new(Msg)
	require.NoError(t, m.Unpack(wire))
	require.Len(t, m.Question, 1)
	require.Equal(t, []string{"\\[xc0000201/32]", "ip6"}, m.Question[0].Name.Labels())
}

func TestUnpackBinaryLabelMasksUnusedBits(t *testing.T) {
	wire := []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x41, 0x04, 0xFF, // 4 bits, low nibble must be masked off
		0x00,
		0x00, 0x0C, 0x00, 0x01,
	}
	m := new(Msg)
	require.NoError(t, m.Unpack(wire))
	require.Equal(t, []string{"\\[xf0/4]"}, m.Question[0].Name.Labels())
}

func testMsg(t *testing.T) *Msg {
	m := new(Msg)
	m.SetQuestion(mustName(t, "mail.example.com"), TypeANY)
	m.ID = 0xBEEF
	m.Response = true
	m.Authoritative = true
	m.RecursionAvailable = true
	m.Answer = []Record{
		{Name: mustName(t, "mail.example.com"), Type: TypeA, Class: ClassIN, TTL: 300,
			Data: &AData{Addr: net.IP{93, 184, 216, 34}}},
		{Name: mustName(t, "mail.example.com"), Type: TypeAAAA, Class: ClassIN, TTL: 300,
			Data: &AAAAData{Addr: net.ParseIP("2606:2800:220:1::1")}},
		{Name: mustName(t, "mail.example.com"), Type: TypeCNAME, Class: ClassIN, TTL: 60,
			Data: &CNAMEData{Target: mustName(t, "mx.example.com")}},
		{Name: mustName(t, "example.com"), Type: TypeMX, Class: ClassIN, TTL: 3600,
			Data: &MXData{Preference: 10, Exchange: mustName(t, "mx.example.com")}},
		{Name: mustName(t, "example.com"), Type: TypeTXT, Class: ClassIN, TTL: 3600,
			Data: &TXTData{Text: []string{"v=spf1 -all", "second string"}}},
		{Name: mustName(t, "_imap._tcp.example.com"), Type: TypeSRV, Class: ClassIN, TTL: 120,
			Data: &SRVData{Priority: 1, Weight: 5, Port: 993, Target: mustName(t, "mail.example.com")}},
		{Name: mustName(t, "4.3.2.1.in-addr.arpa"), Type: TypePTR, Class: ClassIN, TTL: 300,
			Data: &PTRData{Target: mustName(t, "mail.example.com")}},
	}
	m.Ns = []Record{
		{Name: mustName(t, "example.com"), Type: TypeNS, Class: ClassIN, TTL: 86400,
			Data: &NSData{Host: mustName(t, "ns1.example.com")}},
		{Name: mustName(t, "example.com"), Type: TypeSOA, Class: ClassIN, TTL: 86400,
			Data: &SOAData{MName: mustName(t, "ns1.example.com"), RName: mustName(t, "hostmaster.example.com"),
				Serial: 2024061300, Refresh: 7200, Retry: 900, Expire: 1209600, Minimum: 300}},
	}
	m.Extra = []Record{
		{Name: mustName(t, "example.com"), Type: RecordType(4242), Class: ClassIN, TTL: 60,
			Data: &OpaqueData{Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}},
	}
	return m
}

func TestPackUnpackRoundTrip(t *testing.T) {
	m := testMsg(t)
	wire, err := m.Pack()
	require.NoError(t, err)
	require.LessOrEqual(t, len(wire), m.maxLength())

	parsed := new(Msg)
	require.NoError(t, parsed.Unpack(wire))
	require.Equal(t, m, parsed)
}

func TestPackCompression(t *testing.T) {
	m := testMsg(t)
	compressed, err := m.Pack()
	require.NoError(t, err)
	canonical, err := m.PackCanonical()
	require.NoError(t, err)
	require.Less(t, len(compressed), len(canonical))

	// Compression must not change the parsed message
	a, b := new(Msg), new(Msg)
	require.NoError(t, a.Unpack(compressed))
	require.NoError(t, b.Unpack(canonical))
	require.Equal(t, a, b)
}

func TestPackCompressionPointer(t *testing.T) {
	m := new(Msg)
	m.SetQuestion(mustName(t, "example.com"), TypeNS)
	m.Response = true
	m.Answer = []Record{
		{Name: mustName(t, "example.com"), Type: TypeNS, Class: ClassIN, TTL: 3600,
			Data: &NSData{Host: mustName(t, "example.com")}},
	}
	wire, err := m.Pack()
	require.NoError(t, err)

	// The answer owner name is a pointer to the question name at offset 12
	off := 12 + 13 + 4 // header + QNAME + type/class
	require.Equal(t, []byte{0xC0, 0x0C}, wire[off:off+2])
}

func TestPackCanonicalDeterministic(t *testing.T) {
	a := new(Msg)
	a.SetQuestion(mustName(t, "ExAmPlE.CoM"), TypeA)
	a.ID = 7
	b := new(Msg)
	b.SetQuestion(mustName(t, "example.com"), TypeA)
	b.ID = 7

	wireA, err := a.PackCanonical()
	require.NoError(t, err)
	wireB, err := b.PackCanonical()
	require.NoError(t, err)
	require.Equal(t, wireA, wireB)
}

func TestPackHeaderFidelity(t *testing.T) {
	m := testMsg(t)
	m.Opcode = OpcodeNotify
	m.Rcode = RcodeRefused
	m.Truncated = true
	m.CheckingDisabled = true
	m.AuthenticatedData = true

	wire, err := m.Pack()
	require.NoError(t, err)
	parsed := new(Msg)
	require.NoError(t, parsed.Unpack(wire))

	require.Equal(t, m.ID, parsed.ID)
	require.Equal(t, m.flagWord(), parsed.flagWord())
	require.Len(t, parsed.Question, len(m.Question))
	require.Len(t, parsed.Answer, len(m.Answer))
	require.Len(t, parsed.Ns, len(m.Ns))
	require.Len(t, parsed.Extra, len(m.Extra))
}

func TestUnpackUnterminatedName(t *testing.T) {
	wire := []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		3, 'c', 'o', 'm', // no terminating zero byte
	}
	err := new(Msg).Unpack(wire)
	require.Error(t, err)
	require.IsType(t, FormatError{}, err)
}

func TestUnpackForwardPointer(t *testing.T) {
	wire := []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xC0, 0x20, // points past itself
		0x00, 0x01, 0x00, 0x01,
	}
	err := new(Msg).Unpack(wire)
	require.Error(t, err)
	require.IsType(t, FormatError{}, err)
}

func TestUnpackPointerLoop(t *testing.T) {
	wire := []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		1, 'a', // offset 12
		0xC0, 0x0C, // back to offset 12, looping through the same label
		0x00, 0x01, 0x00, 0x01,
	}
	err := new(Msg).Unpack(wire)
	require.Error(t, err)
	require.IsType(t, FormatError{}, err)
}

func TestUnpackUnsupportedLabel(t *testing.T) {
	wire := []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x42, 0x01, 0x02, 0x00, // extended label type 66
		0x00, 0x01, 0x00, 0x01,
	}
	err := new(Msg).Unpack(wire)
	require.Error(t, err)
	require.IsType(t, UnsupportedLabelError{}, err)
}

func TestUnpackRDLengthMismatch(t *testing.T) {
	wire := []byte{
		0x00, 0x01, 0x80, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		3, 'c', 'o', 'm', 0,
		0x00, 0x02, 0x00, 0x01, // NS IN
		0x00, 0x00, 0x0E, 0x10,
		0x00, 0x06, // RDLENGTH 6, but the name below is only 5 octets
		3, 'n', 's', '1', 0,
	}
	err := new(Msg).Unpack(wire)
	require.Error(t, err)
	require.IsType(t, FormatError{}, err)
}

// Random buffers must parse or fail, never hang or read out of bounds.
func TestUnpackRandomBuffers(t *testing.T) {
	rnd := rand.New(rand.NewSource(0x1234))
	for i := 0; i < 10000; i++ {
		buf := make([]byte, rnd.Intn(600))
		rnd.Read(buf)
		_ = new(Msg).Unpack(buf)
	}
}

// Buffers derived from a valid message with random mutations exercise
// deeper parse paths than pure noise.
func TestUnpackMutatedBuffers(t *testing.T) {
	m := testMsg(t)
	wire, err := m.Pack()
	require.NoError(t, err)
	rnd := rand.New(rand.NewSource(0x5678))
	for i := 0; i < 10000; i++ {
		buf := make([]byte, len(wire))
		copy(buf, wire)
		for j := 0; j < 4; j++ {
			buf[rnd.Intn(len(buf))] = byte(rnd.Intn(256))
		}
		_ = new(Msg).Unpack(buf[:rnd.Intn(len(buf)+1)])
	}
}
