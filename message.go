package wdns

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordType identifies the type of a resource record or question.
type RecordType uint16

// Record types understood by the registry, plus the query-only types
// used by the engine. Everything else decodes to opaque record data.
const (
	TypeA     RecordType = 1
	TypeNS    RecordType = 2
	TypeCNAME RecordType = 5
	TypeSOA   RecordType = 6
	TypePTR   RecordType = 12
	TypeMX    RecordType = 15
	TypeTXT   RecordType = 16
	TypeAAAA  RecordType = 28
	TypeSRV   RecordType = 33
	TypeAXFR  RecordType = 252
	TypeANY   RecordType = 255
)

var typeNames = map[RecordType]string{
	TypeA:     "A",
	TypeNS:    "NS",
	TypeCNAME: "CNAME",
	TypeSOA:   "SOA",
	TypePTR:   "PTR",
	TypeMX:    "MX",
	TypeTXT:   "TXT",
	TypeAAAA:  "AAAA",
	TypeSRV:   "SRV",
	TypeAXFR:  "AXFR",
	TypeANY:   "ANY",
}

func (t RecordType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "TYPE" + strconv.Itoa(int(t))
}

// RecordTypeFromString maps a type mnemonic like "AAAA" to its value.
func RecordTypeFromString(s string) (RecordType, bool) {
	for t, name := range typeNames {
		if strings.EqualFold(s, name) {
			return t, true
		}
	}
	return 0, false
}

// RecordClass identifies the protocol class of a record or question.
type RecordClass uint16

const (
	ClassIN  RecordClass = 1
	ClassCH  RecordClass = 3
	ClassHS  RecordClass = 4
	ClassANY RecordClass = 255
)

func (c RecordClass) String() string {
	switch c {
	case ClassIN:
		return "IN"
	case ClassCH:
		return "CH"
	case ClassHS:
		return "HS"
	case ClassANY:
		return "ANY"
	}
	return "CLASS" + strconv.Itoa(int(c))
}

// Opcode is the 4-bit kind-of-query field in the message header.
type Opcode uint8

const (
	OpcodeQuery  Opcode = 0
	OpcodeIQuery Opcode = 1
	OpcodeStatus Opcode = 2
	OpcodeNotify Opcode = 4
	OpcodeUpdate Opcode = 5
)

func (o Opcode) String() string {
	switch o {
	case OpcodeQuery:
		return "QUERY"
	case OpcodeIQuery:
		return "IQUERY"
	case OpcodeStatus:
		return "STATUS"
	case OpcodeNotify:
		return "NOTIFY"
	case OpcodeUpdate:
		return "UPDATE"
	}
	return "OPCODE" + strconv.Itoa(int(o))
}

// Rcode is the 4-bit response code in the message header. Codes above
// 15 exist only with EDNS extended rcodes and are preserved as plain
// integers.
type Rcode uint8

const (
	RcodeNoError  Rcode = 0
	RcodeFormErr  Rcode = 1
	RcodeServFail Rcode = 2
	RcodeNXDomain Rcode = 3
	RcodeNotImp   Rcode = 4
	RcodeRefused  Rcode = 5
)

func (r Rcode) String() string {
	switch r {
	case RcodeNoError:
		return "NOERROR"
	case RcodeFormErr:
		return "FORMERR"
	case RcodeServFail:
		return "SERVFAIL"
	case RcodeNXDomain:
		return "NXDOMAIN"
	case RcodeNotImp:
		return "NOTIMP"
	case RcodeRefused:
		return "REFUSED"
	}
	return "RCODE" + strconv.Itoa(int(r))
}

// Header flag bits. The opcode occupies bits 11-14, the rcode bits 0-3.
const (
	flagQR = 1 << 15
	flagAA = 1 << 10
	flagTC = 1 << 9
	flagRD = 1 << 8
	flagRA = 1 << 7
	flagZ  = 1 << 6
	flagAD = 1 << 5
	flagCD = 1 << 4
)

// Question is a single entry of the question section.
type Question struct {
	Name  Name
	Type  RecordType
	Class RecordClass
}

// maxLength is the worst-case encoded size: the uncompressed name plus
// 2 octets each for type and class.
func (q Question) maxLength() int {
	return q.Name.maxEncodedLength() + 4
}

// Matches reports whether the other question refers to the same name
// (ignoring case), type and class.
func (q Question) Matches(other Question) bool {
	return q.Type == other.Type && q.Class == other.Class && q.Name.Equal(other.Name)
}

func (q Question) String() string {
	return fmt.Sprintf("%s %s %s", q.Name, q.Class, q.Type)
}

// Record is a resource record in the answer, authority or additional
// section.
type Record struct {
	Name  Name
	Type  RecordType
	Class RecordClass
	TTL   int32
	Data  RData
}

// maxLength is the worst-case encoded size: the uncompressed name, the
// 10-octet fixed record header, and the record data upper bound.
func (r Record) maxLength() int {
	return r.Name.maxEncodedLength() + 10 + r.Data.maxLength()
}

func (r Record) String() string {
	return fmt.Sprintf("%s %d %s %s %s", r.Name, r.TTL, r.Class, r.Type, r.Data)
}

// Msg is a DNS message. The header flag word is decomposed into
// booleans, opcode and rcode; section counts are derived from the
// slice lengths on encode.
type Msg struct {
	ID                 uint16
	Response           bool
	Opcode             Opcode
	Authoritative      bool
	Truncated          bool
	RecursionDesired   bool
	RecursionAvailable bool
	Zero               bool
	AuthenticatedData  bool
	CheckingDisabled   bool
	Rcode              Rcode

	Question []Question
	Answer   []Record
	Ns       []Record
	Extra    []Record
}

// SetQuestion initializes the message as a recursive query with a
// single question in the IN class, clearing any previous sections.
func (m *Msg) SetQuestion(name Name, qtype RecordType) *Msg {
	m.Response = false
	m.Opcode = OpcodeQuery
	m.RecursionDesired = true
	m.Question = []Question{{Name: name, Type: qtype, Class: ClassIN}}
	m.Answer, m.Ns, m.Extra = nil, nil, nil
	return m
}

// copyForAttempt duplicates the message so each server attempt can
// carry a fresh transaction ID without mutating the caller's message.
// Sections are immutable once submitted and are shared.
func (m *Msg) copyForAttempt(id uint16) *Msg {
	dup := *m
	dup.ID = id
	return &dup
}

// maxLength is the upper bound used to size encode buffers. Actual
// encodings are shorter whenever compression applies.
func (m *Msg) maxLength() int {
	length := headerLength
	for _, q := range m.Question {
		length += q.maxLength()
	}
	for _, s := range [][]Record{m.Answer, m.Ns, m.Extra} {
		for _, r := range s {
			length += r.maxLength()
		}
	}
	return length
}

// soaCount returns the number of SOA records in the answer section,
// used to find zone transfer boundaries.
func (m *Msg) soaCount() int {
	var n int
	for _, r := range m.Answer {
		if r.Type == TypeSOA {
			n++
		}
	}
	return n
}

// nextMessageWaiting reports whether more messages follow on the same
// TCP stream for the given question. Zone transfers span messages until
// the opening SOA repeats; every other response is a single message.
func (m *Msg) nextMessageWaiting(q Question, soaTotal int) bool {
	if q.Type != TypeAXFR {
		return false
	}
	return soaTotal < 2
}

// absorb appends the record sections of a continuation message.
func (m *Msg) absorb(next *Msg) {
	m.Answer = append(m.Answer, next.Answer...)
	m.Ns = append(m.Ns, next.Ns...)
	m.Extra = append(m.Extra, next.Extra...)
}

// String renders the message in a dig-like form for logs and the CLI.
func (m *Msg) String() string {
	var b strings.Builder
	kind := "query"
	if m.Response {
		kind = "response"
	}
	fmt.Fprintf(&b, ";; %s %s, id %d, rcode %s", m.Opcode, kind, m.ID, m.Rcode)
	var flags []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"aa", m.Authoritative},
		{"tc", m.Truncated},
		{"rd", m.RecursionDesired},
		{"ra", m.RecursionAvailable},
		{"ad", m.AuthenticatedData},
		{"cd", m.CheckingDisabled},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, ", flags %s", strings.Join(flags, " "))
	}
	b.WriteString("\n")
	for _, q := range m.Question {
		fmt.Fprintf(&b, ";%s\n", q)
	}
	for _, section := range []struct {
		name    string
		records []Record
	}{
		{"ANSWER", m.Answer},
		{"AUTHORITY", m.Ns},
		{"ADDITIONAL", m.Extra},
	} {
		if len(section.records) == 0 {
			continue
		}
		fmt.Fprintf(&b, ";; %s\n", section.name)
		for _, r := range section.records {
			fmt.Fprintf(&b, "%s\n", r)
		}
	}
	return b.String()
}

// Return the query name from a DNS query.
func qName(q *Msg) string {
	if len(q.Question) == 0 {
		return ""
	}
	return q.Question[0].Name.String()
}

// Returns the string representation of the query type.
func qType(q *Msg) string {
	if len(q.Question) == 0 {
		return ""
	}
	return q.Question[0].Type.String()
}
