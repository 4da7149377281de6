package wdns

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// RData is the record-data payload of a resource record. Concrete types
// are registered per record type; anything unknown round-trips as
// OpaqueData.
type RData interface {
	// pack writes the payload. Compression of embedded names is only
	// attempted when the enclosing section permits it for this type.
	pack(p *packer, compress bool) error

	// maxLength is the upper bound of the encoded size, used to size
	// the message buffer before compression is applied.
	maxLength() int

	fmt.Stringer
}

// rdataParsers maps a record type to the parser for its payload. The
// unpacker holds the entire message so embedded names can chase
// compression pointers. Parsers must consume exactly length octets.
var rdataParsers = map[RecordType]func(u *unpacker, length int) (RData, error){
	TypeA:     parseA,
	TypeNS:    parseNS,
	TypeCNAME: parseCNAME,
	TypeSOA:   parseSOA,
	TypePTR:   parsePTR,
	TypeMX:    parseMX,
	TypeTXT:   parseTXT,
	TypeAAAA:  parseAAAA,
	TypeSRV:   parseSRV,
}

// parseRData dispatches to the registered parser and enforces the
// RDLENGTH contract.
func parseRData(t RecordType, u *unpacker, length int) (RData, error) {
	if u.off+length > len(u.msg) {
		return nil, FormatError{"record data extends past end of message"}
	}
	parse := rdataParsers[t]
	if parse == nil {
		parse = parseOpaque
	}
	start := u.off
	rd, err := parse(u, length)
	if err != nil {
		return nil, err
	}
	if u.off != start+length {
		return nil, FormatError{fmt.Sprintf("record data length mismatch for %s: expected %d octets, consumed %d", t, length, u.off-start)}
	}
	return rd, nil
}

// compressionAllowed reports whether names inside the record data of
// this type may be written in compressed form. Only the RFC 1035
// well-known types compress; newer types like SRV must not (RFC 3597).
func compressionAllowed(t RecordType) bool {
	switch t {
	case TypeNS, TypeCNAME, TypeSOA, TypePTR, TypeMX:
		return true
	}
	return false
}

// AData is an IPv4 host address.
type AData struct {
	Addr net.IP
}

func parseA(u *unpacker, length int) (RData, error) {
	if length != net.IPv4len {
		return nil, FormatError{"A record data must be 4 octets"}
	}
	b, err := u.bytes(net.IPv4len)
	if err != nil {
		return nil, err
	}
	return &AData{Addr: net.IP(b)}, nil
}

func (d *AData) pack(p *packer, _ bool) error {
	addr := d.Addr.To4()
	if addr == nil {
		return FormatError{"not an IPv4 address"}
	}
	p.writeBytes(addr)
	return nil
}

func (d *AData) maxLength() int { return net.IPv4len }

func (d *AData) String() string { return d.Addr.String() }

// AAAAData is an IPv6 host address.
type AAAAData struct {
	Addr net.IP
}

func parseAAAA(u *unpacker, length int) (RData, error) {
	if length != net.IPv6len {
		return nil, FormatError{"AAAA record data must be 16 octets"}
	}
	b, err := u.bytes(net.IPv6len)
	if err != nil {
		return nil, err
	}
	return &AAAAData{Addr: net.IP(b)}, nil
}

func (d *AAAAData) pack(p *packer, _ bool) error {
	addr := d.Addr.To16()
	if addr == nil {
		return FormatError{"not an IPv6 address"}
	}
	p.writeBytes(addr)
	return nil
}

func (d *AAAAData) maxLength() int { return net.IPv6len }

func (d *AAAAData) String() string { return d.Addr.String() }

// NSData names an authoritative server for the owner.
type NSData struct {
	Host Name
}

func parseNS(u *unpacker, _ int) (RData, error) {
	n, err := u.name()
	if err != nil {
		return nil, err
	}
	return &NSData{Host: n}, nil
}

func (d *NSData) pack(p *packer, compress bool) error {
	return p.writeName(d.Host, compress)
}

func (d *NSData) maxLength() int { return d.Host.maxEncodedLength() }

func (d *NSData) String() string { return d.Host.String() }

// CNAMEData is the canonical name of an alias.
type CNAMEData struct {
	Target Name
}

func parseCNAME(u *unpacker, _ int) (RData, error) {
	n, err := u.name()
	if err != nil {
		return nil, err
	}
	return &CNAMEData{Target: n}, nil
}

func (d *CNAMEData) pack(p *packer, compress bool) error {
	return p.writeName(d.Target, compress)
}

func (d *CNAMEData) maxLength() int { return d.Target.maxEncodedLength() }

func (d *CNAMEData) String() string { return d.Target.String() }

// PTRData points to a name, typically for reverse lookups.
type PTRData struct {
	Target Name
}

func parsePTR(u *unpacker, _ int) (RData, error) {
	n, err := u.name()
	if err != nil {
		return nil, err
	}
	return &PTRData{Target: n}, nil
}

func (d *PTRData) pack(p *packer, compress bool) error {
	return p.writeName(d.Target, compress)
}

func (d *PTRData) maxLength() int { return d.Target.maxEncodedLength() }

func (d *PTRData) String() string { return d.Target.String() }

// MXData names a mail exchange with its preference.
type MXData struct {
	Preference uint16
	Exchange   Name
}

func parseMX(u *unpacker, _ int) (RData, error) {
	pref, err := u.uint16()
	if err != nil {
		return nil, err
	}
	n, err := u.name()
	if err != nil {
		return nil, err
	}
	return &MXData{Preference: pref, Exchange: n}, nil
}

func (d *MXData) pack(p *packer, compress bool) error {
	p.writeUint16(d.Preference)
	return p.writeName(d.Exchange, compress)
}

func (d *MXData) maxLength() int { return 2 + d.Exchange.maxEncodedLength() }

func (d *MXData) String() string {
	return fmt.Sprintf("%d %s", d.Preference, d.Exchange)
}

// SOAData marks the start of a zone of authority.
type SOAData struct {
	MName   Name
	RName   Name
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func parseSOA(u *unpacker, _ int) (RData, error) {
	mname, err := u.name()
	if err != nil {
		return nil, err
	}
	rname, err := u.name()
	if err != nil {
		return nil, err
	}
	d := &SOAData{MName: mname, RName: rname}
	for _, v := range []*uint32{&d.Serial, &d.Refresh, &d.Retry, &d.Expire, &d.Minimum} {
		if *v, err = u.uint32(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *SOAData) pack(p *packer, compress bool) error {
	if err := p.writeName(d.MName, compress); err != nil {
		return err
	}
	if err := p.writeName(d.RName, compress); err != nil {
		return err
	}
	for _, v := range []uint32{d.Serial, d.Refresh, d.Retry, d.Expire, d.Minimum} {
		p.writeUint32(v)
	}
	return nil
}

func (d *SOAData) maxLength() int {
	return d.MName.maxEncodedLength() + d.RName.maxEncodedLength() + 20
}

func (d *SOAData) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d", d.MName, d.RName, d.Serial, d.Refresh, d.Retry, d.Expire, d.Minimum)
}

// TXTData holds one or more character-strings of up to 255 octets each.
type TXTData struct {
	Text []string
}

func parseTXT(u *unpacker, length int) (RData, error) {
	end := u.off + length
	var text []string
	for u.off < end {
		size, err := u.uint8()
		if err != nil {
			return nil, err
		}
		if u.off+int(size) > end {
			return nil, FormatError{"TXT character-string extends past record data"}
		}
		s, err := u.bytes(int(size))
		if err != nil {
			return nil, err
		}
		text = append(text, string(s))
	}
	return &TXTData{Text: text}, nil
}

func (d *TXTData) pack(p *packer, _ bool) error {
	for _, s := range d.Text {
		if len(s) > 255 {
			return FormatError{"TXT character-string exceeds 255 octets"}
		}
		p.writeUint8(uint8(len(s)))
		p.writeBytes([]byte(s))
	}
	return nil
}

func (d *TXTData) maxLength() int {
	var length int
	for _, s := range d.Text {
		length += 1 + len(s)
	}
	return length
}

func (d *TXTData) String() string {
	quoted := make([]string, len(d.Text))
	for i, s := range d.Text {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, " ")
}

// SRVData locates a service endpoint. The target is always written
// uncompressed per RFC 2782.
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   Name
}

func parseSRV(u *unpacker, _ int) (RData, error) {
	d := &SRVData{}
	var err error
	for _, v := range []*uint16{&d.Priority, &d.Weight, &d.Port} {
		if *v, err = u.uint16(); err != nil {
			return nil, err
		}
	}
	if d.Target, err = u.name(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *SRVData) pack(p *packer, _ bool) error {
	p.writeUint16(d.Priority)
	p.writeUint16(d.Weight)
	p.writeUint16(d.Port)
	return p.writeName(d.Target, false)
}

func (d *SRVData) maxLength() int { return 6 + d.Target.maxEncodedLength() }

func (d *SRVData) String() string {
	return fmt.Sprintf("%d %d %d %s", d.Priority, d.Weight, d.Port, d.Target)
}

// OpaqueData preserves the raw payload of record types without a
// registered parser, keeping unknown records round-trippable.
type OpaqueData struct {
	Data []byte
}

func parseOpaque(u *unpacker, length int) (RData, error) {
	b, err := u.bytes(length)
	if err != nil {
		return nil, err
	}
	return &OpaqueData{Data: b}, nil
}

func (d *OpaqueData) pack(p *packer, _ bool) error {
	p.writeBytes(d.Data)
	return nil
}

func (d *OpaqueData) maxLength() int { return len(d.Data) }

func (d *OpaqueData) String() string {
	return fmt.Sprintf("\\# %d %s", len(d.Data), hex.EncodeToString(d.Data))
}
