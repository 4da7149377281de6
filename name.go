package wdns

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	// Longest label supported on the wire. The length prefix of a normal
	// label only has 6 usable bits, values 64-255 select other label forms.
	maxLabelLength = 63

	// Maximum number of labels in a single name. Bounds all decode loops.
	maxLabels = 127

	// Maximum encoded length of a name, including the root byte.
	maxNameLength = 255
)

// Name is a domain name, held as an ordered sequence of labels. The
// first label is the leftmost (most specific) one, the root label is
// implicit. The zero value is the root name.
type Name struct {
	labels []string
}

// Root is the DNS root name.
var Root = Name{}

// NewName builds a name from individual labels. Labels are used as-is,
// without presentation-format unescaping.
func NewName(labels ...string) (Name, error) {
	n := Name{labels: labels}
	if err := n.validate(); err != nil {
		return Name{}, err
	}
	return n, nil
}

// ParseName parses a name in presentation format, i.e. labels separated
// by dots with an optional trailing dot. "" and "." parse to the root.
func ParseName(s string) (Name, error) {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return Root, nil
	}
	return NewName(strings.Split(s, ".")...)
}

func (n Name) validate() error {
	if len(n.labels) > maxLabels {
		return errors.New("too many labels in name")
	}
	length := 1
	for _, label := range n.labels {
		if label == "" {
			return errors.New("empty label in name")
		}
		if len(label) > maxLabelLength {
			return errors.Errorf("label '%s' exceeds %d octets", label, maxLabelLength)
		}
		length += 1 + len(label)
	}
	if length > maxNameLength {
		return errors.New("name exceeds 255 octets")
	}
	return nil
}

// IsRoot reports whether the name is the DNS root.
func (n Name) IsRoot() bool {
	return len(n.labels) == 0
}

// Labels returns a copy of the name's labels.
func (n Name) Labels() []string {
	out := make([]string, len(n.labels))
	copy(out, n.labels)
	return out
}

// String renders the name in presentation format with a trailing dot.
// The root renders as ".".
func (n Name) String() string {
	if n.IsRoot() {
		return "."
	}
	return strings.Join(n.labels, ".") + "."
}

// Equal compares two names label by label, ignoring ASCII case.
func (n Name) Equal(other Name) bool {
	if len(n.labels) != len(other.labels) {
		return false
	}
	for i := range n.labels {
		if !equalLabel(n.labels[i], other.labels[i]) {
			return false
		}
	}
	return true
}

// Parent returns the name with its first label removed. The parent of
// the root is the root.
func (n Name) Parent() Name {
	if n.IsRoot() {
		return Root
	}
	return Name{labels: n.labels[1:]}
}

// Append returns the concatenation of n and suffix, typically used to
// qualify a host name with a zone name.
func (n Name) Append(suffix Name) (Name, error) {
	labels := make([]string, 0, len(n.labels)+len(suffix.labels))
	labels = append(labels, n.labels...)
	labels = append(labels, suffix.labels...)
	return NewName(labels...)
}

// Lower returns the canonical lowercase form of the name.
func (n Name) Lower() Name {
	labels := make([]string, len(n.labels))
	for i, label := range n.labels {
		labels[i] = lowerLabel(label)
	}
	return Name{labels: labels}
}

// maxEncodedLength is the size of the name on the wire without
// compression: one length byte per label plus the root byte.
func (n Name) maxEncodedLength() int {
	length := 1
	for _, label := range n.labels {
		length += 1 + len(label)
	}
	return length
}

// key is the case-folded form used in the compression table.
func (n Name) key() string {
	return strings.Join(n.Lower().labels, ".")
}

// ASCII-only case folding, DNS names don't fold beyond A-Z.
func lowerLabel(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

func equalLabel(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
