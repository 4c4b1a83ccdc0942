package device

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// Field selects which part of a Descriptor a Signature inspects.
type Field string

// Fields of Descriptor.
const (
	FieldID          Field = "id"
	FieldDescription Field = "description"
)

// Signature identifies the target peripheral by a substring of a
// Descriptor field.
type Signature struct {
	Field     Field  `yaml:"field"`
	Substring string `yaml:"substring"`
}

// IsValid indicates the signature can be matched.
func (s Signature) IsValid() bool {
	return s.Substring != "" && (s.Field == FieldID || s.Field == FieldDescription)
}

// Match reports whether d carries the signature.
func (s Signature) Match(d Descriptor) bool {
	switch s.Field {
	case FieldID:
		return strings.Contains(d.ID, s.Substring)
	case FieldDescription:
		return strings.Contains(d.Description, s.Substring)
	}
	return false
}

// Matcher decides whether a device is a candidate peripheral.
type Matcher func(Descriptor) bool

// Platform is the enumeration strategy of one OS.
type Platform struct {
	// Signature is the default signature, nil if the platform has none yet.
	Signature *Signature
}

// Platforms are the known strategies keyed by GOOS.
//
// darwin has no default signature: device nodes there (/dev/tty.* and
// /dev/cu.*) carry no stable board marker, so candidates are only reported
// once a signature is configured.
var Platforms = map[string]Platform{
	"windows": {Signature: &Signature{Field: FieldDescription, Substring: "Arduino"}},
	"linux":   {Signature: &Signature{Field: FieldID, Substring: "ttyACM"}},
	"darwin":  {},
}

// PortLister lists the ports of candidate peripherals.
type PortLister struct {
	Platform   string
	Enumerator Enumerator
	Matcher    Matcher
}

// NewPortLister creates a PortLister for the OS goos. A signature in
// overrides replaces the platform default.
func NewPortLister(goos string, e Enumerator, overrides map[string]Signature) (*PortLister, error) {
	platform, ok := Platforms[goos]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	sig := platform.Signature
	if s, ok := overrides[goos]; ok {
		if !s.IsValid() {
			return nil, fmt.Errorf("invalid signature for %s: field=%q substring=%q", goos, s.Field, s.Substring)
		}
		sig = &s
	}
	l := &PortLister{Platform: goos, Enumerator: e}
	if sig != nil {
		l.Matcher = sig.Match
	} else {
		l.Matcher = unimplementedMatcher(goos)
	}
	return l, nil
}

func unimplementedMatcher(goos string) Matcher {
	var once sync.Once
	return func(Descriptor) bool {
		once.Do(func() {
			glog.Warningf("no peripheral signature configured for %s, no port will be selected", goos)
		})
		return false
	}
}

// ListCandidatePorts returns the IDs of matching devices in enumeration order.
func (l *PortLister) ListCandidatePorts() ([]string, error) {
	devices, err := l.Enumerator.Enumerate()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, d := range devices {
		if l.Matcher(d) {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}
