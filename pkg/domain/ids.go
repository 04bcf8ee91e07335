// Package domain holds the identifier and identity types shared across the
// registry. Keeping them in one place avoids import cycles between stores,
// services, and transport.
package domain

import (
	"strconv"
	"strings"
)

// Address is the principal identity of a caller, an institution's controlling
// address, or a certificate recipient. The submission layer authenticates it
// out-of-band; the registry trusts it as given and only ever compares for
// equality.
type Address string

func (a Address) String() string { return string(a) }

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

// InstitutionID is a dense sequential identifier starting at 1, assigned by
// the registry store. Zero is never a valid id.
type InstitutionID uint64

func (id InstitutionID) IsZero() bool { return id == 0 }

func (id InstitutionID) String() string { return strconv.FormatUint(uint64(id), 10) }

// CertificateID is a dense sequential identifier starting at 1, sequenced
// independently of institution ids.
type CertificateID uint64

func (id CertificateID) IsZero() bool { return id == 0 }

func (id CertificateID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseInstitutionID parses a decimal institution id from transport input.
func ParseInstitutionID(s string) (InstitutionID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return InstitutionID(v), nil
}

// ParseCertificateID parses a decimal certificate id from transport input.
func ParseCertificateID(s string) (CertificateID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return CertificateID(v), nil
}
