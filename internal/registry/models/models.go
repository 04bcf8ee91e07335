// Package models defines the registry's two record families and their
// state-transition rules. Records are created through validating
// constructors; transitions go through Apply* methods so stores can run them
// inside their locking discipline.
package models

import (
	"strings"
	"time"

	"certledger/pkg/domain"
	dErrors "certledger/pkg/domain-errors"
)

// Field bounds carried over from the registry's public contract.
const (
	MaxInstitutionNameLen = 128
	MaxTitleLen           = 200
	MaxDescriptionLen     = 500
	MaxGradeLen           = 10
	MaxMetadataURILen     = 300
)

// Institution is an issuing authority registered by the registry owner.
//
// Invariants:
//   - ID is assigned by the store, dense and strictly increasing from 1
//   - Name is non-empty, at most MaxInstitutionNameLen characters, immutable
//   - ControllingAddress is the only identity allowed to issue or revoke
//     certificates under this institution; immutable
//   - Active starts true and transitions one-way to false; there is no
//     reactivation operation
type Institution struct {
	ID                 domain.InstitutionID `json:"id"`
	Name               string               `json:"name"`
	ControllingAddress domain.Address       `json:"controlling_address"`
	Active             bool                 `json:"is_active"`
	CreatedAt          time.Time            `json:"created_at"`
}

// NewInstitution validates and constructs an active institution. The id comes
// from the store's allocator, never from a caller.
func NewInstitution(id domain.InstitutionID, name string, controlling domain.Address, now time.Time) (*Institution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "institution name cannot be empty")
	}
	if len(name) > MaxInstitutionNameLen {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "institution name must be %d characters or less", MaxInstitutionNameLen)
	}
	if controlling.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "controlling address is required")
	}
	return &Institution{
		ID:                 id,
		Name:               name,
		ControllingAddress: controlling,
		Active:             true,
		CreatedAt:          now,
	}, nil
}

// ApplyDeactivation marks the institution inactive. Deactivating an already
// inactive institution is a no-op; the operation is idempotent by contract.
func (i *Institution) ApplyDeactivation() {
	i.Active = false
}

// Certificate is a credential minted by an institution's controlling address.
//
// Invariants:
//   - ID is assigned by the store, dense and strictly increasing from 1,
//     sequenced independently of institution ids
//   - InstitutionID referenced an existing institution at issuance time;
//     later deactivation of the institution does not touch the certificate
//   - Recipient differs from the issuing institution's controlling address
//   - Every field except Revoked is write-once
//   - Revoked starts false and transitions one-way to true
//
// Grade and MetadataURI are optional; nil means the issuer omitted them,
// which is distinct from an empty value and preserved through the read path.
type Certificate struct {
	ID            domain.CertificateID `json:"id"`
	InstitutionID domain.InstitutionID `json:"institution_id"`
	Recipient     domain.Address       `json:"recipient"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Grade         *string              `json:"grade,omitempty"`
	MetadataURI   *string              `json:"metadata_uri,omitempty"`
	IssueDate     time.Time            `json:"issue_date"`
	Revoked       bool                 `json:"is_revoked"`
}

// NewCertificate validates field bounds and constructs an unrevoked
// certificate. Referential integrity and the self-issuance rule are checked
// by the engine before this constructor runs, preserving the contract's
// error precedence.
func NewCertificate(
	id domain.CertificateID,
	institutionID domain.InstitutionID,
	recipient domain.Address,
	title, description string,
	grade, metadataURI *string,
	issueDate time.Time,
) (*Certificate, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title cannot be empty")
	}
	if len(title) > MaxTitleLen {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "title must be %d characters or less", MaxTitleLen)
	}
	if description == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "description cannot be empty")
	}
	if len(description) > MaxDescriptionLen {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "description must be %d characters or less", MaxDescriptionLen)
	}
	if grade != nil && len(*grade) > MaxGradeLen {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "grade must be %d characters or less", MaxGradeLen)
	}
	if metadataURI != nil && len(*metadataURI) > MaxMetadataURILen {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "metadata URI must be %d characters or less", MaxMetadataURILen)
	}
	if recipient.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient is required")
	}
	return &Certificate{
		ID:            id,
		InstitutionID: institutionID,
		Recipient:     recipient,
		Title:         title,
		Description:   description,
		Grade:         grade,
		MetadataURI:   metadataURI,
		IssueDate:     issueDate,
		Revoked:       false,
	}, nil
}

// ApplyRevocation marks the certificate revoked. Revoking an already revoked
// certificate is a no-op; revocation is monotone and never reversed.
func (c *Certificate) ApplyRevocation() {
	c.Revoked = true
}

// Verification is the verdict returned by the verify operation: the computed
// validity plus both joined records, so a caller can distinguish why a
// certificate is invalid (revoked, institution deactivated, or both).
type Verification struct {
	IsValid     bool         `json:"is_valid"`
	Certificate *Certificate `json:"certificate"`
	Institution *Institution `json:"institution"`
}

// NewVerification computes the verdict from the joined records.
func NewVerification(cert *Certificate, inst *Institution) *Verification {
	return &Verification{
		IsValid:     !cert.Revoked && inst.Active,
		Certificate: cert,
		Institution: inst,
	}
}

// RegistryInfo summarizes registry state for the public info endpoint.
type RegistryInfo struct {
	TotalInstitutions uint64         `json:"total_institutions"`
	TotalCertificates uint64         `json:"total_certificates"`
	Owner             domain.Address `json:"owner"`
}
