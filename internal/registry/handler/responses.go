package handler

// Institutions, certificates, and verification verdicts serialize directly
// from their model types; only ownership needs a transport-specific shape.
type ownershipResponse struct {
	CertificateID uint64 `json:"certificate_id"`
	Address       string `json:"address"`
	Owns          bool   `json:"owns"`
}
