package handler

type registerInstitutionRequest struct {
	Name               string `json:"name"`
	ControllingAddress string `json:"controlling_address"`
}

type issueCertificateRequest struct {
	Recipient     string  `json:"recipient"`
	InstitutionID uint64  `json:"institution_id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Grade         *string `json:"grade,omitempty"`
	MetadataURI   *string `json:"metadata_uri,omitempty"`
}
