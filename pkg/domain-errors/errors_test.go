package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumericCodesMatchContract(t *testing.T) {
	cases := map[Code]int{
		CodeNotAuthorized:            100,
		CodeCertificateNotFound:      101,
		CodeAlreadyExists:            102,
		CodeInvalidInput:             103,
		CodeInstitutionNotRegistered: 104,
		CodeCertificateRevoked:       105,
		CodeInvalidRecipient:         106,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.Numeric(), "code %s", code)
	}
	assert.Zero(t, CodeInternal.Numeric())
	assert.Zero(t, CodeBadRequest.Numeric())
}

func TestHasCodeWalksWrappedChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Wrap(cause, CodeInternal, "store failed"), CodeNotAuthorized, "caller is not the owner")

	assert.True(t, HasCode(err, CodeNotAuthorized))
	assert.True(t, HasCode(err, CodeInternal))
	assert.False(t, HasCode(err, CodeInvalidInput))
	assert.True(t, errors.Is(err, cause))
}

func TestHasCodeOnUncodedError(t *testing.T) {
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidRecipient, CodeOf(New(CodeInvalidRecipient, "self-issuance")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("handler: %w", New(CodeCertificateNotFound, "no such certificate"))
	assert.Equal(t, CodeCertificateNotFound, CodeOf(wrapped))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, ToHTTPStatus(CodeNotAuthorized))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(CodeCertificateNotFound))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(CodeInstitutionNotRegistered))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeInvalidInput))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeInvalidRecipient))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(CodeAlreadyExists))
	assert.Equal(t, http.StatusUnauthorized, ToHTTPStatus(CodeUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(CodeInternal))
}
