package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"certledger/internal/registry/models"
	"certledger/internal/registry/store"
	"certledger/pkg/domain"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/testutil"
)

const (
	ownerAddr      = domain.Address("ST1REGISTRYOWNER")
	universityAddr = domain.Address("ST1TESTUNIVERSITY")
	studentAddr    = domain.Address("ST1STUDENT")
	strangerAddr   = domain.Address("ST1STRANGER")
	universityName = "Test University"
)

type ServiceSuite struct {
	suite.Suite

	svc *Service
	ctx context.Context
	now time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.svc = New(ownerAddr, store.NewInMemoryInstitutionStore(), store.NewInMemoryCertificateStore())
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = testutil.WithFrozenTime(context.Background(), s.now)
}

func (s *ServiceSuite) registerUniversity() *models.Institution {
	inst, err := s.svc.RegisterInstitution(s.ctx, ownerAddr, universityName, universityAddr)
	s.Require().NoError(err)
	return inst
}

func (s *ServiceSuite) issueToStudent(instID domain.InstitutionID) *models.Certificate {
	cert, err := s.svc.IssueCertificate(s.ctx, universityAddr, IssueRequest{
		Recipient:     studentAddr,
		InstitutionID: instID,
		Title:         "BSc Computer Science",
		Description:   "Bachelor of Science, first class honours",
	})
	s.Require().NoError(err)
	return cert
}

func (s *ServiceSuite) TestRegisterInstitution() {
	inst := s.registerUniversity()

	s.Equal(domain.InstitutionID(1), inst.ID)
	s.Equal(universityName, inst.Name)
	s.Equal(universityAddr, inst.ControllingAddress)
	s.True(inst.Active)
	s.Equal(s.now, inst.CreatedAt)
}

func (s *ServiceSuite) TestRegisterInstitutionRejectsNonOwner() {
	_, err := s.svc.RegisterInstitution(s.ctx, strangerAddr, universityName, universityAddr)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))

	// The rejected call must not consume an id.
	inst := s.registerUniversity()
	s.Equal(domain.InstitutionID(1), inst.ID)
}

func (s *ServiceSuite) TestRegisterInstitutionValidatesName() {
	_, err := s.svc.RegisterInstitution(s.ctx, ownerAddr, "   ", universityAddr)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.svc.RegisterInstitution(s.ctx, ownerAddr, strings.Repeat("x", models.MaxInstitutionNameLen+1), universityAddr)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	inst := s.registerUniversity()
	s.Equal(domain.InstitutionID(1), inst.ID)
}

func (s *ServiceSuite) TestDeactivateInstitution() {
	inst := s.registerUniversity()

	updated, err := s.svc.DeactivateInstitution(s.ctx, ownerAddr, inst.ID)
	s.Require().NoError(err)
	s.False(updated.Active)

	// Idempotent: a second deactivation succeeds and stays inactive.
	again, err := s.svc.DeactivateInstitution(s.ctx, ownerAddr, inst.ID)
	s.Require().NoError(err)
	s.False(again.Active)
}

func (s *ServiceSuite) TestDeactivateInstitutionRejectsNonOwner() {
	inst := s.registerUniversity()

	_, err := s.svc.DeactivateInstitution(s.ctx, universityAddr, inst.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))

	got, err := s.svc.GetInstitution(s.ctx, inst.ID)
	s.Require().NoError(err)
	s.True(got.Active)
}

func (s *ServiceSuite) TestDeactivateUnknownInstitution() {
	_, err := s.svc.DeactivateInstitution(s.ctx, ownerAddr, 42)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInstitutionNotRegistered))
}

func (s *ServiceSuite) TestGetInstitutionNotFound() {
	_, err := s.svc.GetInstitution(s.ctx, 1)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInstitutionNotRegistered))
}

func (s *ServiceSuite) TestIssueCertificate() {
	inst := s.registerUniversity()
	grade := "A+"
	uri := "https://registry.example/meta/1"

	cert, err := s.svc.IssueCertificate(s.ctx, universityAddr, IssueRequest{
		Recipient:     studentAddr,
		InstitutionID: inst.ID,
		Title:         "BSc Computer Science",
		Description:   "Bachelor of Science, first class honours",
		Grade:         &grade,
		MetadataURI:   &uri,
	})
	s.Require().NoError(err)

	s.Equal(domain.CertificateID(1), cert.ID)
	s.Equal(inst.ID, cert.InstitutionID)
	s.Equal(studentAddr, cert.Recipient)
	s.Equal(s.now, cert.IssueDate)
	s.False(cert.Revoked)
	s.Require().NotNil(cert.Grade)
	s.Equal("A+", *cert.Grade)
	s.Require().NotNil(cert.MetadataURI)
	s.Equal(uri, *cert.MetadataURI)
}

func (s *ServiceSuite) TestIssueCertificateOmittedOptionalsStayNil() {
	inst := s.registerUniversity()
	cert := s.issueToStudent(inst.ID)

	s.Nil(cert.Grade)
	s.Nil(cert.MetadataURI)
}

func (s *ServiceSuite) TestIssueCertificateUnknownInstitution() {
	_, err := s.svc.IssueCertificate(s.ctx, universityAddr, IssueRequest{
		Recipient:     studentAddr,
		InstitutionID: 42,
		Title:         "BSc",
		Description:   "desc",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInstitutionNotRegistered))
}

func (s *ServiceSuite) TestIssueCertificateRejectsWrongCaller() {
	inst := s.registerUniversity()

	_, err := s.svc.IssueCertificate(s.ctx, strangerAddr, IssueRequest{
		Recipient:     studentAddr,
		InstitutionID: inst.ID,
		Title:         "BSc",
		Description:   "desc",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))

	// The rejected issuance must not consume a certificate id.
	cert := s.issueToStudent(inst.ID)
	s.Equal(domain.CertificateID(1), cert.ID)
}

func (s *ServiceSuite) TestIssueCertificateRejectsSelfIssuance() {
	inst := s.registerUniversity()

	_, err := s.svc.IssueCertificate(s.ctx, universityAddr, IssueRequest{
		Recipient:     universityAddr,
		InstitutionID: inst.ID,
		Title:         "BSc",
		Description:   "desc",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidRecipient))

	cert := s.issueToStudent(inst.ID)
	s.Equal(domain.CertificateID(1), cert.ID)
}

func (s *ServiceSuite) TestIssueCertificateValidatesFields() {
	inst := s.registerUniversity()
	tooLongGrade := strings.Repeat("A", models.MaxGradeLen+1)

	cases := []IssueRequest{
		{Recipient: studentAddr, InstitutionID: inst.ID, Title: "", Description: "desc"},
		{Recipient: studentAddr, InstitutionID: inst.ID, Title: strings.Repeat("t", models.MaxTitleLen+1), Description: "desc"},
		{Recipient: studentAddr, InstitutionID: inst.ID, Title: "BSc", Description: ""},
		{Recipient: studentAddr, InstitutionID: inst.ID, Title: "BSc", Description: strings.Repeat("d", models.MaxDescriptionLen+1)},
		{Recipient: studentAddr, InstitutionID: inst.ID, Title: "BSc", Description: "desc", Grade: &tooLongGrade},
		{Recipient: "", InstitutionID: inst.ID, Title: "BSc", Description: "desc"},
	}
	for _, req := range cases {
		_, err := s.svc.IssueCertificate(s.ctx, universityAddr, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}

	// None of the rejected requests burned an id.
	cert := s.issueToStudent(inst.ID)
	s.Equal(domain.CertificateID(1), cert.ID)
}

func (s *ServiceSuite) TestIssueCertificatePrecedence() {
	// When several preconditions fail at once, the earliest check wins:
	// authorization is reported before any field validation.
	inst := s.registerUniversity()

	_, err := s.svc.IssueCertificate(s.ctx, strangerAddr, IssueRequest{
		Recipient:     strangerAddr,
		InstitutionID: inst.ID,
		Title:         "",
		Description:   "",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))

	// An unknown institution outranks authorization.
	_, err = s.svc.IssueCertificate(s.ctx, strangerAddr, IssueRequest{
		Recipient:     strangerAddr,
		InstitutionID: 42,
		Title:         "",
		Description:   "",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInstitutionNotRegistered))
}

func (s *ServiceSuite) TestIssueUnderDeactivatedInstitution() {
	// Deactivation does not freeze issuance; the resulting certificate simply
	// verifies as invalid until the institution is active again (which never
	// happens, deactivation being one-way).
	inst := s.registerUniversity()
	_, err := s.svc.DeactivateInstitution(s.ctx, ownerAddr, inst.ID)
	s.Require().NoError(err)

	cert := s.issueToStudent(inst.ID)

	verdict, err := s.svc.VerifyCertificate(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.False(verdict.IsValid)
	s.False(verdict.Certificate.Revoked)
}

func (s *ServiceSuite) TestRevokeCertificate() {
	inst := s.registerUniversity()
	cert := s.issueToStudent(inst.ID)

	revoked, err := s.svc.RevokeCertificate(s.ctx, universityAddr, cert.ID)
	s.Require().NoError(err)
	s.True(revoked.Revoked)

	// Idempotent.
	again, err := s.svc.RevokeCertificate(s.ctx, universityAddr, cert.ID)
	s.Require().NoError(err)
	s.True(again.Revoked)
}

func (s *ServiceSuite) TestRevokeCertificateRejectsWrongCaller() {
	inst := s.registerUniversity()
	cert := s.issueToStudent(inst.ID)

	for _, caller := range []domain.Address{strangerAddr, studentAddr, ownerAddr} {
		_, err := s.svc.RevokeCertificate(s.ctx, caller, cert.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	}

	got, err := s.svc.GetCertificate(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.False(got.Revoked)
}

func (s *ServiceSuite) TestRevokeUnknownCertificate() {
	_, err := s.svc.RevokeCertificate(s.ctx, universityAddr, 42)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCertificateNotFound))
}

func (s *ServiceSuite) TestGetCertificateNotFound() {
	_, err := s.svc.GetCertificate(s.ctx, 1)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCertificateNotFound))
}

func (s *ServiceSuite) TestOwnsCertificate() {
	inst := s.registerUniversity()
	cert := s.issueToStudent(inst.ID)

	owns, err := s.svc.OwnsCertificate(s.ctx, studentAddr, cert.ID)
	s.Require().NoError(err)
	s.True(owns)

	owns, err = s.svc.OwnsCertificate(s.ctx, strangerAddr, cert.ID)
	s.Require().NoError(err)
	s.False(owns)

	// Missing certificate is an ordinary false, not an error.
	owns, err = s.svc.OwnsCertificate(s.ctx, studentAddr, 42)
	s.Require().NoError(err)
	s.False(owns)
}

func (s *ServiceSuite) TestOwnershipSurvivesRevocation() {
	inst := s.registerUniversity()
	cert := s.issueToStudent(inst.ID)

	_, err := s.svc.RevokeCertificate(s.ctx, universityAddr, cert.ID)
	s.Require().NoError(err)

	owns, err := s.svc.OwnsCertificate(s.ctx, studentAddr, cert.ID)
	s.Require().NoError(err)
	s.True(owns)
}

func (s *ServiceSuite) TestVerifyCertificateLifecycle() {
	inst := s.registerUniversity()
	cert := s.issueToStudent(inst.ID)

	verdict, err := s.svc.VerifyCertificate(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.True(verdict.IsValid)
	s.Equal(cert.ID, verdict.Certificate.ID)
	s.Equal(inst.ID, verdict.Institution.ID)

	_, err = s.svc.RevokeCertificate(s.ctx, universityAddr, cert.ID)
	s.Require().NoError(err)

	verdict, err = s.svc.VerifyCertificate(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.False(verdict.IsValid)
	s.True(verdict.Certificate.Revoked)
	s.True(verdict.Institution.Active)
}

func (s *ServiceSuite) TestVerifyReflectsDeactivationImmediately() {
	inst := s.registerUniversity()
	cert := s.issueToStudent(inst.ID)

	_, err := s.svc.DeactivateInstitution(s.ctx, ownerAddr, inst.ID)
	s.Require().NoError(err)

	verdict, err := s.svc.VerifyCertificate(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.False(verdict.IsValid)
	s.False(verdict.Certificate.Revoked)
	s.False(verdict.Institution.Active)
}

func (s *ServiceSuite) TestVerifyUnknownCertificate() {
	_, err := s.svc.VerifyCertificate(s.ctx, 42)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCertificateNotFound))
}

func (s *ServiceSuite) TestIDsAreDenseAndIndependent() {
	first := s.registerUniversity()
	second, err := s.svc.RegisterInstitution(s.ctx, ownerAddr, "Second College", "ST1SECONDCOLLEGE")
	s.Require().NoError(err)

	s.Equal(domain.InstitutionID(1), first.ID)
	s.Equal(domain.InstitutionID(2), second.ID)

	certA := s.issueToStudent(first.ID)
	certB, err := s.svc.IssueCertificate(s.ctx, "ST1SECONDCOLLEGE", IssueRequest{
		Recipient:     studentAddr,
		InstitutionID: second.ID,
		Title:         "Diploma",
		Description:   "Two year program",
	})
	s.Require().NoError(err)

	// Certificate ids are sequenced independently of institution ids.
	s.Equal(domain.CertificateID(1), certA.ID)
	s.Equal(domain.CertificateID(2), certB.ID)
}

func (s *ServiceSuite) TestInfoCountsAndOwner() {
	info, err := s.svc.Info(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(0), info.TotalInstitutions)
	s.Equal(uint64(0), info.TotalCertificates)
	s.Equal(ownerAddr, info.Owner)

	inst := s.registerUniversity()
	s.issueToStudent(inst.ID)
	s.issueToStudent(inst.ID)

	info, err = s.svc.Info(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), info.TotalInstitutions)
	s.Equal(uint64(2), info.TotalCertificates)
}

func TestCredentialTrustStory(t *testing.T) {
	svc := New(ownerAddr, store.NewInMemoryInstitutionStore(), store.NewInMemoryCertificateStore())
	ctx := testutil.WithFrozenTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	var certID domain.CertificateID

	testutil.Given(t, "a registered university with an issued certificate", func(t *testing.T) {
		inst, err := svc.RegisterInstitution(ctx, ownerAddr, universityName, universityAddr)
		require.NoError(t, err)

		cert, err := svc.IssueCertificate(ctx, universityAddr, IssueRequest{
			Recipient:     studentAddr,
			InstitutionID: inst.ID,
			Title:         "MSc Distributed Systems",
			Description:   "Master of Science, two year program",
		})
		require.NoError(t, err)
		certID = cert.ID

		verdict, err := svc.VerifyCertificate(ctx, certID)
		require.NoError(t, err)
		require.True(t, verdict.IsValid)
	})

	testutil.When(t, "the university revokes the certificate", func(t *testing.T) {
		_, err := svc.RevokeCertificate(ctx, universityAddr, certID)
		require.NoError(t, err)
	})

	testutil.Then(t, "verification fails but ownership is still answerable", func(t *testing.T) {
		verdict, err := svc.VerifyCertificate(ctx, certID)
		require.NoError(t, err)
		require.False(t, verdict.IsValid)

		owns, err := svc.OwnsCertificate(ctx, studentAddr, certID)
		require.NoError(t, err)
		require.True(t, owns)
	})
}
