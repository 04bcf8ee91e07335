package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certledger/internal/registry/models"
	"certledger/pkg/domain"
	"certledger/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	institutions *InMemoryInstitutionStore
	certificates *InMemoryCertificateStore
	ctx          context.Context
	now          time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.institutions = NewInMemoryInstitutionStore()
	s.certificates = NewInMemoryCertificateStore()
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) createInstitution(name string) *models.Institution {
	inst, err := s.institutions.Create(s.ctx, func(id domain.InstitutionID) (*models.Institution, error) {
		return models.NewInstitution(id, name, "ST1CONTROLLER", s.now)
	})
	s.Require().NoError(err)
	return inst
}

func (s *MemoryStoreSuite) createCertificate() *models.Certificate {
	cert, err := s.certificates.Create(s.ctx, func(id domain.CertificateID) (*models.Certificate, error) {
		return models.NewCertificate(id, 1, "ST2STUDENT", "Title", "Description", nil, nil, s.now)
	})
	s.Require().NoError(err)
	return cert
}

// TestIDAllocation verifies dense sequential ids starting at 1.
func (s *MemoryStoreSuite) TestIDAllocation() {
	s.Run("institution ids are dense from 1", func() {
		for i := 1; i <= 3; i++ {
			inst := s.createInstitution("University")
			s.Equal(domain.InstitutionID(i), inst.ID)
		}
	})

	s.Run("certificate ids sequence independently", func() {
		for i := 1; i <= 2; i++ {
			cert := s.createCertificate()
			s.Equal(domain.CertificateID(i), cert.ID)
		}
	})
}

// TestFailedBuildDoesNotConsumeID verifies rejected creates never burn an id.
func (s *MemoryStoreSuite) TestFailedBuildDoesNotConsumeID() {
	boom := errors.New("rejected")
	_, err := s.institutions.Create(s.ctx, func(domain.InstitutionID) (*models.Institution, error) {
		return nil, boom
	})
	s.Require().ErrorIs(err, boom)

	inst := s.createInstitution("University")
	s.Equal(domain.InstitutionID(1), inst.ID)

	count, err := s.institutions.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), count)
}

func (s *MemoryStoreSuite) TestFindByID() {
	s.Run("returns stored record", func() {
		created := s.createInstitution("Test University")
		found, err := s.institutions.FindByID(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal("Test University", found.Name)
		s.True(found.Active)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.institutions.FindByID(s.ctx, 999)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.certificates.FindByID(s.ctx, 999)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestExecute() {
	s.Run("applies mutation under lock", func() {
		inst := s.createInstitution("University")
		updated, err := s.institutions.Execute(s.ctx, inst.ID, nil, func(i *models.Institution) {
			i.ApplyDeactivation()
		})
		s.Require().NoError(err)
		s.False(updated.Active)

		found, err := s.institutions.FindByID(s.ctx, inst.ID)
		s.Require().NoError(err)
		s.False(found.Active)
	})

	s.Run("validate failure leaves record untouched", func() {
		cert := s.createCertificate()
		boom := errors.New("rejected")
		_, err := s.certificates.Execute(s.ctx, cert.ID,
			func(*models.Certificate) error { return boom },
			func(c *models.Certificate) { c.ApplyRevocation() },
		)
		s.Require().ErrorIs(err, boom)

		found, err := s.certificates.FindByID(s.ctx, cert.ID)
		s.Require().NoError(err)
		s.False(found.Revoked)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.certificates.Execute(s.ctx, 999, nil, func(c *models.Certificate) { c.ApplyRevocation() })
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestCloneIsolation verifies callers cannot mutate stored state through
// returned records.
func (s *MemoryStoreSuite) TestCloneIsolation() {
	grade := "A+"
	cert, err := s.certificates.Create(s.ctx, func(id domain.CertificateID) (*models.Certificate, error) {
		return models.NewCertificate(id, 1, "ST2STUDENT", "Title", "Description", &grade, nil, s.now)
	})
	s.Require().NoError(err)

	cert.Title = "Tampered"
	cert.Revoked = true
	*cert.Grade = "F"

	found, err := s.certificates.FindByID(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal("Title", found.Title)
	s.False(found.Revoked)
	s.Equal("A+", *found.Grade)
}
