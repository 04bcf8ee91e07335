package store

import (
	"context"
	"sync"

	"certledger/internal/registry/models"
	"certledger/pkg/domain"
	"certledger/pkg/platform/sentinel"
)

// InMemoryInstitutionStore keeps institutions in a mutex-guarded map. The
// mutex is held across allocate+build+insert and across the Execute callback
// pair, giving the single-writer discipline the engine relies on.
type InMemoryInstitutionStore struct {
	mu     sync.RWMutex
	nextID domain.InstitutionID
	items  map[domain.InstitutionID]*models.Institution
}

func NewInMemoryInstitutionStore() *InMemoryInstitutionStore {
	return &InMemoryInstitutionStore{items: make(map[domain.InstitutionID]*models.Institution)}
}

func (s *InMemoryInstitutionStore) Create(_ context.Context, build func(domain.InstitutionID) (*models.Institution, error)) (*models.Institution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := build(s.nextID + 1)
	if err != nil {
		return nil, err
	}
	s.nextID++
	s.items[inst.ID] = inst
	return cloneInstitution(inst), nil
}

func (s *InMemoryInstitutionStore) FindByID(_ context.Context, id domain.InstitutionID) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneInstitution(inst), nil
}

func (s *InMemoryInstitutionStore) Execute(_ context.Context, id domain.InstitutionID,
	validate func(*models.Institution) error,
	mutate func(*models.Institution)) (*models.Institution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(inst); err != nil {
			return nil, err
		}
	}
	mutate(inst)
	return cloneInstitution(inst), nil
}

func (s *InMemoryInstitutionStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.items)), nil
}

// InMemoryCertificateStore mirrors the institution store for certificates,
// with its own independent id sequence.
type InMemoryCertificateStore struct {
	mu     sync.RWMutex
	nextID domain.CertificateID
	items  map[domain.CertificateID]*models.Certificate
}

func NewInMemoryCertificateStore() *InMemoryCertificateStore {
	return &InMemoryCertificateStore{items: make(map[domain.CertificateID]*models.Certificate)}
}

func (s *InMemoryCertificateStore) Create(_ context.Context, build func(domain.CertificateID) (*models.Certificate, error)) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, err := build(s.nextID + 1)
	if err != nil {
		return nil, err
	}
	s.nextID++
	s.items[cert.ID] = cert
	return cloneCertificate(cert), nil
}

func (s *InMemoryCertificateStore) FindByID(_ context.Context, id domain.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCertificate(cert), nil
}

func (s *InMemoryCertificateStore) Execute(_ context.Context, id domain.CertificateID,
	validate func(*models.Certificate) error,
	mutate func(*models.Certificate)) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(cert); err != nil {
			return nil, err
		}
	}
	mutate(cert)
	return cloneCertificate(cert), nil
}

func (s *InMemoryCertificateStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.items)), nil
}

// Clones keep callers from mutating stored records outside the lock; every
// certificate field except Revoked is write-once and must stay that way.

func cloneInstitution(in *models.Institution) *models.Institution {
	out := *in
	return &out
}

func cloneCertificate(in *models.Certificate) *models.Certificate {
	out := *in
	if in.Grade != nil {
		g := *in.Grade
		out.Grade = &g
	}
	if in.MetadataURI != nil {
		u := *in.MetadataURI
		out.MetadataURI = &u
	}
	return &out
}
