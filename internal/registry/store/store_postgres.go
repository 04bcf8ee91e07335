package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"certledger/internal/registry/models"
	"certledger/pkg/domain"
	"certledger/pkg/platform/sentinel"
)

// Schema creates the registry tables. Counters live in a row-locked table
// rather than native sequences: sequence values survive rollback, which
// would leave gaps in the id space when a mutation aborts.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_counters (
    name  text   PRIMARY KEY,
    value bigint NOT NULL DEFAULT 0
);

INSERT INTO registry_counters (name, value)
VALUES ('institution', 0), ('certificate', 0)
ON CONFLICT (name) DO NOTHING;

CREATE TABLE IF NOT EXISTS institutions (
    id                  bigint      PRIMARY KEY,
    name                text        NOT NULL,
    controlling_address text        NOT NULL,
    is_active           boolean     NOT NULL,
    created_at          timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS certificates (
    id             bigint      PRIMARY KEY,
    institution_id bigint      NOT NULL REFERENCES institutions (id),
    recipient      text        NOT NULL,
    title          text        NOT NULL,
    description    text        NOT NULL,
    grade          text,
    metadata_uri   text,
    issue_date     timestamptz NOT NULL,
    is_revoked     boolean     NOT NULL
);

CREATE INDEX IF NOT EXISTS certificates_recipient_idx ON certificates (recipient);
`

// EnsureSchema applies the registry schema. Idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

// PostgresInstitutionStore persists institutions in PostgreSQL. Every
// mutation runs in one transaction; the counter update and the insert commit
// or roll back together, preserving id density.
type PostgresInstitutionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresInstitutionStore(pool *pgxpool.Pool) *PostgresInstitutionStore {
	return &PostgresInstitutionStore{pool: pool}
}

func (s *PostgresInstitutionStore) Create(ctx context.Context, build func(domain.InstitutionID) (*models.Institution, error)) (*models.Institution, error) {
	var created *models.Institution
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var next uint64
		err := tx.QueryRow(ctx,
			`UPDATE registry_counters SET value = value + 1 WHERE name = 'institution' RETURNING value`,
		).Scan(&next)
		if err != nil {
			return fmt.Errorf("allocate institution id: %w", err)
		}

		inst, err := build(domain.InstitutionID(next))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO institutions (id, name, controlling_address, is_active, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			uint64(inst.ID), inst.Name, inst.ControllingAddress.String(), inst.Active, inst.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert institution: %w", err)
		}
		created = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresInstitutionStore) FindByID(ctx context.Context, id domain.InstitutionID) (*models.Institution, error) {
	return scanInstitution(s.pool.QueryRow(ctx,
		`SELECT id, name, controlling_address, is_active, created_at
		 FROM institutions WHERE id = $1`, uint64(id)))
}

func (s *PostgresInstitutionStore) Execute(ctx context.Context, id domain.InstitutionID,
	validate func(*models.Institution) error,
	mutate func(*models.Institution)) (*models.Institution, error) {
	var updated *models.Institution
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		inst, err := scanInstitution(tx.QueryRow(ctx,
			`SELECT id, name, controlling_address, is_active, created_at
			 FROM institutions WHERE id = $1 FOR UPDATE`, uint64(id)))
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(inst); err != nil {
				return err
			}
		}
		mutate(inst)

		_, err = tx.Exec(ctx,
			`UPDATE institutions SET is_active = $2 WHERE id = $1`,
			uint64(inst.ID), inst.Active)
		if err != nil {
			return fmt.Errorf("update institution: %w", err)
		}
		updated = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresInstitutionStore) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM institutions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count institutions: %w", err)
	}
	return count, nil
}

// PostgresCertificateStore persists certificates in PostgreSQL under the same
// transactional discipline as the institution store. Only is_revoked is ever
// updated after insert; all other columns are write-once.
type PostgresCertificateStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCertificateStore(pool *pgxpool.Pool) *PostgresCertificateStore {
	return &PostgresCertificateStore{pool: pool}
}

func (s *PostgresCertificateStore) Create(ctx context.Context, build func(domain.CertificateID) (*models.Certificate, error)) (*models.Certificate, error) {
	var created *models.Certificate
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var next uint64
		err := tx.QueryRow(ctx,
			`UPDATE registry_counters SET value = value + 1 WHERE name = 'certificate' RETURNING value`,
		).Scan(&next)
		if err != nil {
			return fmt.Errorf("allocate certificate id: %w", err)
		}

		cert, err := build(domain.CertificateID(next))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO certificates
			   (id, institution_id, recipient, title, description, grade, metadata_uri, issue_date, is_revoked)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uint64(cert.ID), uint64(cert.InstitutionID), cert.Recipient.String(),
			cert.Title, cert.Description, cert.Grade, cert.MetadataURI, cert.IssueDate, cert.Revoked)
		if err != nil {
			return fmt.Errorf("insert certificate: %w", err)
		}
		created = cert
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresCertificateStore) FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	return scanCertificate(s.pool.QueryRow(ctx,
		`SELECT id, institution_id, recipient, title, description, grade, metadata_uri, issue_date, is_revoked
		 FROM certificates WHERE id = $1`, uint64(id)))
}

func (s *PostgresCertificateStore) Execute(ctx context.Context, id domain.CertificateID,
	validate func(*models.Certificate) error,
	mutate func(*models.Certificate)) (*models.Certificate, error) {
	var updated *models.Certificate
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cert, err := scanCertificate(tx.QueryRow(ctx,
			`SELECT id, institution_id, recipient, title, description, grade, metadata_uri, issue_date, is_revoked
			 FROM certificates WHERE id = $1 FOR UPDATE`, uint64(id)))
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(cert); err != nil {
				return err
			}
		}
		mutate(cert)

		_, err = tx.Exec(ctx,
			`UPDATE certificates SET is_revoked = $2 WHERE id = $1`,
			uint64(cert.ID), cert.Revoked)
		if err != nil {
			return fmt.Errorf("update certificate: %w", err)
		}
		updated = cert
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresCertificateStore) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM certificates`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return count, nil
}

func scanInstitution(row pgx.Row) (*models.Institution, error) {
	var (
		inst        models.Institution
		id          uint64
		controlling string
	)
	err := row.Scan(&id, &inst.Name, &controlling, &inst.Active, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan institution: %w", err)
	}
	inst.ID = domain.InstitutionID(id)
	inst.ControllingAddress = domain.Address(controlling)
	return &inst, nil
}

func scanCertificate(row pgx.Row) (*models.Certificate, error) {
	var (
		cert          models.Certificate
		id            uint64
		institutionID uint64
		recipient     string
	)
	err := row.Scan(&id, &institutionID, &recipient, &cert.Title, &cert.Description,
		&cert.Grade, &cert.MetadataURI, &cert.IssueDate, &cert.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	cert.ID = domain.CertificateID(id)
	cert.InstitutionID = domain.InstitutionID(institutionID)
	cert.Recipient = domain.Address(recipient)
	return &cert, nil
}
