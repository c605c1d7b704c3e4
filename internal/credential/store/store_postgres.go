package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"certledger/internal/credential/models"
	"certledger/internal/sentinel"
)

// PostgresStore persists credentials in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, credential *models.Credential) error {
	if credential == nil {
		return fmt.Errorf("credential is required")
	}
	query := `
		INSERT INTO credentials (
			digest, student_name, student_email, institution, degree,
			graduation_year, cgpa, reg_number, honours, state_of_origin,
			issued_by, issuer_email, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		credential.Digest,
		credential.StudentName,
		nullString(credential.StudentEmail),
		credential.Institution,
		credential.Degree,
		credential.GraduationYear,
		credential.CGPA,
		nullString(credential.RegNumber),
		nullString(credential.Honours),
		nullString(credential.StateOfOrigin),
		credential.IssuedBy,
		credential.IssuerEmail,
		credential.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// FindByDigest returns the oldest record with the given digest. Digests are
// not unique, so duplicates resolve to the first issuance.
func (s *PostgresStore) FindByDigest(ctx context.Context, digest string) (*models.Credential, error) {
	query := selectColumns + `
		WHERE digest = $1
		ORDER BY created_at
		LIMIT 1
	`
	credential, err := scanCredential(s.db.QueryRowContext(ctx, query, digest))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find credential by digest: %w", err)
	}
	return credential, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Credential, error) {
	query := selectColumns + `
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var credentials []*models.Credential
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return credentials, nil
}

const selectColumns = `
	SELECT digest, student_name, student_email, institution, degree,
		graduation_year, cgpa, reg_number, honours, state_of_origin,
		issued_by, issuer_email, created_at
	FROM credentials
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var credential models.Credential
	var studentEmail, regNumber, honours, stateOfOrigin sql.NullString
	var cgpa sql.NullFloat64
	err := row.Scan(
		&credential.Digest,
		&credential.StudentName,
		&studentEmail,
		&credential.Institution,
		&credential.Degree,
		&credential.GraduationYear,
		&cgpa,
		&regNumber,
		&honours,
		&stateOfOrigin,
		&credential.IssuedBy,
		&credential.IssuerEmail,
		&credential.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	credential.StudentEmail = studentEmail.String
	credential.RegNumber = regNumber.String
	credential.Honours = honours.String
	credential.StateOfOrigin = stateOfOrigin.String
	if cgpa.Valid {
		credential.CGPA = &cgpa.Float64
	}
	return &credential, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
