//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certledger/internal/credential/canonical"
	"certledger/internal/credential/models"
	"certledger/internal/credential/store"
	"certledger/internal/sentinel"
	"certledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) newCredential(student string) *models.Credential {
	cgpa := 4.52
	credential := &models.Credential{
		StudentName:    student,
		StudentEmail:   student + "@students.test.com",
		Institution:    "University of Lagos",
		Degree:         "BSc Computer Science",
		GraduationYear: 2021,
		CGPA:           &cgpa,
		RegNumber:      "UNILAG/2017/0042",
		Honours:        "First Class",
		StateOfOrigin:  "Lagos",
		IssuedBy:       "registrar",
		IssuerEmail:    "registrar@test.com",
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	credential.Digest = canonical.Digest(credential.CanonicalPayload())
	return credential
}

func (s *PostgresStoreSuite) TestSaveAndFindRoundTrip() {
	ctx := context.Background()
	credential := s.newCredential("Ada Lovelace")

	s.Require().NoError(s.store.Save(ctx, credential))

	found, err := s.store.FindByDigest(ctx, credential.Digest)
	s.Require().NoError(err)
	s.Equal(credential.StudentName, found.StudentName)
	s.Equal(credential.StudentEmail, found.StudentEmail)
	s.Equal(credential.Institution, found.Institution)
	s.Equal(credential.Degree, found.Degree)
	s.Equal(credential.GraduationYear, found.GraduationYear)
	s.Require().NotNil(found.CGPA)
	s.InDelta(*credential.CGPA, *found.CGPA, 0.001)
	s.Equal(credential.RegNumber, found.RegNumber)
	s.Equal(credential.Honours, found.Honours)
	s.Equal(credential.StateOfOrigin, found.StateOfOrigin)
	s.Equal(credential.IssuedBy, found.IssuedBy)
	s.Equal(credential.IssuerEmail, found.IssuerEmail)

	// The stored row must hash back to the digest it was filed under.
	s.Equal(credential.Digest, canonical.Digest(found.CanonicalPayload()))
}

func (s *PostgresStoreSuite) TestOptionalFieldsRoundTripAsEmpty() {
	ctx := context.Background()
	credential := s.newCredential("Ada Lovelace")
	credential.StudentEmail = ""
	credential.CGPA = nil
	credential.RegNumber = ""
	credential.Honours = ""
	credential.StateOfOrigin = ""
	credential.Digest = canonical.Digest(credential.CanonicalPayload())

	s.Require().NoError(s.store.Save(ctx, credential))

	found, err := s.store.FindByDigest(ctx, credential.Digest)
	s.Require().NoError(err)
	s.Empty(found.StudentEmail)
	s.Nil(found.CGPA)
	s.Empty(found.RegNumber)
	s.Empty(found.Honours)
	s.Empty(found.StateOfOrigin)
	s.Equal(credential.Digest, canonical.Digest(found.CanonicalPayload()))
}

func (s *PostgresStoreSuite) TestDuplicateDigestResolvesToOldest() {
	ctx := context.Background()
	first := s.newCredential("Ada Lovelace")
	s.Require().NoError(s.store.Save(ctx, first))

	second := s.newCredential("Ada Lovelace")
	second.IssuedBy = "other-registrar"
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	s.Require().NoError(s.store.Save(ctx, second))
	s.Require().Equal(first.Digest, second.Digest)

	found, err := s.store.FindByDigest(ctx, first.Digest)
	s.Require().NoError(err)
	s.Equal("registrar", found.IssuedBy)
}

func (s *PostgresStoreSuite) TestFindMissingDigest() {
	ctx := context.Background()
	missing := s.newCredential("Ada Lovelace")

	_, err := s.store.FindByDigest(ctx, missing.Digest)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrderedByCreation() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	names := []string{"Ada Lovelace", "Grace Hopper", "Katherine Johnson"}
	for i, name := range names {
		credential := s.newCredential(name)
		credential.CreatedAt = base.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Save(ctx, credential))
	}

	credentials, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(credentials, 3)
	for i, name := range names {
		s.Equal(name, credentials[i].StudentName)
	}
}
