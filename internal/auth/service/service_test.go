package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"screener/internal/auth/models"
	"screener/internal/auth/ports/mocks"
	"screener/internal/auth/store/credential"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
	store  *credential.InMemoryCredentialStore
	svc    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = credential.New()

	svc, err := New(s.store, WithLogger(s.logger))
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) TestVerify() {
	s.Require().NoError(s.store.Save(s.ctx, &models.Credential{Digest: models.Digest("good"), Name: "Analyst", Active: true}))
	s.Require().NoError(s.store.Save(s.ctx, &models.Credential{Digest: models.Digest("old"), Name: "Former", Active: false}))

	s.Run("active key resolves", func() {
		cred, err := s.svc.Verify(s.ctx, "good")
		s.Require().NoError(err)
		s.Equal("Analyst", cred.Name)
	})

	s.Run("missing key is unauthorized", func() {
		_, err := s.svc.Verify(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown key is forbidden", func() {
		_, err := s.svc.Verify(s.ctx, "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Contains(de.Message, "Invalid API Key")
	})

	s.Run("deactivated key is forbidden", func() {
		_, err := s.svc.Verify(s.ctx, "old")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Contains(de.Message, "API Key has been deactivated")
	})
}

func (s *ServiceSuite) TestGenerateKey() {
	s.Run("32 bytes url-safe without padding", func() {
		key, err := s.svc.GenerateKey()
		s.Require().NoError(err)
		s.Len(key, 43)
		raw, err := base64.RawURLEncoding.DecodeString(key)
		s.Require().NoError(err)
		s.Len(raw, 32)
	})

	s.Run("deterministic with injected entropy", func() {
		svc, err := New(s.store, WithEntropy(bytes.NewReader(make([]byte, 32))))
		s.Require().NoError(err)
		key, err := svc.GenerateKey()
		s.Require().NoError(err)
		s.Equal("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", key)
	})

	s.Run("short entropy fails", func() {
		svc, err := New(s.store, WithEntropy(bytes.NewReader(make([]byte, 4))))
		s.Require().NoError(err)
		_, err = svc.GenerateKey()
		s.Error(err)
	})
}

func (s *ServiceSuite) TestRegisterAndRevoke() {
	key, err := s.svc.Register(s.ctx, "Due Diligence", "dd@example.com")
	s.Require().NoError(err)

	cred, err := s.svc.Verify(s.ctx, key)
	s.Require().NoError(err)
	s.Equal("Due Diligence", cred.Name)
	s.Equal("dd@example.com", cred.Email)

	s.Require().NoError(s.svc.Revoke(s.ctx, key))
	_, err = s.svc.Verify(s.ctx, key)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	err = s.svc.Revoke(s.ctx, "never-issued")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestAuditAndStoreFailures() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockCredentialStore(ctrl)
	publisher := mocks.NewMockAuditPublisher(ctrl)

	svc, err := New(store, WithLogger(s.logger), WithAuditPublisher(publisher))
	s.Require().NoError(err)

	s.Run("rejection is audited", func() {
		store.EXPECT().FindByDigest(gomock.Any(), models.Digest("bad")).Return(nil, sentinel.ErrNotFound)
		publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventAuthRejected), e.Action)
			s.Equal("unknown_key", e.Reason)
			return nil
		})

		_, err := svc.Verify(s.ctx, "bad")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("store outage is internal", func() {
		store.EXPECT().FindByDigest(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

		_, err := svc.Verify(s.ctx, "any")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("save failure surfaces on register", func() {
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := svc.Register(s.ctx, "n", "n@example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
