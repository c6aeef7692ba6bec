package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"screener/internal/auth/models"
	"screener/internal/auth/service"
	"screener/internal/auth/store/credential"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/middleware/admin"
	"screener/pkg/testutil"
)

const adminToken = "operator-secret"

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	svc    *service.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(credential.New(), service.WithLogger(logger))
	s.Require().NoError(err)
	s.svc = svc

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(adminToken, logger))
		New(svc, logger).RegisterAdmin(r)
	})
	s.router = r
}

func (s *HandlerSuite) adminRequest(method string, body any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), method, "/admin/api-keys", body)
	req.Header.Set("X-Admin-Token", adminToken)
	return req
}

func (s *HandlerSuite) TestCreate() {
	s.Run("issues a usable key", func() {
		rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodPost, models.RegisterRequest{
			Name:  " Risk Desk ",
			Email: "risk@example.com",
		}))
		s.Require().Equal(http.StatusCreated, rr.Code)

		body := testutil.UnmarshalResponse[models.RegisterResponse](s.T(), rr)
		s.Equal("Risk Desk", body.Name)
		s.Len(body.APIKey, 43)

		cred, err := s.svc.Verify(s.T().Context(), body.APIKey)
		s.Require().NoError(err)
		s.Equal("risk@example.com", cred.Email)
	})

	s.Run("validates the body", func() {
		rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodPost, models.RegisterRequest{Name: "x", Email: "not-an-email"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("rejects malformed JSON", func() {
		req := httptest.NewRequest(http.MethodPost, "/admin/api-keys", bytes.NewBufferString("{"))
		req.Header.Set("X-Admin-Token", adminToken)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("requires the admin token", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/api-keys", models.RegisterRequest{Name: "x", Email: "x@example.com"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *HandlerSuite) TestRevoke() {
	key, err := s.svc.Register(s.T().Context(), "Temp", "temp@example.com")
	s.Require().NoError(err)

	rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodDelete, models.RevokeRequest{APIKey: key}))
	s.Require().Equal(http.StatusOK, rr.Code)

	_, err = s.svc.Verify(s.T().Context(), key)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	rr = testutil.DoRequest(s.router, s.adminRequest(http.MethodDelete, models.RevokeRequest{APIKey: "unknown"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}
