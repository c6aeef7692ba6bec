package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario state the auth steps need.
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	DELETE(path string, body any, headers map[string]string) error
	LastStatus() int
	LastBody() []byte
	Field(name string) (any, error)
	SetAPIKey(key string)
	APIKey() string
}

// AdminToken returns the operator token for the environment under test.
type AdminToken func() string

// RegisterSteps registers API key lifecycle steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext, adminToken AdminToken) {
	steps := &authSteps{tc: tc, adminToken: adminToken}

	ctx.Step(`^I register an API key for "([^"]*)" with email "([^"]*)"$`, steps.registerKey)
	ctx.Step(`^I have a fresh API key$`, steps.freshKey)
	ctx.Step(`^I revoke my API key$`, steps.revokeKey)
	ctx.Step(`^I use the API key "([^"]*)"$`, steps.useKey)
	ctx.Step(`^I register an API key without the admin token$`, steps.registerWithoutToken)
}

type authSteps struct {
	tc         TestContext
	adminToken AdminToken
}

func (s *authSteps) admin() (map[string]string, error) {
	token := s.adminToken()
	if token == "" {
		return nil, errors.New("SCREENER_E2E_ADMIN_TOKEN is not set")
	}
	return map[string]string{"X-Admin-Token": token}, nil
}

func (s *authSteps) registerKey(ctx context.Context, name, email string) error {
	headers, err := s.admin()
	if err != nil {
		return err
	}
	if err := s.tc.POST("/admin/api-keys", map[string]string{"name": name, "email": email}, headers); err != nil {
		return err
	}
	if s.tc.LastStatus() != 201 {
		return fmt.Errorf("register key: status %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	key, err := s.tc.Field("api_key")
	if err != nil {
		return err
	}
	s.tc.SetAPIKey(fmt.Sprint(key))
	return nil
}

func (s *authSteps) freshKey(ctx context.Context) error {
	return s.registerKey(ctx, "E2E", "e2e@example.com")
}

func (s *authSteps) revokeKey(ctx context.Context) error {
	headers, err := s.admin()
	if err != nil {
		return err
	}
	return s.tc.DELETE("/admin/api-keys", map[string]string{"api_key": s.tc.APIKey()}, headers)
}

func (s *authSteps) useKey(ctx context.Context, key string) error {
	s.tc.SetAPIKey(key)
	return nil
}

func (s *authSteps) registerWithoutToken(ctx context.Context) error {
	return s.tc.POST("/admin/api-keys", map[string]string{"name": "Nobody", "email": "nobody@example.com"}, nil)
}
