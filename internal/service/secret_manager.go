package service

import (
	"context"
	"fmt"
	"strings"

	"intakeflow/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

type SecretManagerService interface {
	// AccessSecret returns the latest version of the named secret.
	AccessSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerService struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerService(ctx context.Context, cfg *config.Config) (SecretManagerService, error) {
	projectID := cfg.GetGCPProjectID()
	if projectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}

	// Secret Manager has no emulator; local development needs a real project in GCP_PROJECT_ID_LOCAL.
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &secretManagerService{
		client:    client,
		projectID: projectID,
	}, nil
}

func (s *secretManagerService) AccessSecret(ctx context.Context, name string) (string, error) {
	path := name
	if !strings.HasPrefix(name, "projects/") {
		path = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
	}
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: path})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}

// ResolveInternalAPISecret returns the shared secret for workflow callbacks, preferring Secret Manager
// when a secret name is configured.
func ResolveInternalAPISecret(ctx context.Context, cfg *config.Config, sm SecretManagerService) (string, error) {
	if cfg.InternalAPISecretName == "" {
		return cfg.InternalAPISecret, nil
	}
	if sm == nil {
		return "", fmt.Errorf("INTERNAL_API_SECRET_NAME is set but Secret Manager is unavailable")
	}
	return sm.AccessSecret(ctx, cfg.InternalAPISecretName)
}
