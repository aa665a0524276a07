package config

import (
	"context"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// SecretScheme marks values resolved through a SecretAccessor, as in
// secret://projects/p/secrets/s/versions/latest.
const SecretScheme = "secret://"

// SecretAccessor returns the payload of a secret version.
type SecretAccessor interface {
	AccessSecret(ctx context.Context, name string) ([]byte, error)
}

// SecretManager reads secrets from Google Secret Manager. The client is
// created on first use.
type SecretManager struct {
	once   sync.Once
	client *secretmanager.Client
	err    error
}

func (s *SecretManager) AccessSecret(ctx context.Context, name string) ([]byte, error) {
	s.once.Do(func() {
		s.client, s.err = secretmanager.NewClient(ctx)
	})
	if s.err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", s.err)
	}
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("access secret %s: %w", name, err)
	}
	if resp.Payload == nil || len(resp.Payload.Data) == 0 {
		return nil, dcmerr.New(dcmerr.KindBadParameterType, "secret %s has an empty payload", name)
	}
	return resp.Payload.Data, nil
}

// Close releases the client, if one was created.
func (s *SecretManager) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// secretFields lists the values that may hold a secret reference.
func (c *Config) secretFields() []*string {
	fields := []*string{&c.Storage.Credentials, &c.Storage.Bucket, &c.Index.Project}
	return fields
}

func (c *Config) resolveSecrets(ctx context.Context, accessor SecretAccessor) error {
	for _, field := range c.secretFields() {
		name, ok := strings.CutPrefix(*field, SecretScheme)
		if !ok {
			continue
		}
		if !strings.HasPrefix(name, "projects/") || !strings.Contains(name, "/secrets/") {
			return dcmerr.New(dcmerr.KindParameterOutOfRange, "malformed secret reference %q", *field)
		}
		if !strings.Contains(name, "/versions/") {
			name += "/versions/latest"
		}
		if accessor == nil {
			sm := &SecretManager{}
			defer sm.Close()
			accessor = sm
		}
		value, err := accessor.AccessSecret(ctx, name)
		if err != nil {
			return err
		}
		*field = strings.TrimSpace(string(value))
	}
	return nil
}
