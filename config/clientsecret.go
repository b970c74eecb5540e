package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/wgergely/expensetracker/status"
)

// OAuthClient is the credential block inside client_secret.json. Google
// emits it under an "installed" or "web" key depending on the client type.
type OAuthClient struct {
	ClientID     string   `json:"client_id"`
	ProjectID    string   `json:"project_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
	RedirectURIs []string `json:"redirect_uris,omitempty"`
}

// ClientSecret is the client_secret.json document.
type ClientSecret struct {
	Installed *OAuthClient `json:"installed,omitempty"`
	Web       *OAuthClient `json:"web,omitempty"`
}

// Client returns the credential block, preferring "installed" over "web".
func (cs *ClientSecret) Client() (*OAuthClient, error) {
	switch {
	case cs.Installed != nil:
		return cs.Installed, nil
	case cs.Web != nil:
		return cs.Web, nil
	default:
		return nil, status.New(status.ClientSecretInvalid, `missing "installed" or "web" section`)
	}
}

// Validate checks that the required OAuth fields are present.
func (cs *ClientSecret) Validate() error {
	client, err := cs.Client()
	if err != nil {
		return err
	}

	var missing []string
	for field, value := range map[string]string{
		"client_id":     client.ClientID,
		"project_id":    client.ProjectID,
		"client_secret": client.ClientSecret,
		"auth_uri":      client.AuthURI,
		"token_uri":     client.TokenURI,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return status.New(status.ClientSecretInvalid,
			"missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoadClientSecret reads and validates a client_secret.json file.
func LoadClientSecret(path string) (*ClientSecret, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.New(status.ClientSecretNotFound, "expected at %s", path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var secret ClientSecret
	if err := json.Unmarshal(data, &secret); err != nil {
		return nil, status.Wrap(status.ClientSecretInvalid, err, "failed to parse %s", path)
	}
	if err := secret.Validate(); err != nil {
		return nil, err
	}
	return &secret, nil
}
