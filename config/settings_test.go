package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/wgergely/expensetracker/status"
)

func openTestSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := Open(WithBaseDir(t.TempDir()))
	assert.NoError(t, err)
	return s
}

func TestOpenCreatesTemplate(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(WithBaseDir(dir))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "ledger.json"))
	assert.NoError(t, err)
	assert.Equal(t, "My Ledger", s.Ledger().Metadata.Name)
}

func TestOpenRejectsInvalidLedger(t *testing.T) {
	dir := t.TempDir()
	paths := NewPaths(dir)
	assert.NoError(t, paths.Ensure())
	assert.NoError(t, os.WriteFile(paths.LedgerPath, []byte(`{"spreadsheet":{}}`), 0o600))

	_, err := Open(WithBaseDir(dir))
	assert.True(t, errors.Is(err, status.ErrLedgerConfigInvalid))
}

func TestMutateRollsBackOnInvalid(t *testing.T) {
	s := openTestSettings(t)
	orig := s.Ledger().Mapping

	err := s.SetMapping(Mapping{Date: "Nope"})
	assert.Error(t, err)
	assert.Equal(t, orig, s.Ledger().Mapping)

	// The file on disk is untouched too.
	assert.NoError(t, s.Reload())
	assert.Equal(t, orig, s.Ledger().Mapping)
}

func TestSetMetadataPersists(t *testing.T) {
	s := openTestSettings(t)

	md := s.Ledger().Metadata
	md.Span = 3
	md.SummaryMode = "monthly"
	assert.NoError(t, s.SetMetadata(md))

	assert.NoError(t, s.Reload())
	assert.Equal(t, 3, s.Ledger().Metadata.Span)
	assert.Equal(t, "monthly", s.Ledger().Metadata.SummaryMode)
}

func TestClientSecretMissing(t *testing.T) {
	s := openTestSettings(t)
	_, err := s.ClientSecret()
	assert.True(t, errors.Is(err, status.ErrClientSecretNotFound))
}

func TestClientSecretRoundTrip(t *testing.T) {
	dir := t.TempDir()
	paths := NewPaths(dir)
	assert.NoError(t, paths.Ensure())

	secret := `{
		"installed": {
			"client_id": "id.apps.googleusercontent.com",
			"project_id": "expensetracker",
			"client_secret": "shhh",
			"auth_uri": "https://accounts.google.com/o/oauth2/auth",
			"token_uri": "https://oauth2.googleapis.com/token"
		}
	}`
	assert.NoError(t, os.WriteFile(paths.ClientSecret, []byte(secret), 0o600))

	s, err := Open(WithBaseDir(dir))
	assert.NoError(t, err)

	cs, err := s.ClientSecret()
	assert.NoError(t, err)
	client, err := cs.Client()
	assert.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", client.ClientID)
}

func TestClientSecretMissingFields(t *testing.T) {
	dir := t.TempDir()
	paths := NewPaths(dir)
	assert.NoError(t, paths.Ensure())
	assert.NoError(t, os.WriteFile(paths.ClientSecret, []byte(`{"installed":{"client_id":"x"}}`), 0o600))

	_, err := Open(WithBaseDir(dir))
	assert.True(t, errors.Is(err, status.ErrClientSecretInvalid))
}
