package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNoOAuthCredentials means neither an OAuth client nor a token is configured.
var ErrNoOAuthCredentials = errors.New("no OAuth credentials configured")

// OAuthConfigFromEnv builds the OAuth client config from
// GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	data, err := readInlineOrFile("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	cfg, err := goauth.ConfigFromJSON(data, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// OAuthTokenFromEnv reads the token saved by oauth-init from
// GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE.
func OAuthTokenFromEnv() (*oauth2.Token, error) {
	data, err := readInlineOrFile("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token: neither access nor refresh token present")
	}
	return &tok, nil
}

// SaveOAuthToken writes tok as JSON with owner-only permissions.
func SaveOAuthToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// oauthCredentials returns the client config and token, wrapping
// ErrNoOAuthCredentials when either is not configured.
func oauthCredentials() (*oauth2.Config, *oauth2.Token, error) {
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	tok, err := OAuthTokenFromEnv()
	if err != nil {
		return nil, nil, err
	}
	return cfg, tok, nil
}

func readInlineOrFile(inlineKey, fileKey string) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv(inlineKey)); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv(fileKey))
	if path == "" {
		return nil, fmt.Errorf("%w (set %s or %s)", ErrNoOAuthCredentials, inlineKey, fileKey)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileKey, err)
	}
	return data, nil
}
