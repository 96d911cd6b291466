package storage

import (
	"fmt"

	"golang.org/x/oauth2"

	"github.com/authbridge/oauth-proxy/security"
)

// KnownExtraFields lists the extra fields preserved when an upstream token
// payload is copied or transformed. oauth2.Token keeps these in a private raw
// field, so they must be extracted explicitly and reapplied with WithExtra.
// Unknown extra fields are dropped.
var KnownExtraFields = []string{
	"id_token",   // OIDC ID token
	"scope",      // Granted scopes (may differ from requested)
	"expires_in", // Some servers include it alongside Expiry
}

// SensitiveExtraFields lists extra fields encrypted at rest when an Encryptor
// is configured. The id_token is a signed JWT carrying identity claims.
var SensitiveExtraFields = []string{
	"id_token",
}

// ExtractTokenExtra extracts known extra fields from an oauth2.Token.
// Returns nil if the token is nil or has no known extra fields.
func ExtractTokenExtra(token *oauth2.Token) map[string]interface{} {
	if token == nil {
		return nil
	}

	extra := make(map[string]interface{}, len(KnownExtraFields))
	for _, field := range KnownExtraFields {
		if v := token.Extra(field); v != nil {
			extra[field] = v
		}
	}

	if len(extra) == 0 {
		return nil
	}
	return extra
}

// CloneToken returns a copy of an upstream token with its known extra fields
// preserved. The original is never modified.
func CloneToken(token *oauth2.Token) *oauth2.Token {
	if token == nil {
		return nil
	}

	clone := &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if extra := ExtractTokenExtra(token); extra != nil {
		clone = clone.WithExtra(extra)
	}
	return clone
}

// EncryptExtraFields encrypts sensitive fields in the extra map, copying the
// rest as-is. If the encryptor is nil or disabled, the map is returned
// unchanged.
func EncryptExtraFields(extra map[string]interface{}, encryptor *security.Encryptor) (map[string]interface{}, error) {
	return transformExtraFields(extra, encryptor, true)
}

// DecryptExtraFields decrypts sensitive fields in the extra map, copying the
// rest as-is. If the encryptor is nil or disabled, the map is returned
// unchanged.
func DecryptExtraFields(extra map[string]interface{}, encryptor *security.Encryptor) (map[string]interface{}, error) {
	return transformExtraFields(extra, encryptor, false)
}

func transformExtraFields(extra map[string]interface{}, encryptor *security.Encryptor, encrypt bool) (map[string]interface{}, error) {
	if extra == nil {
		return nil, nil
	}
	if encryptor == nil || !encryptor.IsEnabled() {
		return extra, nil
	}

	sensitive := make(map[string]bool, len(SensitiveExtraFields))
	for _, field := range SensitiveExtraFields {
		sensitive[field] = true
	}

	result := make(map[string]interface{}, len(extra))
	for key, value := range extra {
		strVal, ok := value.(string)
		if !sensitive[key] || !ok || strVal == "" {
			result[key] = value
			continue
		}

		var transformed string
		var err error
		if encrypt {
			transformed, err = encryptor.Encrypt(strVal)
		} else {
			transformed, err = encryptor.Decrypt(strVal)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to transform extra field %s: %w", key, err)
		}
		result[key] = transformed
	}

	return result, nil
}
