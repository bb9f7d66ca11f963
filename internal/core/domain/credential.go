package domain

import "encoding/json"

// CredentialScheme names how a stored credential is encoded.
type CredentialScheme string

const (
	// SchemeLegacy is a plaintext password kept from before hashing was introduced.
	SchemeLegacy CredentialScheme = "legacy"
	// SchemeBcrypt is a bcrypt hash; the cost is embedded in the hash itself.
	SchemeBcrypt CredentialScheme = "bcrypt"
	// SchemeBcryptSHA256 is a bcrypt hash of the base64 SHA-256 digest of the
	// password. Used for passwords longer than bcrypt's 72-byte input limit.
	SchemeBcryptSHA256 CredentialScheme = "bcrypt-sha256"
)

const redacted = "[REDACTED]"

// Credential is the stored secret of a player: either Legacy(plaintext) or
// Hashed(hash). The zero value is an empty legacy credential and never matches
// anything because the verifier rejects empty passwords upstream.
//
// A Credential never renders its secret through fmt or JSON.
type Credential struct {
	scheme CredentialScheme
	secret string
}

func LegacyCredential(plaintext string) Credential {
	return Credential{scheme: SchemeLegacy, secret: plaintext}
}

func HashedCredential(hash string) Credential {
	return Credential{scheme: SchemeBcrypt, secret: hash}
}

func PrehashedCredential(hash string) Credential {
	return Credential{scheme: SchemeBcryptSHA256, secret: hash}
}

// ParseCredential rebuilds a credential from its persisted scheme and value.
func ParseCredential(scheme, value string) (Credential, error) {
	switch CredentialScheme(scheme) {
	case SchemeLegacy:
		return LegacyCredential(value), nil
	case SchemeBcrypt:
		return HashedCredential(value), nil
	case SchemeBcryptSHA256:
		return PrehashedCredential(value), nil
	default:
		return Credential{}, NewValidationError("credential_scheme", "unknown scheme "+scheme)
	}
}

func (c Credential) Scheme() CredentialScheme { return c.scheme }

func (c Credential) IsLegacy() bool { return c.scheme == SchemeLegacy || c.scheme == "" }

// Secret returns the raw stored value. Only the verifier and storage adapters
// should call it.
func (c Credential) Secret() string { return c.secret }

func (c Credential) String() string {
	return string(c.scheme) + ":" + redacted
}

func (c Credential) GoString() string { return c.String() }

func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}
