package encryption

import (
	"crypto/aes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/argon2"
)

// KDF selects how a password becomes a Fernet key.
type KDF int

const (
	// KDFSHA256 uses a single unsalted SHA-256 of the password. It is fast
	// to brute force and kept only for compatibility with existing images.
	KDFSHA256 KDF = iota
	// KDFArgon2id uses Argon2id with a random salt stored in the token.
	KDFArgon2id
)

// Argon2id parameters for KDFArgon2id tokens.
const (
	Argon2Time    = 1
	Argon2Memory  = 64 * 1024
	Argon2Threads = 4
	SaltSize      = 16
)

// SaltedPrefix marks tokens whose key was derived with KDFArgon2id. Plain
// Fernet tokens always start with "gAAAAA".
const SaltedPrefix = "lsb2$"

var (
	ErrEncryption = errors.New("encryption failed")
	ErrDecryption = errors.New("incorrect password or corrupted message")
	ErrUnknownKDF = errors.New("unknown key derivation function")
)

// No expiry; the timestamp in a token is informational.
const noTTL = -1

// Fernet token layout: version, timestamp, IV, AES-CBC blocks, HMAC.
const (
	fernetVersion  = 0x80
	fernetOverhead = 1 + 8 + aes.BlockSize + sha256.Size
	fernetMinLen   = fernetOverhead + aes.BlockSize
)

func (k KDF) String() string {
	switch k {
	case KDFSHA256:
		return "sha256"
	case KDFArgon2id:
		return "argon2id"
	default:
		return fmt.Sprintf("kdf(%d)", int(k))
	}
}

// DeriveKey returns the legacy key: the SHA-256 digest of the UTF-8
// password used directly as the 32-byte Fernet key.
func DeriveKey(password string) *fernet.Key {
	k := fernet.Key(sha256.Sum256([]byte(password)))
	return &k
}

// DeriveSaltedKey derives a key with Argon2id.
func DeriveSaltedKey(password string, salt []byte) *fernet.Key {
	var k fernet.Key
	copy(k[:], argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Threads, uint32(len(k))))
	return &k
}

// Encrypt seals plaintext into a self-contained text token.
func Encrypt(plaintext []byte, password string, kdf KDF) (string, error) {
	switch kdf {
	case KDFSHA256:
		tok, err := fernet.EncryptAndSign(plaintext, DeriveKey(password))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEncryption, err)
		}
		return string(tok), nil

	case KDFArgon2id:
		salt := make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return "", fmt.Errorf("%w: salt: %v", ErrEncryption, err)
		}
		tok, err := fernet.EncryptAndSign(plaintext, DeriveSaltedKey(password, salt))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEncryption, err)
		}
		return SaltedPrefix + base64.RawURLEncoding.EncodeToString(salt) + "$" + string(tok), nil

	default:
		return "", fmt.Errorf("%w: %v", ErrUnknownKDF, kdf)
	}
}

// Decrypt opens a token produced by Encrypt. The key derivation is read
// from the token itself. A wrong password and a damaged token both return
// ErrDecryption.
func Decrypt(token, password string) ([]byte, error) {
	var salt []byte

	if rest, ok := strings.CutPrefix(token, SaltedPrefix); ok {
		encSalt, tok, ok := strings.Cut(rest, "$")
		if !ok {
			return nil, ErrDecryption
		}
		var err error
		salt, err = base64.RawURLEncoding.DecodeString(encSalt)
		if err != nil || len(salt) == 0 {
			return nil, ErrDecryption
		}
		token = tok
	}

	if !wellFormed(token) {
		return nil, ErrDecryption
	}

	key := DeriveKey(password)
	if salt != nil {
		key = DeriveSaltedKey(password, salt)
	}

	msg := fernet.VerifyAndDecrypt([]byte(token), noTTL, []*fernet.Key{key})
	if msg == nil {
		return nil, ErrDecryption
	}
	return msg, nil
}

// wellFormed reports whether token decodes to a complete Fernet token.
// fernet-go slices the decoded bytes without checking their length, so a
// short token must never reach it.
func wellFormed(token string) bool {
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	if len(b) < fernetMinLen || b[0] != fernetVersion {
		return false
	}
	return (len(b)-fernetOverhead)%aes.BlockSize == 0
}
