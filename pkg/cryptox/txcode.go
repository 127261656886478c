package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for transaction codes at rest.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	// ErrUnsupportedTxCodeLength is returned for lengths other than 6 or 8.
	ErrUnsupportedTxCodeLength = errors.New("cryptox: transaction code length must be 6 or 8")
	// ErrTxCodeMismatch is returned when a transaction code does not match its hash.
	ErrTxCodeMismatch = errors.New("cryptox: transaction code does not match")
)

// GenerateTxCode returns a numeric transaction code of the given length.
// Digits come from an HOTP evaluation over a throwaway random secret, which
// gives uniformly distributed, zero-padded codes.
func GenerateTxCode(length int) (string, error) {
	var digits otp.Digits
	switch length {
	case 6:
		digits = otp.DigitsSix
	case 8:
		digits = otp.DigitsEight
	default:
		return "", ErrUnsupportedTxCodeLength
	}

	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("cryptox: generate tx code secret: %w", err)
	}

	var counter [8]byte
	if _, err := rand.Read(counter[:]); err != nil {
		return "", fmt.Errorf("cryptox: generate tx code counter: %w", err)
	}
	var c uint64
	for _, b := range counter {
		c = c<<8 | uint64(b)
	}

	code, err := hotp.GenerateCodeCustom(
		base32.StdEncoding.EncodeToString(secret),
		c,
		hotp.ValidateOpts{Digits: digits, Algorithm: otp.AlgorithmSHA1},
	)
	if err != nil {
		return "", fmt.Errorf("cryptox: generate tx code: %w", err)
	}
	return code, nil
}

// HashTxCode returns a PHC-format Argon2id hash of a transaction code.
func HashTxCode(code string) (string, error) {
	p, err := getPepper()
	if err != nil {
		return "", fmt.Errorf("cryptox: load pepper: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(code+p), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyTxCode compares code against a hash produced by HashTxCode. The final
// comparison is constant time. Returns ErrTxCodeMismatch on mismatch.
func VerifyTxCode(code, encodedHash string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return errors.New("cryptox: invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" {
		return errors.New("cryptox: invalid hash format: not argon2id v19")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("cryptox: invalid hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("cryptox: invalid hash salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("cryptox: invalid hash value: %w", err)
	}

	p, err := getPepper()
	if err != nil {
		return fmt.Errorf("cryptox: load pepper: %w", err)
	}

	computed := argon2.IDKey([]byte(code+p), salt, iters, mem, par, uint32(len(expected))) // #nosec G115
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrTxCodeMismatch
	}
	return nil
}
