package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"
)

var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile = "pepper"
)

// SetPepperPath sets the file the pepper is loaded from (or written to on
// first use). Must be called before the first HashTxCode.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	pepperFile = file
	pepper = ""
}

// LoadPepper loads the pepper now instead of on the first HashTxCode and
// reports whether the file did not exist and a new pepper was written.
// Instances sharing one store must share the pepper file, or tx codes hashed
// on one instance never verify on another.
func LoadPepper() (generated bool, err error) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return false, nil
	}
	p, generated, err := loadOrGeneratePepper(pepperFile)
	if err != nil {
		return false, err
	}
	pepper = p
	return generated, nil
}

// getPepper returns the process pepper, loading or creating it lazily.
func getPepper() (string, error) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper, nil
	}

	p, _, err := loadOrGeneratePepper(pepperFile)
	if err != nil {
		return "", err
	}
	pepper = p
	return pepper, nil
}

// loadOrGeneratePepper loads the pepper from a file or generates one if not found.
func loadOrGeneratePepper(file string) (string, bool, error) {
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(file)
	if err == nil {
		return string(data), false, nil
	}
	if !os.IsNotExist(err) {
		return "", false, err
	}

	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", false, err
	}
	p := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.WriteFile(file, []byte(p), 0600); err != nil {
		return "", false, err
	}
	return p, true, nil
}
