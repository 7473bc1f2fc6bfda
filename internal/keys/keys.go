package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"
)

// Pair holds a freshly generated SSH key pair.
type Pair struct {
	Private []byte // PEM-encoded private key
	Public  string // single authorized_keys line
}

// Generate creates a new 2048-bit RSA key pair. The comment, usually the
// remote username, is appended to the public key line.
func Generate(comment string) (*Pair, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	publicKey, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}

	public := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(publicKey)))
	if comment != "" {
		public = public + " " + comment
	}

	return &Pair{Private: privatePEM, Public: public}, nil
}

// WritePrivateKey persists a private key under dir with owner-only
// permissions. The file name carries a random suffix so concurrent runs
// against same-named instances never collide.
func WritePrivateKey(key []byte, name, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.key", name, uuid.NewString()))
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return "", fmt.Errorf("failed to write private key: %w", err)
	}

	return path, nil
}

// Delete removes a local key file. A missing file is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove private key: %w", err)
	}
	return nil
}
