package sshserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

const hostKeyComment = "budgetchat host key"

// LoadOrGenerateSigner returns the host signer stored at path. A missing file is
// created with a fresh ed25519 key; an empty path yields an ephemeral key.
func LoadOrGenerateSigner(path string) (ssh.Signer, error) {
	if path == "" {
		return EphemeralSigner()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("sshserver: resolve host key path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	switch {
	case err == nil:
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("sshserver: parse host key %q: %w", absPath, err)
		}
		return signer, nil
	case errors.Is(err, os.ErrNotExist):
		return storeNewHostKey(absPath)
	default:
		return nil, fmt.Errorf("sshserver: read host key %q: %w", absPath, err)
	}
}

// EphemeralSigner creates a throwaway ed25519 host key for tests and development.
func EphemeralSigner() (ssh.Signer, error) {
	_, signer, err := newHostKey()
	return signer, err
}

func storeNewHostKey(path string) (ssh.Signer, error) {
	key, signer, err := newHostKey()
	if err != nil {
		return nil, err
	}

	block, err := ssh.MarshalPrivateKey(key, hostKeyComment)
	if err != nil {
		return nil, fmt.Errorf("sshserver: encode host key: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sshserver: create host key dir %q: %w", dir, err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("sshserver: write host key %q: %w", path, err)
	}
	return signer, nil
}

func newHostKey() (ed25519.PrivateKey, ssh.Signer, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("sshserver: generate host key: %w", err)
	}

	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("sshserver: create signer: %w", err)
	}
	return key, signer, nil
}
