package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
)

const testKeyBits = 2048

// GeneratePrivateKeyPEM returns a freshly generated RSA private key in PEM
// form, parseable by ssh.ParsePrivateKey.
func GeneratePrivateKeyPEM() ([]byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, testKeyBits)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

// CreatePrivateKeyOnDisk writes a throwaway private key to a temp file and
// returns its path plus a cleanup func.
func CreatePrivateKeyOnDisk() (string, func(), error) {
	keyPEM, err := GeneratePrivateKeyPEM()
	if err != nil {
		return "", nil, err
	}
	return WriteStringToTempFile(string(keyPEM))
}
