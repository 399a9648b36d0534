package session

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"

	"github.com/gmssh-project/gmssh/pkg/logger"
	"github.com/gmssh-project/gmssh/pkg/models"
)

// RawRequest is the unvalidated connection form as the operator typed it.
type RawRequest struct {
	Name           string
	Host           string
	Port           int
	Username       string
	Password       string
	KeyFile        string
	TimeoutSeconds int
	Keepalive      bool
}

// Resolve validates a raw form into a typed connection request. Key material
// is read and parsed here so a malformed key surfaces as a validation error
// before any network activity. When both a password and a key file are
// given, the key file wins and the password is dropped, so the resulting
// request always carries exactly one credential.
func Resolve(raw RawRequest) (*models.ConnectionRequest, error) {
	l := logger.Get()

	if raw.Host == "" {
		return nil, models.NewValidationError(
			models.ValidationMissingField, "host", fmt.Errorf("host is required"))
	}
	if raw.Username == "" {
		return nil, models.NewValidationError(
			models.ValidationMissingField, "username", fmt.Errorf("username is required"))
	}
	if raw.Port < models.MinPort || raw.Port > models.MaxPort {
		return nil, models.NewValidationError(
			models.ValidationBadValue, "port",
			fmt.Errorf("port %d out of range %d-%d", raw.Port, models.MinPort, models.MaxPort))
	}
	if raw.TimeoutSeconds <= 0 {
		return nil, models.NewValidationError(
			models.ValidationBadValue, "timeout",
			fmt.Errorf("timeout must be a positive number of seconds, got %d", raw.TimeoutSeconds))
	}
	if raw.Password == "" && raw.KeyFile == "" {
		return nil, models.NewValidationError(
			models.ValidationNoAuthMethod, "auth",
			fmt.Errorf("either a password or a key file is required"))
	}

	var auth models.AuthMethod
	if raw.KeyFile != "" {
		signer, err := loadPrivateKey(raw.KeyFile)
		if err != nil {
			return nil, err
		}
		auth = models.PrivateKeyAuth(signer)
	} else {
		auth = models.PasswordAuth(raw.Password)
	}

	l.Debugf("Resolved connection request for %s@%s:%d", raw.Username, raw.Host, raw.Port)

	return &models.ConnectionRequest{
		Name:             raw.Name,
		Host:             raw.Host,
		Port:             raw.Port,
		Username:         raw.Username,
		Auth:             auth,
		Timeout:          time.Duration(raw.TimeoutSeconds) * time.Second,
		KeepaliveEnabled: raw.Keepalive,
	}, nil
}

// RawFromSaved rebuilds a raw form from a saved session. Passwords are never
// persisted, so the caller supplies one if key auth is not configured.
func RawFromSaved(saved models.SavedSession, password string) RawRequest {
	return RawRequest{
		Name:           saved.Name,
		Host:           saved.Host,
		Port:           saved.Port,
		Username:       saved.Username,
		Password:       password,
		KeyFile:        saved.KeyFile,
		TimeoutSeconds: saved.Timeout,
		Keepalive:      saved.Keepalive,
	}
}

func loadPrivateKey(keyFile string) (ssh.Signer, error) {
	path, err := homedir.Expand(keyFile)
	if err != nil {
		return nil, models.NewValidationError(models.ValidationBadValue, "key_file", err)
	}

	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewValidationError(
			models.ValidationKeyFormat, "key_file",
			fmt.Errorf("failed to read private key: %w", err))
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, models.NewValidationError(
			models.ValidationKeyFormat, "key_file",
			fmt.Errorf("failed to parse private key: %w", err))
	}
	return signer, nil
}
