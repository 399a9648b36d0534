package sshutils

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
)

// SFTPSession adapts *sftp.Client to the SFTPSessioner interface. Each
// session is opened for a single transfer and closed when the job finishes.
type SFTPSession struct {
	client *sftp.Client
}

func (s *SFTPSession) Put(localPath, remotePath string) error {
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer local.Close()

	remote, err := s.client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}

	if _, err := io.Copy(remote, local); err != nil {
		remote.Close()
		return fmt.Errorf("failed to write remote file %s: %w", remotePath, err)
	}

	if err := remote.Close(); err != nil {
		return fmt.Errorf("failed to finalize remote file %s: %w", remotePath, err)
	}
	return nil
}

func (s *SFTPSession) Get(remotePath, localPath string) error {
	remote, err := s.client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer remote.Close()

	local, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}

	if _, err := io.Copy(local, remote); err != nil {
		local.Close()
		return fmt.Errorf("failed to write local file %s: %w", localPath, err)
	}

	if err := local.Close(); err != nil {
		return fmt.Errorf("failed to finalize local file %s: %w", localPath, err)
	}
	return nil
}

func (s *SFTPSession) Close() error {
	return s.client.Close()
}
