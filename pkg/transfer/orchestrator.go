package transfer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/sync/errgroup"

	"github.com/gmssh-project/gmssh/pkg/goroutine"
	"github.com/gmssh-project/gmssh/pkg/logger"
	"github.com/gmssh-project/gmssh/pkg/models"
	"github.com/gmssh-project/gmssh/pkg/sshutils"
)

const eventBufferSize = 16

// Event is the single terminal notification for one transfer job.
type Event struct {
	Job  *models.TransferJob
	Time time.Time
}

// Orchestrator runs upload/download jobs against short-lived SFTP sessions
// over an already-authenticated transport. Jobs are independent of each
// other and of the interactive shell; a failed job never touches session
// state.
type Orchestrator struct {
	client sshutils.SSHClienter
	events chan Event
	group  *errgroup.Group
	logger *logger.Logger
}

func NewOrchestrator(client sshutils.SSHClienter) *Orchestrator {
	return &Orchestrator{
		client: client,
		events: make(chan Event, eventBufferSize),
		group:  &errgroup.Group{},
		logger: logger.Get(),
	}
}

// Events delivers exactly one terminal event per started job.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Upload copies a local file to the remote host on its own background task.
func (o *Orchestrator) Upload(localPath, remotePath string) *models.TransferJob {
	job := models.NewTransferJob(models.TransferUpload, localPath, remotePath)
	o.startJob(job, func(sess sshutils.SFTPSessioner) error {
		return sess.Put(localPath, remotePath)
	})
	return job
}

// Download copies a remote file to the local host on its own background task.
func (o *Orchestrator) Download(remotePath, localPath string) *models.TransferJob {
	job := models.NewTransferJob(models.TransferDownload, localPath, remotePath)
	o.startJob(job, func(sess sshutils.SFTPSessioner) error {
		return sess.Get(remotePath, localPath)
	})
	return job
}

// Wait blocks until every started job has reached its terminal state.
func (o *Orchestrator) Wait() {
	_ = o.group.Wait()
}

func (o *Orchestrator) startJob(job *models.TransferJob, copyFn func(sshutils.SFTPSessioner) error) {
	job.Status = models.TransferRunning
	job.StartedAt = time.Now()
	o.logger.Infof("Starting %s", job)

	o.group.Go(func() error {
		id := goroutine.RegisterGoroutine(fmt.Sprintf("transfer-%d", job.ID))
		defer goroutine.DeregisterGoroutine(id)

		o.finish(job, o.runJob(copyFn))
		return nil
	})
}

// runJob opens its own SFTP session for the single copy and closes it
// whatever the outcome.
func (o *Orchestrator) runJob(copyFn func(sshutils.SFTPSessioner) error) error {
	sess, err := o.client.NewSFTPSession()
	if err != nil {
		return models.NewTransferError(models.TransferTransportLost,
			fmt.Errorf("failed to open file-transfer session: %w", err))
	}
	defer sess.Close()

	if err := copyFn(sess); err != nil {
		return classifyTransferError(err)
	}
	return nil
}

func (o *Orchestrator) finish(job *models.TransferJob, err error) {
	job.FinishedAt = time.Now()
	if err != nil {
		job.Status = models.TransferFailed
		job.Err = err
		o.logger.Warnf("%s failed: %v", job, err)
	} else {
		job.Status = models.TransferSucceeded
		o.logger.Infof("%s succeeded", job)
	}

	select {
	case o.events <- Event{Job: job, Time: time.Now()}:
	default:
		o.logger.Warnf("transfer event feed full, dropping terminal event for %s", job)
	}
}

func classifyTransferError(err error) *models.TransferError {
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.FxCode() {
		case sftp.ErrSSHFxNoSuchFile:
			return models.NewTransferError(models.TransferRemoteNotFound, err)
		case sftp.ErrSSHFxPermissionDenied:
			return models.NewTransferError(models.TransferPermissionDenied, err)
		case sftp.ErrSSHFxConnectionLost, sftp.ErrSSHFxNoConnection:
			return models.NewTransferError(models.TransferTransportLost, err)
		}
	}

	msg := err.Error()
	switch {
	case errors.Is(err, io.EOF),
		strings.Contains(msg, "connection lost"),
		strings.Contains(msg, "use of closed network connection"):
		return models.NewTransferError(models.TransferTransportLost, err)
	default:
		// Local filesystem problems and anything unclassified.
		return models.NewTransferError(models.TransferIOError, err)
	}
}
