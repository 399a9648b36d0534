package models

import (
	"fmt"
	"sync/atomic"
	"time"
)

// TransferDirection says which way a file copy runs.
type TransferDirection int

const (
	TransferUpload TransferDirection = iota
	TransferDownload
)

func (d TransferDirection) String() string {
	if d == TransferUpload {
		return "upload"
	}
	return "download"
}

// TransferStatus is the lifecycle of one transfer job. A job reaches exactly
// one of the terminal states and is never restarted in place.
type TransferStatus int

const (
	TransferPending TransferStatus = iota
	TransferRunning
	TransferSucceeded
	TransferFailed
)

func (s TransferStatus) String() string {
	switch s {
	case TransferPending:
		return "pending"
	case TransferRunning:
		return "running"
	case TransferSucceeded:
		return "succeeded"
	case TransferFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s TransferStatus) IsTerminal() bool {
	return s == TransferSucceeded || s == TransferFailed
}

var transferJobCounter uint64

// TransferJob describes one upload or download. Only the transfer
// orchestrator mutates it after creation.
type TransferJob struct {
	ID         uint64
	Direction  TransferDirection
	LocalPath  string
	RemotePath string

	Status     TransferStatus
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewTransferJob(direction TransferDirection, localPath, remotePath string) *TransferJob {
	return &TransferJob{
		ID:         atomic.AddUint64(&transferJobCounter, 1),
		Direction:  direction,
		LocalPath:  localPath,
		RemotePath: remotePath,
		Status:     TransferPending,
	}
}

func (j *TransferJob) String() string {
	return fmt.Sprintf("%s #%d %s -> %s", j.Direction, j.ID, j.LocalPath, j.RemotePath)
}
