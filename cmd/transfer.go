package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmssh-project/gmssh/pkg/display"
	"github.com/gmssh-project/gmssh/pkg/models"
	"github.com/gmssh-project/gmssh/pkg/session"
	"github.com/gmssh-project/gmssh/pkg/sshutils"
	"github.com/gmssh-project/gmssh/pkg/transfer"
)

const timePrecision = 10 * time.Millisecond

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> <remote-path>",
	Short: "Upload a file to a remote host over SFTP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, models.TransferUpload, args[0], args[1])
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <remote-path> <local-path>",
	Short: "Download a file from a remote host over SFTP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, models.TransferDownload, args[1], args[0])
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)

	addConnectionFlags(uploadCmd)
	addConnectionFlags(downloadCmd)
}

// runTransfer dials a short-lived session, runs one copy over it, and tears
// the session down again.
func runTransfer(
	cmd *cobra.Command,
	direction models.TransferDirection,
	localPath, remotePath string,
) error {
	store, err := openRegistry()
	if err != nil {
		return err
	}

	raw, err := buildRawRequest(store, nil)
	if err != nil {
		return err
	}
	// Keepalives make no sense on a session that lives for one copy.
	raw.Keepalive = false

	req, err := session.Resolve(raw)
	if err != nil {
		return err
	}

	sup := session.NewSupervisor(sshutils.NewSSHDial())
	sup.SetStore(store)

	spin := display.Connecting(req.Address())
	err = sup.Connect(cmd.Context(), req)
	spin.Stop()
	if err != nil {
		return err
	}
	defer func() { _ = sup.Disconnect() }()

	orch := transfer.NewOrchestrator(sup.Client())

	var job *models.TransferJob
	if direction == models.TransferUpload {
		job = orch.Upload(localPath, remotePath)
	} else {
		job = orch.Download(remotePath, localPath)
	}

	spin = display.Transferring(job)
	orch.Wait()
	spin.Stop()

	if job.Status == models.TransferFailed {
		return fmt.Errorf("%s failed: %w", job, job.Err)
	}
	fmt.Printf("Completed %s in %s\n", job, job.FinishedAt.Sub(job.StartedAt).Round(timePrecision))
	return nil
}
