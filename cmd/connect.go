package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gmssh-project/gmssh/pkg/display"
	"github.com/gmssh-project/gmssh/pkg/logger"
	"github.com/gmssh-project/gmssh/pkg/models"
	"github.com/gmssh-project/gmssh/pkg/registry"
	"github.com/gmssh-project/gmssh/pkg/session"
	"github.com/gmssh-project/gmssh/pkg/sshutils"
	"github.com/gmssh-project/gmssh/pkg/utils"
)

var (
	connectHost      string
	connectPort      int
	connectUser      string
	connectPassword  string
	connectKeyFile   string
	connectTimeout   int
	connectKeepalive bool
	connectSaved     string
	connectSaveAs    string
)

var connectCmd = &cobra.Command{
	Use:   "connect [user@host[:port]]",
	Short: "Open an interactive shell session on a remote host",
	Long: `Connect opens an interactive shell session on a remote host and streams
its output to the terminal. Lines typed on stdin are sent to the remote
shell. The session ends when stdin is closed or the remote side hangs up.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)

	addConnectionFlags(connectCmd)
	connectCmd.Flags().BoolVar(&connectKeepalive, "keepalive", true, "Send periodic keepalive probes")
	connectCmd.Flags().StringVar(&connectSaveAs, "save-as", "", "Save this connection to the registry under the given name")
}

// addConnectionFlags registers the flags every command that dials a remote
// host shares. The bound variables are package globals, so only one command
// runs per process invocation.
func addConnectionFlags(c *cobra.Command) {
	c.Flags().StringVar(&connectHost, "host", "", "Remote host to connect to")
	c.Flags().IntVar(&connectPort, "port", models.DefaultSSHPort, "SSH port on the remote host")
	c.Flags().StringVar(&connectUser, "user", "", "Username to authenticate as")
	c.Flags().StringVar(&connectPassword, "password", "", "Password for authentication")
	c.Flags().StringVar(&connectKeyFile, "key", "", "Path to a private key file")
	c.Flags().IntVar(&connectTimeout, "timeout", 10, "Connect timeout in seconds")
	c.Flags().StringVar(&connectSaved, "session", "", "Connect using a saved session by name")
}

func runConnect(cmd *cobra.Command, args []string) error {
	store, err := openRegistry()
	if err != nil {
		return err
	}

	raw, err := buildRawRequest(store, args)
	if err != nil {
		return err
	}

	req, err := session.Resolve(raw)
	if err != nil {
		return err
	}

	if connectSaveAs != "" {
		if err := store.Put(models.SavedSession{
			Name:      connectSaveAs,
			Host:      raw.Host,
			Port:      raw.Port,
			Username:  raw.Username,
			KeyFile:   raw.KeyFile,
			Timeout:   raw.TimeoutSeconds,
			Keepalive: raw.Keepalive,
		}); err != nil {
			return fmt.Errorf("failed to save session %q: %w", connectSaveAs, err)
		}
		fmt.Printf("Saved session %q\n", connectSaveAs)
	}

	sup := session.NewSupervisor(sshutils.NewSSHDial())
	sup.SetStore(store)

	spin := display.Connecting(req.Address())
	err = sup.Connect(cmd.Context(), req)
	spin.Stop()
	if err != nil {
		return err
	}
	fmt.Printf("Connected to %s\n", req.Address())

	return runInteractive(sup)
}

// runInteractive streams session output to stdout and forwards stdin lines
// to the remote shell until the session ends on either side.
func runInteractive(sup *session.Supervisor) error {
	consumer := session.NewConsumer(sup.Queue(), func(chunks []models.OutputChunk) {
		for _, c := range chunks {
			fmt.Print(c.Text)
		}
	})
	consumer.Start()
	defer consumer.Stop()

	// Ctrl+C disconnects cleanly instead of killing the process mid-write.
	sigCh := utils.CreateSignalChannel(1)
	defer utils.StopSignals(sigCh)
	go func() {
		<-sigCh
		_ = sup.Disconnect()
	}()

	// Stdin reads cannot be interrupted, so the forwarder runs detached
	// and exits on its own once Send starts failing.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := sup.Send(scanner.Text()); err != nil {
				return
			}
		}
		// Stdin closed, the operator is done with the session.
		_ = sup.Disconnect()
	}()

	g := new(errgroup.Group)
	g.Go(func() error {
		for ev := range sup.Events() {
			switch ev.State {
			case models.StateFailed:
				if errors.Is(ev.Reason, io.EOF) {
					fmt.Println("\nConnection closed by remote host.")
					return nil
				}
				return ev.Reason
			case models.StateDisconnected:
				fmt.Println("\nDisconnected.")
				return nil
			}
		}
		return nil
	})
	return g.Wait()
}

// buildRawRequest assembles the unvalidated connection form from a saved
// session, flags, or a user@host[:port] positional target.
func buildRawRequest(store *registry.Registry, args []string) (session.RawRequest, error) {
	if connectSaved != "" {
		saved, ok := store.Get(connectSaved)
		if !ok {
			return session.RawRequest{}, fmt.Errorf("no saved session named %q", connectSaved)
		}
		return session.RawFromSaved(saved, connectPassword), nil
	}

	raw := session.RawRequest{
		Host:           connectHost,
		Port:           connectPort,
		Username:       connectUser,
		Password:       connectPassword,
		KeyFile:        connectKeyFile,
		TimeoutSeconds: connectTimeout,
		Keepalive:      connectKeepalive,
	}

	if len(args) == 1 {
		user, host, port, err := parseTarget(args[0])
		if err != nil {
			return session.RawRequest{}, err
		}
		raw.Username = user
		raw.Host = host
		if port != 0 {
			raw.Port = port
		}
	}
	return raw, nil
}

// parseTarget splits a user@host[:port] quick-connect target. A zero port
// means the target did not name one.
func parseTarget(target string) (user, host string, port int, err error) {
	at := strings.LastIndex(target, "@")
	if at <= 0 || at == len(target)-1 {
		return "", "", 0, fmt.Errorf("target %q is not of the form user@host[:port]", target)
	}
	user = target[:at]
	host = target[at+1:]

	if colon := strings.LastIndex(host, ":"); colon >= 0 {
		port, err = strconv.Atoi(host[colon+1:])
		if err != nil {
			return "", "", 0, fmt.Errorf("invalid port in target %q: %w", target, err)
		}
		host = host[:colon]
	}
	return user, host, port, nil
}

func openRegistry() (*registry.Registry, error) {
	path, err := registry.DefaultPath()
	if err != nil {
		return nil, err
	}
	store, err := registry.New(path)
	if err != nil {
		logger.Get().Errorf("Failed to open session registry at %s: %v", path, err)
		return nil, err
	}
	return store, nil
}
