package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmssh-project/gmssh/pkg/models"
	"github.com/gmssh-project/gmssh/pkg/table"
)

var (
	saveHost      string
	savePort      int
	saveUser      string
	saveKeyFile   string
	saveTimeout   int
	saveKeepalive bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRegistry()
		if err != nil {
			return err
		}

		sessions := store.List()
		if len(sessions) == 0 {
			fmt.Println("No saved sessions.")
			return nil
		}

		st := table.NewSessionTable(os.Stdout)
		for _, s := range sessions {
			st.AddSession(s)
		}
		st.Render()
		return nil
	},
}

var sessionsSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save a session profile under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRegistry()
		if err != nil {
			return err
		}

		name := args[0]
		if err := store.Put(models.SavedSession{
			Name:      name,
			Host:      saveHost,
			Port:      savePort,
			Username:  saveUser,
			KeyFile:   saveKeyFile,
			Timeout:   saveTimeout,
			Keepalive: saveKeepalive,
		}); err != nil {
			return err
		}
		fmt.Printf("Saved session %q\n", name)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRegistry()
		if err != nil {
			return err
		}

		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsSaveCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsSaveCmd.Flags().StringVar(&saveHost, "host", "", "Remote host")
	sessionsSaveCmd.Flags().IntVar(&savePort, "port", models.DefaultSSHPort, "SSH port")
	sessionsSaveCmd.Flags().StringVar(&saveUser, "user", "", "Username")
	sessionsSaveCmd.Flags().StringVar(&saveKeyFile, "key", "", "Path to a private key file")
	sessionsSaveCmd.Flags().IntVar(&saveTimeout, "timeout", 10, "Connect timeout in seconds")
	sessionsSaveCmd.Flags().BoolVar(&saveKeepalive, "keepalive", true, "Send periodic keepalive probes")
}
