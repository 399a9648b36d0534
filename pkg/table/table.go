package table

import (
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/gmssh-project/gmssh/pkg/models"
)

const (
	NameWidth = 20
	HostWidth = 30
	UserWidth = 16
	KeyWidth  = 30
)

// SessionTable renders saved sessions as an aligned text table.
type SessionTable struct {
	table *tablewriter.Table
}

func NewSessionTable(w io.Writer) *SessionTable {
	if w == nil {
		w = os.Stdout
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Host", "Port", "User", "Key File", "Last Connected"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return &SessionTable{table: table}
}

func (st *SessionTable) AddSession(s models.SavedSession) {
	lastConnected := "never"
	if s.LastConnected != nil {
		lastConnected = s.LastConnected.Format("2006-01-02 15:04")
	}
	keyFile := s.KeyFile
	if keyFile == "" {
		keyFile = "-"
	}

	row := []string{
		truncate(s.Name, NameWidth),
		truncate(s.Host, HostWidth),
		strconv.Itoa(s.Port),
		truncate(s.Username, UserWidth),
		truncate(keyFile, KeyWidth),
		lastConnected,
	}
	st.table.Append(row)
}

func (st *SessionTable) Render() {
	st.table.Render()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
