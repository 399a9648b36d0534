package display

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"

	"github.com/gmssh-project/gmssh/pkg/logger"
)

const spinnerInterval = 100 * time.Millisecond

// Connecting shows a spinner while a dial to addr is in flight. The caller
// stops it once the attempt resolves either way.
func Connecting(addr string) *spinner.Spinner {
	return start(fmt.Sprintf("Connecting to %s...", addr))
}

// Transferring shows a spinner while a file transfer job runs.
func Transferring(job fmt.Stringer) *spinner.Spinner {
	return start(fmt.Sprintf("Running %s...", job))
}

func start(message string) *spinner.Spinner {
	logger.Get().Debugf("Starting spinner: %s", message)

	s := spinner.New(spinner.CharSets[14], spinnerInterval)
	s.Prefix = message + " "
	s.Color("green")
	s.Start()

	return s
}
