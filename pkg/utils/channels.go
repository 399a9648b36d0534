package utils

import (
	"os"
	"os/signal"
	"syscall"
)

// CreateSignalChannel returns a channel notified on interrupt and terminate
// signals. The caller owns the channel and stops delivery with StopSignals.
func CreateSignalChannel(capacity int) chan os.Signal {
	ch := make(chan os.Signal, capacity)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}

// StopSignals unregisters the channel from signal delivery.
func StopSignals(ch chan os.Signal) {
	signal.Stop(ch)
}
