// diag.go - Shared diagnostics logger

package recomp

import (
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		ForceColors:      term.IsTerminal(int(os.Stderr.Fd())),
	})
	return l
}

// Logger exposes the package logger so the CLI front ends can adjust the
// level or redirect output.
func Logger() *logrus.Logger {
	return logger
}
