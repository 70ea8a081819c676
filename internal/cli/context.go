package cli

import (
	"os"

	"github.com/selfgate-project/selfgate/pkg/selfgate"
)

// openClient builds a client rooted at CWD, or exits with error. Callers
// must Close it.
func openClient() *selfgate.Client {
	cwd, err := os.Getwd()
	if err != nil {
		fmtErr("cannot get current directory: %v", err)
		os.Exit(1)
	}
	c, err := selfgate.Open(cwd, selfgate.Options{})
	if err != nil {
		fmtErr("open: %v", err)
		os.Exit(1)
	}
	return c
}
