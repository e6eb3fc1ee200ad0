// Command oc-rsync is an rsync(1)-compatible client and daemon implementation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/oferchen/oc-rsync-sub001/internal/maincmd"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncerr"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncos"
)

func main() {
	osenv := &rsyncos.Env{
		Std: rsyncos.Std{
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		},
	}
	_, err := maincmd.Main(context.Background(), osenv, os.Args, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(rsyncerr.ExitCode(err))
}
