package sensor

import (
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/homeauto.go/pkg/cli/sh"
)

var (
	// ReadCmd requests a measurement.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "NODE [temperature|humidity|motion-status|water-level]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoRequest(c, strings.Join(append([]string{"read"}, argsAfterNode(c)...), " "))
		}),
	}
)

func argsAfterNode(c *ishell.Context) []string {
	if len(c.Args) > 1 {
		return c.Args[1:]
	}
	return nil
}

func init() {
	sh.AddCmds(&ReadCmd)
}
