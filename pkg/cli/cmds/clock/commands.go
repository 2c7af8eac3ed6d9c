package clock

import (
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/homeauto.go/pkg/cli/sh"
)

var (
	// TimeCmd reads the node clock.
	TimeCmd = ishell.Cmd{
		Name:    "time",
		Aliases: []string{"gt"},
		Help:    "NODE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoRequest(c, "get-time")
		}),
	}

	// SetTimeCmd sets the node clock, to now by default.
	SetTimeCmd = ishell.Cmd{
		Name:    "settime",
		Aliases: []string{"st"},
		Help:    "NODE [YYYY-MM-DD hh:mm]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoRequest(c, strings.Join(append([]string{"set-time"}, timeArgs(c, 1)...), " "))
		}),
	}

	// AlarmCmd reads an alarm, or sets it when time is given.
	AlarmCmd = ishell.Cmd{
		Name:    "alarm",
		Aliases: []string{"a"},
		Help:    "NODE 1|2 [YYYY-MM-DD hh:mm]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 || (c.Args[1] != "1" && c.Args[1] != "2") {
				c.Err(fmt.Errorf("NODE and alarm 1 or 2 required"))
				return
			}
			verb := "alarm" + c.Args[1] + "-get"
			if at := timeArgs(c, 2); len(at) > 0 {
				verb = "alarm" + c.Args[1] + "-set " + strings.Join(at, " ")
			}
			sh.DoRequest(c, verb)
		}),
	}
)

func timeArgs(c *ishell.Context, from int) []string {
	if len(c.Args) > from {
		return c.Args[from:]
	}
	return nil
}

func init() {
	sh.AddCmds(&TimeCmd, &SetTimeCmd, &AlarmCmd)
}
