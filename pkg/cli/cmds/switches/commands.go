package switches

import (
	"github.com/abiosoft/ishell"

	"github.com/robotalks/homeauto.go/pkg/cli/sh"
)

func requestCmd(name, alias, help string) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    name,
		Aliases: []string{alias},
		Help:    help,
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoRequest(c, name)
		}),
	}
}

var (
	// OnCmd turns a switch on.
	OnCmd = requestCmd("on", "1", "NODE")
	// OffCmd turns a switch off.
	OffCmd = requestCmd("off", "0", "NODE")
	// ToggleCmd toggles a switch.
	ToggleCmd = requestCmd("toggle", "t", "NODE")
	// StatusCmd queries a switch.
	StatusCmd = requestCmd("status", "s", "NODE")
)

func init() {
	sh.AddCmds(OnCmd, OffCmd, ToggleCmd, StatusCmd)
}
