// Package all registers all shell commands.
package all

import (
	// command sets
	_ "github.com/robotalks/homeauto.go/pkg/cli/cmds/clock"
	_ "github.com/robotalks/homeauto.go/pkg/cli/cmds/sensor"
	_ "github.com/robotalks/homeauto.go/pkg/cli/cmds/switches"
)
