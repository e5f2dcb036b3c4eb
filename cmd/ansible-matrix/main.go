package main

import (
	"ansible-matrix/cmd/ansible-matrix/commands"
	"ansible-matrix/lib/util/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
