package main

import (
	"estateguru-notifier/cmd/estateguru-notifier/commands"
	"estateguru-notifier/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
