package main

import (
	"bookmeter-discounts/cmd/bookmeter-discounts/commands"
	"bookmeter-discounts/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
