// plugwatch logs Tasmota smart-plug energy readings and guards the screen
// session the logger runs in.
package main

import (
	"os"

	"github.com/plugwatch/plugwatch/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
