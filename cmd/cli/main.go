// dropboxlog - Android DropBox exporter
//
// dropboxlog drains an Android DropBox (the platform's crash and anomaly
// record store) into a single text file, oldest entry first.
package main

import (
	"os"

	"github.com/ccollicutt/dropboxlog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
