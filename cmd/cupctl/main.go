// Command cupctl runs a tournament offline against a JSON state file, without the
// server or a database.
package main

import (
	"log"
	"os"
)

var build string
var semanticVersion = "v0.1.0-dev" + build

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
