// Command revisionctl inspects and maintains a revision tracker database
// from the terminal: due lists, stats, backups and the revision threshold.
//
//	revisionctl users
//	revisionctl --user <id> due
//	revisionctl --user <id> stats --tz Asia/Kolkata
//	revisionctl --user <id> export --out backup.json
//	revisionctl settings set 14
package main

import (
	"fmt"
	"os"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
