// Package cmd runs external programs with stderr folded into errors.
//
// cachemgr only shells out to show a version folder in the system file
// browser (xdg-open, open or explorer). Commands are logged through
// [log.Logger.Command] in verbose mode together with their duration.
//
// # Usage
//
//	out, err := cmd.OutputContext(ctx, dir, "ls", "-l")
//	if err != nil {
//	    // err carries stderr when the program wrote any
//	}
package cmd
