// Package cli parses the roofline command line into an app.Config and maps
// application errors to process exit codes. Options of the record command may
// appear anywhere around the target; whatever the parser does not recognize
// is handed to the target unchanged.
package cli
