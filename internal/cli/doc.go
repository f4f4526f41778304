// Package cli implements the swiftvfs administration command.
//
// It wires configuration, signing oracles, the storage client and the local
// state database, and dispatches one subcommand per invocation:
//
//	keygen   generate Ed25519 signing keys
//	token    issue a visitor token
//	url      issue an authenticated landing URL
//	users    list user directories
//	verify   check a serialized token against the published keys
//	ls       list a directory, optionally recursively
//	sync     refresh the cached listing of a visitor scope
//	put      upload a local file into a visitor scope
//	rm       delete files from a visitor scope
//	zip      bundle files into an archive, optionally exporting it to S3
//
// Global flags are described in package config and may appear anywhere on
// the command line.
package cli
