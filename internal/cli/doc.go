// Package cli provides the interactive gophdrive command-line client.
//
// It wires configuration, the local file store, the handle manager and its
// loopback server, and an interactive REPL. Typical flow: open the store,
// start the handle server in the background, then execute user commands
// until the user exits or the process is interrupted.
//
// Key features:
//   - Add files, one or many at a time
//   - List / Search / Info / Stats
//   - Download to a local directory and preview images through handles
//   - Delete single files or clear the whole store, with confirmation
//
// The REPL is started via App.Run(ctx), which blocks until the session ends.
// See App and runREPL for details.
package cli
