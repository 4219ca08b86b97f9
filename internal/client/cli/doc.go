// Package cli provides the interactive S3Keeper command-line client.
//
// It wires configuration, local state, the storage driver and the client
// services, then runs a REPL over them. Typical flow: add a connection
// profile, make it active, pick a bucket, then browse, transfer and manage
// objects.
//
// Key features:
//   - Connection profiles with secrets encrypted under a master passphrase
//   - Bucket and object browsing with cached listings
//   - Copy / move / rename / delete
//   - Queued uploads with direct or multipart transfer, downloads
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
