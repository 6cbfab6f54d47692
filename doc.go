// Package webmail implements a self-hosted webmail backend built on
// per-mailbox single-writer actors.
//
// Each mailbox owns a private embedded SQLite database, accessed by at most
// one actor instance whose operations are serialized by the service's
// registry. A singleton auth actor owns users, sessions and mailbox grants
// the same way. Attachment bytes and mailbox settings live in an external
// blob store (see the blob package and its memory, s3 and gcs backends).
//
// Create a service with functional options, connect it, and either use the
// typed operation helpers or run closures against an actor:
//
//	svc, err := webmail.New(
//		webmail.WithDataDir("/var/lib/webmail"),
//		webmail.WithBlobStore(blobStore),
//	)
//	if err != nil { ... }
//	if err := svc.Connect(ctx); err != nil { ... }
//	defer svc.Close(ctx)
//
//	err = svc.Mailbox(ctx, "team-a", func(mb *mailbox.Actor) error {
//		folders, err := mb.Folders(ctx)
//		...
//	})
//
// The HTTP surface is provided by the gateway package and the server binary
// by cmd/webmaild.
package webmail
