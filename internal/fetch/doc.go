// Package fetch mediates every resource a document asks for while it renders.
//
// A reference found in markup resolves through exactly one channel:
//
//   - inline: a data: URI whose payload travels inside the reference
//   - local: a reference without a host, looked up in the request attachments
//   - network: a reference with a host, fetched only when the policy allows it
//
// The Guard records every refusal and returns it to the caller at once, so the
// rendering engine cannot quietly drop a missing image or stylesheet. Closing the
// Guard turns the recorded refusals into a single error.
package fetch
