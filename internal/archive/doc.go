// Package archive mirrors sealed blocks to external storage for offline
// audit. Two backends are provided: Redis lists of CBOR-encoded blocks and
// a PocketBase collection of JSON payloads.
//
// Every chain is archived under its chain id, the hash of its genesis
// block, so successive runs of the node never interleave. Archives are
// append-only and do not validate what they return; auditors replay the
// loaded blocks through a fresh ledger, which re-verifies every block.
package archive
