// Package ledger implements the append-only ticket ledger: transactions are
// buffered as pending, sealed into hash-chained blocks by proof-of-work, and
// projected into a ticket registry for constant-time lookups.
//
// # Core Components
//
// Transaction: one issue, transfer or redeem action on a ticket.
//
// Block: an ordered batch of transactions linked to the previous block by
// its hash and sealed with a nonce.
//
// Sealer: the proof-of-work search, optionally spread over several workers
// and bounded by a maximum nonce.
//
// Registry: the current owner and status of every ticket, maintained by
// applying each transaction as it is submitted.
//
// Ledger: the single handle owning chain, pending buffer and registry.
//
// # Integrity
//
// VerifyChain recomputes every hash and checks linkage and difficulty. The
// genesis block is the one block exempt from the difficulty predicate.
package ledger
