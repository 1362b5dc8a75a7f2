// Package codec holds the byte-level encodings shared by the protocol
// adapters: hex and big-integer arithmetic over strings, amount scaling,
// RLP, Keccak-256, EIP-55 checksums, Base58 (Bitcoin and XRPL alphabets),
// Base58Check, segwit Bech32 and Solana's compact-u16 length prefix.
//
// Every integer that may exceed 64 bits travels as *big.Int or as a
// decimal / 0x-hex string. Nothing in this package uses floating point.
package codec
