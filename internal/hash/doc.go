// Package hash provides the checksum used to guard serialized contribution
// blocks.
//
// Checksums use CRC32-Castagnoli, which the standard library accelerates with
// SSE4.2 on x86-64 and the CRC extension on ARM64.
//
//	checksum := hash.CRC32C(block)
package hash
