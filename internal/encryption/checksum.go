package encryption

import "hash/adler32"

// Checksum returns the Adler-32 value that prefixes checksummed frames.
func Checksum(data []byte) uint32 {
	return adler32.Checksum(data)
}
