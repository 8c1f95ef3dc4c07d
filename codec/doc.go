// Package codec serializes contribution lists.
//
// The packed record layout (24-bit fixel index, 8-bit quantized length) is the
// only externally meaningful bit layout of a run, and a record is only
// decodable together with its quantization scale. A stream therefore carries
// the voxel diagonal in its header and stores records verbatim.
//
// # Format
//
// All integers are little-endian.
//
//	header: magic "FXTC" | version u8 | compression u8 | reserved u16 |
//	        diagonal f32 | list count u64
//	blocks: uncompressed size u32 | stored size u32 (0 = stored raw) |
//	        CRC32-C of the uncompressed bytes u32 | data
//
// The concatenated block payload holds, per list: total contribution f32,
// total length f32, record count uvarint, records u32 each.
//
// Blocks are compressed independently with LZ4 or ZSTD; a block that does not
// compress well is stored raw.
package codec
