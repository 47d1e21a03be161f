// Package decode implements the recursive decode protocol for Avro data.
//
// A Decoder[T] receives one datum through the method matching its physical
// shape: records, unions, arrays and maps arrive as pull-style accessors
// whose elements are lazily decodable Fields; scalars, strings, bytes and
// logical types arrive as values. Nested data is decoded by handing a Field
// to another decoder with DecodeField, which is how record decoders compose.
//
// Two sources drive decoders. The binary source reads the Avro wire format
// against a writer schema (Decode, NewDatumReader). The materialized source
// walks a Value tree (DecodeValue); records built with RecordOf may repeat
// or omit fields and appear in any order, which the wire format cannot
// express.
//
// Anything a decoder leaves unread is skipped, so the binary cursor always
// lands on the next datum. Trivial skips a datum of any shape, and
// ValueDecoder materializes one.
package decode
