// Package avroderive decodes Avro data into Go structs through per-type
// decoders that are either derived at run time from struct tags or
// generated ahead of time.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	avroderive/
//	├── schema/          Avro schema model, JSON parser, canonical form, fingerprints
//	├── decode/          Decoder protocol, wire and materialized readers, built-in decoders
//	├── derive/          Decoder plans for struct types and the record decoder running them
//	├── container/       Object container file reader with concurrent block decoding
//	├── errors/          Structured error types naming the failing field
//	├── internal/gen     Source generator behind cmd/avroderive
//	├── cmd/avroderive/  go generate entry point
//	└── cmd/avrocat/     Container inspection tool
//
// # Quick Start
//
// Tag a struct and decode a datum:
//
//	type User struct {
//		ID    string    `avro:"id"`
//		Email string    `avro:"email"`
//		Seen  time.Time `avro:"last_seen"`
//	}
//
//	s, err := schema.ParseFile("user.avsc")
//	if err != nil {
//		return err
//	}
//	u, err := derive.Decode[User](data, s, nil)
//
// Fields arrive in any order. Unknown fields are skipped; a missing or
// repeated field fails with an error naming it:
//
//	if name, ok := errors.IsFieldMissing(err); ok {
//		log.Printf("record lacks %s", name)
//	}
//
// # Decode State
//
// A record can declare a state value its decoder carries, and each field
// can derive its child's state from it:
//
//	type Order struct {
//		_     derive.State[Limits]
//		Items ItemList `avro:"items,state=itemLimits"`
//	}
//
// # Generated Decoders
//
// Mark a type with //avro:derive and run avroderive to produce a decoder
// with the same behavior and no reflection on the hot path. Generated
// decoders register themselves with derive.Default, so run-time derived
// decoders use them for nested fields. See examples/orders.
package avroderive
