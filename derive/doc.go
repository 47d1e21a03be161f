// Package derive builds Avro record decoders for Go struct types.
//
// A Compiler inspects a struct once and produces a Plan: one entry per field
// with its wire name and decode strategy. Strategies are chosen in this
// order:
//
//  1. factory=<name>: the raw field is handed to a factory registered with
//     RegisterFactory.
//  2. fields of type string are decoded as Avro strings; anything else on
//     the wire is a type_mismatch error.
//  3. everything else is decoded recursively with its type's own decoder:
//     a type registered with RegisterDecodable, a built-in decoder for
//     scalars and logical types, a pointer, slice or map of those, or
//     another derived struct.
//
// Struct tags control the mapping:
//
//	type Order struct {
//		_       derive.State[Limits]
//		ID      string    `avro:"id"`
//		Placed  time.Time `avro:"placed_at"`
//		Items   []Item    `avro:"items,state=itemLimits"`
//		Status  Status    `avro:"status,factory=parseStatus"`
//		scratch int       // unexported fields are ignored
//		Cached  string    `avro:"-"`
//	}
//
// The State marker declares the record's decode state type (Unit when
// absent). A recursive field whose decoder needs state must name a state
// function registered with RegisterStateFunc; it receives the parent's state
// when the field is decoded and returns the child's. All annotations are
// checked when the plan is compiled, never during a decode.
//
// A RecordDecoder executes a plan for one record. Wire fields arrive in any
// order; unknown fields are skipped, a repeated field fails with
// field_duplicate, and a field that never arrived fails with field_missing.
// Errors from factories and nested decoders are returned unchanged.
//
// Plans are cached per type and shared by all decoders, which are single-use
// and never shared. cmd/avroderive generates equivalent decoders ahead of
// time; generated types register themselves with Default.
package derive
