// Package errors provides structured error types for the avro-derive module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/Avro type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("user", "age").
//		GoType("int32").
//		AvroType("string").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FieldDuplicate(errors.PhaseDecode, path, "x")
//	err := errors.FieldMissing(errors.PhaseDecode, path, "y")
//
// Duplicate and missing field errors carry the offending field name in
// Error.Value; IsFieldDuplicate and IsFieldMissing extract it.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
