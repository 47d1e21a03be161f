// Package schema parses Avro schemas and exposes them as a tree of typed
// nodes.
//
// Parse accepts the JSON schema form (comments and trailing commas are
// tolerated), resolves named types and namespaces, and validates logical
// type annotations. Canonical renders the Parsing Canonical Form used for
// schema fingerprints.
//
//	s, err := schema.Parse([]byte(`{
//	    "type": "record",
//	    "name": "Point",
//	    "fields": [
//	        {"name": "x", "type": "int"},
//	        {"name": "y", "type": "int"}
//	    ]
//	}`))
//
// Invalid schemas produce *errors.Error values with PhaseParse.
package schema
