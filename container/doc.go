// Package container reads Avro object container files.
//
// A file starts with the magic bytes "Obj\x01", a metadata map carrying the
// writer schema (avro.schema) and block codec (avro.codec), and a 16-byte
// sync marker. Blocks of datums follow, each compressed with the codec and
// terminated by the sync marker.
//
// Reader walks the blocks sequentially. ReadAll decodes every datum with a
// caller-supplied decoder, spreading blocks over a bounded set of workers
// while keeping results in file order:
//
//	r, err := container.NewReader(f, container.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	orders, err := container.ReadAll(ctx, r, func() (decode.Decoder[Order], error) {
//		return derive.NewDecoder[Order](nil)
//	})
package container
