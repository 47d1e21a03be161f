package main

import (
	"context"
	"errors"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/avro-derive/container"
	"github.com/wippyai/avro-derive/decode"
	"github.com/wippyai/avro-derive/schema"
)

// source is a decoded input file.
type source struct {
	schema   schema.Schema
	meta     map[string][]byte
	name     string
	codec    string
	records  []decode.Value
	blocks   int
	datums   int64
	diskSize int64
	dataSize int64
}

type loadOptions struct {
	logger   *zap.Logger
	maxBlock int64
	limit    int
	workers  int
	// countOnly walks every block without decoding datums.
	countOnly bool
}

func newValueDecoder() (decode.Decoder[decode.Value], error) {
	return decode.ValueDecoder{}, nil
}

func loadContainer(ctx context.Context, path string, opts loadOptions) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := container.NewReader(f, container.Options{
		MaxBlockBytes: opts.maxBlock,
		Workers:       opts.workers,
		Logger:        opts.logger,
	})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	src := &source{
		name:   path,
		schema: r.Schema(),
		meta:   r.Metadata(),
		codec:  r.Codec().Name(),
	}

	if opts.limit == 0 && opts.workers > 1 && !opts.countOnly {
		src.records, err = container.ReadAll(ctx, r, newValueDecoder)
		if err != nil {
			return nil, err
		}
		src.datums = int64(len(src.records))
		return src, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := r.NextBlock()
		if errors.Is(err, io.EOF) {
			return src, nil
		}
		if err != nil {
			return nil, err
		}
		src.blocks++
		src.datums += b.Count
		src.diskSize += b.Size
		src.dataSize += int64(len(b.Data))
		if opts.countOnly {
			continue
		}

		dr := b.Datums()
		for range b.Count {
			if opts.limit > 0 && len(src.records) >= opts.limit {
				return src, nil
			}
			v, err := decode.ReadNext[decode.Value](dr, decode.ValueDecoder{})
			if err != nil {
				return nil, err
			}
			src.records = append(src.records, v)
		}
	}
}

func loadRaw(path, schemaPath string, opts loadOptions) (*source, error) {
	s, err := schema.ParseFile(schemaPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	src := &source{
		name:     path,
		schema:   s,
		codec:    container.CodecNull,
		diskSize: int64(len(data)),
		dataSize: int64(len(data)),
	}
	dr := decode.NewDatumReader(data, s)
	for dr.More() {
		if opts.limit > 0 && len(src.records) >= opts.limit {
			break
		}
		if opts.countOnly {
			if err := dr.SkipNext(); err != nil {
				return nil, err
			}
			src.datums++
			continue
		}
		v, err := decode.ReadNext[decode.Value](dr, decode.ValueDecoder{})
		if err != nil {
			return nil, err
		}
		src.records = append(src.records, v)
		src.datums++
	}
	return src, nil
}

func defaultWorkers() int {
	return container.DefaultOptions().Workers
}
