package container

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/avro-derive/decode"
	averrors "github.com/wippyai/avro-derive/errors"
)

// ReadAll decodes every remaining datum in r. Blocks are decoded
// concurrently by Options.Workers goroutines and the results are returned
// in file order. newDecoder is called once per datum; decoders are never
// shared between datums.
func ReadAll[T any](ctx context.Context, r *Reader, newDecoder func() (decode.Decoder[T], error)) ([]T, error) {
	g, ctx := errgroup.WithContext(ctx)
	blocks := make(chan *Block)

	var (
		mu    sync.Mutex
		parts [][]T
	)

	g.Go(func() error {
		defer close(blocks)
		for {
			b, err := r.NextBlock()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case blocks <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	for range r.opts.Workers {
		g.Go(func() error {
			for b := range blocks {
				if err := ctx.Err(); err != nil {
					return err
				}
				out, err := decodeBlock(b, newDecoder)
				if err != nil {
					return err
				}
				mu.Lock()
				for len(parts) <= b.Index {
					parts = append(parts, nil)
				}
				parts[b.Index] = out
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, p := range parts {
		total += len(p)
	}
	all := make([]T, 0, total)
	for _, p := range parts {
		all = append(all, p...)
	}
	r.logger.Debug("decoded container",
		zap.Int("blocks", len(parts)),
		zap.Int("datums", total))
	return all, nil
}

func decodeBlock[T any](b *Block, newDecoder func() (decode.Decoder[T], error)) ([]T, error) {
	dr := b.Datums()
	out := make([]T, 0, min(b.Count, int64(len(b.Data))))
	for range b.Count {
		d, err := newDecoder()
		if err != nil {
			return nil, err
		}
		v, err := decode.ReadNext(dr, d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if dr.More() {
		return nil, averrors.New(averrors.PhaseContainer, averrors.KindInvalidData).
			Detail("block %d: %d bytes after %d datums", b.Index, dr.Remaining(), b.Count).
			Build()
	}
	return out, nil
}
