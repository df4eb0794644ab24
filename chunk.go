/*
Copyright © 2026 the Regrid authors.
This file is part of Regrid.

Regrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Regrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Regrid.  If not, see <http://www.gnu.org/licenses/>.*/

package regrid

import (
	"context"
	"runtime"
	"sync"

	"github.com/ctessum/sparse"
)

// ChunkResult is the regridded output for one chunk of the leading
// (non-spatial) axes of an input array.
type ChunkResult struct {
	// Offset is the chunk's starting index along the flattened
	// leading axes.
	Offset int

	// Values and Valid have shape {chunk length} + DstShape.
	Values *sparse.DenseArray
	Valid  *sparse.DenseArrayInt

	Err error
}

// ApplyChunkStream lazily regrids data chunk by chunk, bounding peak
// memory: the leading axes are flattened and split into contiguous
// chunks of at most chunkSize slabs (chunkSize <= 0 means one chunk
// for everything), and each chunk is regridded on a worker pool as
// it is consumed. Chunks are emitted in completion order and carry
// their offsets; evaluation order never affects content. The
// channel closes when all chunks are done.
//
// Cancelling ctx stops further chunks from being issued; partially
// computed chunks are discarded. The regridder itself holds no state
// from the stream, so the same data can be re-applied afterwards.
func (r *Regridder) ApplyChunkStream(ctx context.Context, data *sparse.DenseArray, chunkSize int, fill float64) (<-chan ChunkResult, error) {
	r.fix()
	extra, err := r.checkShape(data.Shape)
	if err != nil {
		return nil, err
	}
	nExtra := prod(extra)
	nSrc := prod(r.SrcShape)
	if chunkSize <= 0 || chunkSize > nExtra {
		chunkSize = nExtra
	}

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for lo := 0; lo < nExtra; lo += chunkSize {
			select {
			case jobs <- lo:
			case <-ctx.Done():
				return
			}
		}
	}()

	out := make(chan ChunkResult)
	var wg sync.WaitGroup
	nprocs := runtime.GOMAXPROCS(0)
	for procnum := 0; procnum < nprocs; procnum++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for lo := range jobs {
				hi := lo + chunkSize
				if hi > nExtra {
					hi = nExtra
				}
				chunk := sparse.ZerosDense(append([]int{hi - lo}, r.SrcShape...)...)
				chunk.Elements = data.Elements[lo*nSrc : hi*nSrc]
				values, valid, err := r.Apply(chunk, fill)
				select {
				case out <- ChunkResult{Offset: lo, Values: values, Valid: valid, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// ApplyChunked regrids data in chunks of at most chunkSize leading
// slabs and assembles the per-chunk results back into a single
// output, positioned by chunk offset. The result is identical to
// Apply regardless of chunk size or completion order.
func (r *Regridder) ApplyChunked(ctx context.Context, data *sparse.DenseArray, chunkSize int, fill float64) (*sparse.DenseArray, *sparse.DenseArrayInt, error) {
	extra, err := r.checkShape(data.Shape)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := r.ApplyChunkStream(ctx, data, chunkSize, fill)
	if err != nil {
		return nil, nil, err
	}

	nTgt := prod(r.DstShape)
	out := sparse.ZerosDense(append(append([]int{}, extra...), r.DstShape...)...)
	valid := sparse.ZerosDenseInt(append(append([]int{}, extra...), r.DstShape...)...)
	n := 0
	for res := range results {
		if res.Err != nil {
			cancel()
			return nil, nil, res.Err
		}
		copy(out.Elements[res.Offset*nTgt:], res.Values.Elements)
		copy(valid.Elements[res.Offset*nTgt:], res.Valid.Elements)
		n += len(res.Values.Elements)
	}
	if err := ctx.Err(); err != nil && n != len(out.Elements) {
		return nil, nil, err
	}
	return out, valid, nil
}
