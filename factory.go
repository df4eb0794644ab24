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
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
)

// Factory creates and caches regridding operators. Building an
// operator requires an expensive weight computation, so the factory
// caches operators keyed by grid identities and method: repeated
// requests for the same key return the same operator, and concurrent
// requests for an in-flight key wait for and share the single build
// rather than triggering a second weight computation. If a build
// fails, all waiters receive the error and the key is left
// unpopulated so corrected inputs can retry.
//
// Configuration fields can only be changed before the first call to
// Regridder.
type Factory struct {
	// Calc computes weight matrices. If nil, a GeomCalculator is
	// used.
	Calc WeightCalculator

	// MemCacheSize is the number of operators held in the in-memory
	// LRU cache. The default is 100. Evicting an operator never
	// affects callers already holding it.
	MemCacheSize int

	// DiskCacheDir, if non-empty, names a directory where built
	// operators are persisted for reuse across processes.
	DiskCacheDir string

	cache    *requestcache.Cache
	initOnce sync.Once
}

type buildRequest struct {
	src, dst *Grid
	method   Method
}

func (f *Factory) init() {
	f.initOnce.Do(func() {
		if f.Calc == nil {
			f.Calc = new(GeomCalculator)
		}
		size := f.MemCacheSize
		if size <= 0 {
			size = 100
		}
		cacheFuncs := []requestcache.CacheFunc{
			requestcache.Deduplicate(), requestcache.Memory(size),
		}
		if f.DiskCacheDir != "" {
			cacheFuncs = append(cacheFuncs,
				requestcache.Disk(f.DiskCacheDir, requestcache.MarshalGob, requestcache.UnmarshalGob))
		}
		f.cache = requestcache.NewCache(f.build, runtime.GOMAXPROCS(0), cacheFuncs...)
	})
}

func (f *Factory) build(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(*buildRequest)
	m, err := f.Calc.Weights(ctx, req.src, req.dst, req.method)
	if err != nil {
		return nil, err
	}
	return NewRegridder(req.src, req.dst, req.method, m)
}

// Regridder returns an operator mapping src to dst under the given
// method, building one if no cached operator exists. Rebuilds happen
// only when a grid's identity changes (new geometry or mask), never
// on data changes.
//
// Each caller receives its own copy of the cached operator, sharing
// the underlying weight matrix, so apply-time settings (Norm, MDTol,
// CoverageTol) can be tuned per caller without reconfiguring other
// holders of the same key.
func (f *Factory) Regridder(ctx context.Context, src, dst *Grid, method Method) (*Regridder, error) {
	f.init()
	req := f.cache.NewRequest(ctx, &buildRequest{src: src, dst: dst, method: method},
		fmt.Sprintf("%s_%s_%s", src.Key(), dst.Key(), method))
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*Regridder).clone(), nil
}
