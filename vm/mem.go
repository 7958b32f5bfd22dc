package vm

import (
	"context"

	"github.com/rune-rs/rune/runtime/limit"
	"github.com/rune-rs/rune/value"
)

// retain/release keep the bookkeeping half of spec.md §9's refcounted,
// no-cycle-collector value model honest even though Go's own GC reclaims
// the backing memory regardless: every Copy/Dup of a heap value bumps
// its Shared cell's count, every Pop/Drop/Clean drops it, so a host
// embedding package vm and calling Shared.DecRef itself sees the same
// counts spec.md promises.
func (m *VM) retain(v value.Value) {
	switch v.Kind() {
	case value.KindString:
		if s, ok := v.AsString(); ok {
			s.IncRef()
		}
	case value.KindBytes:
		if s, ok := v.AsBytes(); ok {
			s.IncRef()
		}
	case value.KindVec:
		if s, ok := v.AsVec(); ok {
			s.IncRef()
		}
	case value.KindTuple:
		if s, ok := v.AsTuple(); ok {
			s.IncRef()
		}
	case value.KindObject:
		if s, ok := v.AsObject(); ok {
			s.IncRef()
		}
	case value.KindRange:
		if s, ok := v.AsRange(); ok {
			s.IncRef()
		}
	case value.KindFunction:
		if s, ok := v.AsFunction(); ok {
			s.IncRef()
		}
	case value.KindFormat:
		if s, ok := v.AsFormat(); ok {
			s.IncRef()
		}
	case value.KindTupleStruct:
		if _, s, ok := v.AsTupleStruct(); ok {
			s.IncRef()
		}
	case value.KindStruct:
		if _, s, ok := v.AsStruct(); ok {
			s.IncRef()
		}
	case value.KindVariant:
		if _, _, tup, obj, ok := v.AsVariant(); ok {
			if tup != nil {
				tup.IncRef()
			}
			if obj != nil {
				obj.IncRef()
			}
		}
	case value.KindAny:
		if s, ok := v.AsAny(); ok {
			s.IncRef()
		}
	}
}

func (m *VM) release(v value.Value) {
	switch v.Kind() {
	case value.KindString:
		if s, ok := v.AsString(); ok {
			s.DecRef()
		}
	case value.KindBytes:
		if s, ok := v.AsBytes(); ok {
			s.DecRef()
		}
	case value.KindVec:
		if s, ok := v.AsVec(); ok {
			s.DecRef()
		}
	case value.KindTuple:
		if s, ok := v.AsTuple(); ok {
			s.DecRef()
		}
	case value.KindObject:
		if s, ok := v.AsObject(); ok {
			s.DecRef()
		}
	case value.KindRange:
		if s, ok := v.AsRange(); ok {
			s.DecRef()
		}
	case value.KindFunction:
		if s, ok := v.AsFunction(); ok {
			s.DecRef()
		}
	case value.KindFormat:
		if s, ok := v.AsFormat(); ok {
			s.DecRef()
		}
	case value.KindTupleStruct:
		if _, s, ok := v.AsTupleStruct(); ok {
			s.DecRef()
		}
	case value.KindStruct:
		if _, s, ok := v.AsStruct(); ok {
			s.DecRef()
		}
	case value.KindVariant:
		if _, _, tup, obj, ok := v.AsVariant(); ok {
			if tup != nil {
				tup.DecRef()
			}
			if obj != nil {
				obj.DecRef()
			}
		}
	case value.KindAny:
		if s, ok := v.AsAny(); ok {
			s.DecRef()
		}
	}
}

// chargeAlloc charges n units (one per heap-allocating construction,
// regardless of its actual size) against ctx's installed budget, raising
// Panic on overflow. A VM with no budget configured never installs one
// on ctx, so limit.Take is a no-op per runtime/limit's nil-safe design.
func (m *VM) chargeAlloc(ctx context.Context, n int64) error {
	if err := limit.Take(ctx, n); err != nil {
		return newPanic("memory limit exceeded")
	}
	return nil
}
