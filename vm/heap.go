package vm

import (
	"time"

	"github.com/tliron/commonlog"
)

// stringObjectOverhead is the fixed per-object size estimate added to the
// string payload length for allocation accounting.
const stringObjectOverhead = 32

// DefaultGCThreshold is the initial collection threshold in accounted bytes.
const DefaultGCThreshold = 1024

// stringObject is a heap-allocated boxed string. Objects are owned
// collectively by the heap, never by individual Values.
type stringObject struct {
	marked bool
	size   int
	data   string
}

// GCStats holds statistics from a single collection cycle.
type GCStats struct {
	Swept          int
	Live           int
	BytesAllocated int
	Duration       time.Duration
}

// Heap owns every object allocated during a VM run and reclaims the ones
// no longer reachable from the operand stack with a mark-sweep collector.
// Objects live in a handle-keyed table; unlinking during sweep is O(1) per
// object and handles held by surviving Values stay valid across cycles.
//
// Allocation failure in the underlying allocator is not recoverable: the
// Go runtime aborts the process, which is the intended fatal behavior.
type Heap struct {
	objects        map[Handle]*stringObject
	nextHandle     Handle
	bytesAllocated int
	nextGC         int

	collections int
	log         commonlog.Logger
}

// NewHeap creates an empty heap with the default collection threshold.
func NewHeap() *Heap {
	return NewHeapWithThreshold(DefaultGCThreshold)
}

// NewHeapWithThreshold creates an empty heap with the given initial
// collection threshold. Non-positive thresholds fall back to the default.
func NewHeapWithThreshold(threshold int) *Heap {
	if threshold <= 0 {
		threshold = DefaultGCThreshold
	}
	return &Heap{
		objects: make(map[Handle]*stringObject),
		nextGC:  threshold,
		log:     commonlog.GetLogger("loxa.gc"),
	}
}

// Alloc boxes a string on the heap and returns its handle. If the
// allocation would push accounted bytes past the collection threshold, a
// collection runs first using the given root slots.
func (h *Heap) Alloc(s string, roots []Value) Handle {
	need := len(s) + stringObjectOverhead
	if h.bytesAllocated+need > h.nextGC {
		h.Collect(roots)
	}

	h.nextHandle++
	handle := h.nextHandle
	h.objects[handle] = &stringObject{size: need, data: s}
	h.bytesAllocated += need
	return handle
}

// Get returns the string content for a handle, or false if the handle does
// not refer to a live object.
func (h *Heap) Get(handle Handle) (string, bool) {
	obj, ok := h.objects[handle]
	if !ok {
		return "", false
	}
	return obj.data, true
}

// mustGet returns the content for a handle that is known to be live.
// A miss means a Value survived its object, which the collector's root
// marking is supposed to make impossible.
func (h *Heap) mustGet(handle Handle) string {
	obj, ok := h.objects[handle]
	if !ok {
		panic("heap: dangling string handle")
	}
	return obj.data
}

// Collect runs one mark-sweep cycle against the given root slots and
// returns its statistics. Reachability is computed from the roots only;
// boxed strings hold no outbound references, so there is no transitive
// tracing step beyond root marking.
func (h *Heap) Collect(roots []Value) GCStats {
	start := time.Now()

	// Mark
	for _, v := range roots {
		if v.IsString() {
			if obj, ok := h.objects[v.Handle()]; ok {
				obj.marked = true
			}
		}
	}

	// Sweep
	swept := 0
	for handle, obj := range h.objects {
		if obj.marked {
			obj.marked = false
			continue
		}
		delete(h.objects, handle)
		h.bytesAllocated -= obj.size
		swept++
	}

	h.nextGC = h.bytesAllocated * 2
	h.collections++

	stats := GCStats{
		Swept:          swept,
		Live:           len(h.objects),
		BytesAllocated: h.bytesAllocated,
		Duration:       time.Since(start),
	}
	h.log.Debugf("collection %d: swept %d, live %d, %d bytes, next threshold %d",
		h.collections, stats.Swept, stats.Live, stats.BytesAllocated, h.nextGC)
	return stats
}

// BytesAllocated returns the accounted size of all live objects.
func (h *Heap) BytesAllocated() int {
	return h.bytesAllocated
}

// ObjectCount returns the number of live heap objects.
func (h *Heap) ObjectCount() int {
	return len(h.objects)
}

// Collections returns the total number of collection cycles performed.
func (h *Heap) Collections() int {
	return h.collections
}

// ---------------------------------------------------------------------------
// Heap-dependent value operations
// ---------------------------------------------------------------------------

// ValuesEqual reports structural equality: tags must match; Bool and Int
// by value, Float by bit-for-bit double equality, strings by content,
// nil always equal to nil.
func (h *Heap) ValuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindString:
		return h.mustGet(a.Handle()) == h.mustGet(b.Handle())
	default:
		return a.bits == b.bits
	}
}

// FormatValue returns the textual form of a value. Strings print as their
// content wrapped in double quotes; other kinds follow Value formatting.
func (h *Heap) FormatValue(v Value) string {
	if v.IsString() {
		return "\"" + h.mustGet(v.Handle()) + "\""
	}
	return v.format()
}
