package property

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/RafaelMicro/gospinel/spinel"
	"github.com/RafaelMicro/gospinel/spinellog"
)

// Descriptor is one registry entry: either a single format, or — for a
// property whose payload shape depends on NCP firmware/configuration, the
// canonical example being MAC_ALLOWLIST — an ordered list of candidate
// formats attempted until one decodes successfully.
type Descriptor struct {
	Format     string
	Candidates []string
}

// Result is what decoding a property payload produces.
type Result struct {
	Value   any
	Unknown bool // no registry entry; Value holds the raw payload bytes
	Null    bool // every candidate format failed to decode; Value is nil
}

// defaultDescriptors is the minimal built-in table: the properties spec.md
// names explicitly by behavior. A real deployment's full enumeration is
// merged in via Merge.
func defaultDescriptors() map[ID]Descriptor {
	return map[ID]Descriptor{
		PropLastStatus:      {Format: "i"},
		PropProtocolVersion: {Format: "ii"},
		PropNCPVersion:      {Format: "U"},
		PropInterfaceType:   {Format: "i"},
		PropVendorID:        {Format: "i"},
		PropCaps:            {Format: "A(i)"},
		// MAC_ALLOWLIST is polymorphic: an NCP may report a list of
		// (EUI-64, RSSI) pairs, a single (EUI-64, RSSI) pair, or a bare
		// EUI-64, depending on firmware. Candidates are attempted in
		// this fixed order; the property decodes to null if none match
		// (spec.md §4.3).
		PropMACAllowlist:     {Candidates: []string{"A(t(EC))", "EC", "E"}},
		PropThreadChildTable: {Format: "D"},
		// THREAD_ON_MESH_NETS decodes as raw bytes; the side effect of
		// also enqueuing it onto the prefix handler (spec.md §4.3) is
		// wired via Registry.OnMeshNetsSink, not via the format here.
		PropThreadOnMeshNets: {Format: "D"},
	}
}

// Registry maps property identifiers to the format they decode with, with
// vendor extensions merged in and compiled formats cached by format string
// (the "precompile" design note — caching by format string, rather than by
// property id, additionally lets properties that happen to share a format
// share one compiled tree).
type Registry struct {
	mu     sync.RWMutex
	table  map[ID]Descriptor
	log    spinellog.Logger
	cache  *lru.Cache
	cacheMu sync.Mutex

	// OnMeshNetsSink, if non-nil, receives the raw PROP_THREAD_ON_MESH_NETS
	// payload in addition to the decoded value being returned normally.
	// transaction.WithPrefixHandler wires this to the PrefixHandler's queue; the
	// registry itself never blocks on it and never calls it from more
	// than one goroutine concurrently with itself (the reader goroutine
	// owns Decode calls).
	OnMeshNetsSink func(raw []byte)
}

// NewRegistry builds a Registry pre-populated with the built-in
// descriptors. log may be spinellog.Discard.
func NewRegistry(log spinellog.Logger) *Registry {
	if log == nil {
		log = spinellog.Discard
	}
	return &Registry{
		table: defaultDescriptors(),
		log:   log,
		cache: lru.New(256),
	}
}

// Merge overlays extra onto the registry, overriding any colliding
// identifiers — this is the vendor extension hook spec.md §6 describes.
func (r *Registry) Merge(extra map[ID]Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range extra {
		r.table[id] = d
	}
}

func (r *Registry) descriptor(id ID) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.table[id]
	return d, ok
}

// compiled returns the cached Compiled tree for format, compiling and
// caching it on first use.
func (r *Registry) compiled(format string) (spinel.Compiled, error) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if v, ok := r.cache.Get(format); ok {
		return v.(spinel.Compiled), nil
	}
	c, err := spinel.Compile(format)
	if err != nil {
		return spinel.Compiled{}, err
	}
	r.cache.Add(format, c)
	return c, nil
}

// Decode decodes raw — the property payload with its leading varint
// property id already stripped by the caller (spec.md §4.3) — according to
// id's registered format.
func (r *Registry) Decode(id ID, raw []byte) (Result, error) {
	desc, ok := r.descriptor(id)
	if !ok {
		r.log.Warn("unknown property, passing through raw bytes", "property", id)
		cp := make([]byte, len(raw))
		copy(cp, raw)
		return Result{Value: cp, Unknown: true}, nil
	}

	if len(desc.Candidates) > 0 {
		for _, candidate := range desc.Candidates {
			c, err := r.compiled(candidate)
			if err != nil {
				return Result{}, fmt.Errorf("property %d: compiling candidate %q: %w", id, candidate, err)
			}
			value, _, err := c.Decode(raw)
			if err == nil {
				r.sideEffect(id, raw)
				return Result{Value: value}, nil
			}
		}
		r.log.Debug("all candidate formats failed, property decodes to null", "property", id)
		return Result{Null: true}, nil
	}

	c, err := r.compiled(desc.Format)
	if err != nil {
		return Result{}, fmt.Errorf("property %d: compiling format %q: %w", id, desc.Format, err)
	}
	value, _, err := c.Decode(raw)
	if err != nil {
		return Result{}, err
	}
	r.sideEffect(id, raw)
	return Result{Value: value}, nil
}

// Encode is the dual of Decode, for properties with a single (non-
// polymorphic) format — issuing a prop_set/insert/remove always targets one
// concrete shape, so polymorphic candidates don't apply on encode.
func (r *Registry) Encode(id ID, value any) ([]byte, error) {
	desc, ok := r.descriptor(id)
	if !ok || desc.Format == "" {
		return nil, fmt.Errorf("property %d has no single registered format to encode against", id)
	}
	c, err := r.compiled(desc.Format)
	if err != nil {
		return nil, err
	}
	return c.Encode(value)
}

func (r *Registry) sideEffect(id ID, raw []byte) {
	if id == PropThreadOnMeshNets && r.OnMeshNetsSink != nil {
		cp := make([]byte, len(raw))
		copy(cp, raw)
		r.OnMeshNetsSink(cp)
	}
}
