package hierarchy

// MergeChain overlays the chain's records root to leaf and returns the merged
// top-level map. The merge is shallow: a child's value for a key fully
// replaces the parent's value, including nested maps.
func MergeChain(chain *Chain) map[string]Value {
	out := make(map[string]Value)
	for _, rec := range chain.Records {
		for k, v := range rec.Data {
			out[k] = v
		}
	}
	return out
}

// MergePatch applies patch onto base with the same shallow top-level-key
// semantics as MergeChain and returns a new map. Neither input is mutated.
func MergePatch(base, patch map[string]Value) map[string]Value {
	out := make(map[string]Value, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
