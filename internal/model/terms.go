package model

// Terms is the negotiated term set for a room, stored as JSONB. Keys are
// schema-validated term names (commission percentages, flat fees, term
// length, exclusivity).
type Terms map[string]any

// Merge returns a new Terms with delta fields overwriting the receiver's and
// all other fields retained. Neither input is mutated.
func (t Terms) Merge(delta Terms) Terms {
	merged := make(Terms, len(t)+len(delta))
	for k, v := range t {
		merged[k] = v
	}
	for k, v := range delta {
		merged[k] = v
	}
	return merged
}

// Clone returns a shallow copy. Used for snapshots so later room mutations
// cannot reach back into a recorded original_terms_snapshot.
func (t Terms) Clone() Terms {
	if t == nil {
		return nil
	}
	out := make(Terms, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func (t Terms) IsEmpty() bool {
	return len(t) == 0
}
