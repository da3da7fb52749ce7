package hierarchy

// MaterializedShare stores, per level, the fraction of leaves every value covers.
type MaterializedShare struct {
	domainSize float64
	shares     []map[int]float64
}

func newMaterializedShare(h *Hierarchy) *MaterializedShare {
	counts := make([]map[int]int, h.Height())
	for level := range counts {
		counts[level] = make(map[int]int)
	}
	for _, row := range h.rows {
		for level, id := range row {
			counts[level][id]++
		}
	}

	size := float64(len(h.rows))
	shares := make([]map[int]float64, len(counts))
	for level, byID := range counts {
		shares[level] = make(map[int]float64, len(byID))
		for id, n := range byID {
			shares[level][id] = float64(n) / size
		}
	}
	return &MaterializedShare{domainSize: size, shares: shares}
}

// Share returns the fraction of the domain covered by value at level. Values
// unknown at that level are treated as covering the whole domain.
func (s *MaterializedShare) Share(value, level int) float64 {
	if level < 0 || level >= len(s.shares) {
		return 1
	}
	share, ok := s.shares[level][value]
	if !ok {
		return 1
	}
	return share
}

// DomainSize returns the number of leaves
func (s *MaterializedShare) DomainSize() float64 {
	return s.domainSize
}
