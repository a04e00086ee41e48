package domain

// PlanEntry is one step of a resolved install plan.
type PlanEntry struct {
	Formula *Formula

	// Bottle is filled in by the installer once selection has run for the
	// entry. It is the zero value for satisfied entries.
	Bottle BottleSpec

	// Satisfied marks packages whose installed record already meets every
	// constraint; the installer skips them.
	Satisfied bool
}

// Plan is a topologically ordered install plan: every dependency precedes
// each of its dependents, no formula appears twice, and the order is
// deterministic for a given formula set and request.
type Plan struct {
	Entries []PlanEntry
}

// Names returns the formula names in plan order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		names[i] = e.Formula.Name
	}
	return names
}

// Pending counts the entries that still need to be installed.
func (p *Plan) Pending() int {
	n := 0
	for _, e := range p.Entries {
		if !e.Satisfied {
			n++
		}
	}
	return n
}
