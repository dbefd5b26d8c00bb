package classifier

// Table maps keywords to weighted domain associations. Classification walks
// the query's tokens and accumulates the weight of every distinct keyword
// hit per domain.
type Table struct {
	associations map[string][]Association
}

// Association binds a keyword to a domain with a weight.
type Association struct {
	Domain string
	Weight float64
}

// NewTable builds a Table from a keyword -> associations map. The map is
// copied so callers cannot mutate the table after construction.
func NewTable(associations map[string][]Association) *Table {
	copied := make(map[string][]Association, len(associations))
	for kw, assocs := range associations {
		copied[kw] = append([]Association(nil), assocs...)
	}
	return &Table{associations: copied}
}

const defaultKeywordWeight = 0.3

// DefaultTable returns the stock association table covering the nine
// specialist domains.
func DefaultTable() *Table {
	domains := map[string][]string{
		"architecture": {
			"system", "design", "infrastructure", "scalability", "architecture",
			"api", "database", "backend", "frontend", "deployment", "container",
			"docker", "kubernetes", "microservice", "pattern", "structure",
			"framework", "technical",
		},
		"wisdom": {
			"wisdom", "philosophy", "ethics", "meaning", "purpose", "contemplate",
			"should", "ought", "value", "principle", "moral", "understand",
			"deeper", "essence", "nature",
		},
		"security": {
			"security", "vulnerability", "threat", "attack", "protect", "defense",
			"encryption", "authentication", "authorization", "risk", "secure",
			"safety", "breach", "exploit",
		},
		"transformation": {
			"change", "transform", "adapt", "evolve", "transition", "shift",
			"migration", "refactor", "upgrade", "modernize", "improvement",
			"optimization", "enhancement",
		},
		"timing": {
			"when", "timing", "schedule", "deadline", "moment", "opportunity",
			"urgency", "priority", "sequence", "phase",
		},
		"strategy": {
			"strategy", "plan", "coordinate", "organize", "approach", "tactic",
			"roadmap", "goal", "objective", "milestone", "execution",
			"implementation", "management",
		},
		"communication": {
			"communicate", "message", "dialogue", "conversation", "speak",
			"explain", "clarify", "articulate", "express", "convey", "harmony",
			"conflict", "negotiate", "persuade",
		},
		"protection": {
			"guard", "maintain", "integrity", "boundary", "validate", "verify",
			"check", "monitor", "watch", "health", "stability", "reliability",
		},
		"synthesis": {
			"integrate", "combine", "synthesize", "unify", "merge", "holistic",
			"comprehensive", "collective", "together", "perspectives",
		},
	}

	associations := make(map[string][]Association)
	for domain, keywords := range domains {
		for _, kw := range keywords {
			associations[kw] = append(associations[kw], Association{
				Domain: domain,
				Weight: defaultKeywordWeight,
			})
		}
	}
	return NewTable(associations)
}
