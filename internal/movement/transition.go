package movement

// Kind is the operation a transition resolves to.
type Kind int

const (
	NoOp Kind = iota
	Create
	Move
	Reorder
	Destroy
)

func (k Kind) String() string {
	switch k {
	case NoOp:
		return "noop"
	case Create:
		return "create"
	case Move:
		return "move"
	case Reorder:
		return "reorder"
	case Destroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// Transition pairs the persisted position of one node with the requested one.
// From is nil for a node that does not exist yet and To is nil for a node
// being removed.
type Transition struct {
	From *Position
	To   *Position
}

// NewTransition builds a transition from two snapshots.
func NewTransition(from, to *Position) Transition {
	return Transition{From: from, To: to}
}

// Kind classifies the transition.
func (t Transition) Kind() Kind {
	return Classify(t.From, t.To)
}

// DepthDelta is the change in depth the moving node undergoes.
func (t Transition) DepthDelta() int64 {
	if t.From == nil || t.To == nil {
		return 0
	}
	return t.To.Depth - t.From.Depth
}

// Classify resolves two snapshots to an operation kind without any I/O.
func Classify(from, to *Position) Kind {
	switch {
	case from == nil && to == nil:
		return NoOp
	case from == nil:
		return Create
	case to == nil:
		return Destroy
	case !SameParent(from.ParentID, to.ParentID):
		return Move
	case from.Position != to.Position:
		return Reorder
	default:
		return NoOp
	}
}
