package mission

type Type string

const (
	TypeBountyHunt     Type = "BOUNTY_HUNT"
	TypeDestroyStation Type = "DESTROY_STATION"
)

func (t Type) Valid() bool {
	return t == TypeBountyHunt || t == TypeDestroyStation
}

type State string

const (
	StatePending   State = "PENDING"
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateAborted   State = "ABORTED"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAborted
}

// Mission is one contract. Agent and targets are entity IDs resolved
// through the world on every evaluation.
type Mission struct {
	ID           string   `json:"id"`
	Template     string   `json:"template"`
	Type         Type     `json:"type"`
	Reward       int64    `json:"reward"`
	Delta        float64  `json:"delta"`
	Briefing     string   `json:"briefing,omitempty"`
	AgentID      string   `json:"agent_id"`
	AgentName    string   `json:"agent_name"`
	AgentFaction string   `json:"agent_faction"`
	Targets      []string `json:"targets"`
	State        State    `json:"state"`
	PreAborted   bool     `json:"pre_aborted,omitempty"`
}

// Board is the ordered set of active missions. Removal is idempotent.
type Board struct {
	missions []*Mission
}

func NewBoard() *Board {
	return &Board{}
}

// Add puts m on the board unless a mission with its ID is already there.
func (b *Board) Add(m *Mission) {
	if _, ok := b.Get(m.ID); ok {
		return
	}
	b.missions = append(b.missions, m)
}

func (b *Board) Remove(id string) bool {
	for i, m := range b.missions {
		if m.ID == id {
			b.missions = append(b.missions[:i], b.missions[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Board) Get(id string) (*Mission, bool) {
	for _, m := range b.missions {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Missions returns a copy of the board in insertion order.
func (b *Board) Missions() []*Mission {
	return append([]*Mission(nil), b.missions...)
}

func (b *Board) Len() int {
	return len(b.missions)
}

// Targets returns the IDs of every entity an active mission refers to.
func (b *Board) Targets() map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range b.missions {
		for _, id := range m.Targets {
			out[id] = struct{}{}
		}
	}
	return out
}
