package grammar

type Terminal struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	Anonymous bool   `json:"anonymous"`
	Pattern   string `json:"pattern"`
	Skip      bool   `json:"skip"`
}

type NonTerminal struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type Item struct {
	Rule      int `json:"rule"`
	Dot       int `json:"dot"`
	LookAhead int `json:"look_ahead"`
}

type Transition struct {
	Symbol int `json:"symbol"`
	State  int `json:"state"`
}

type Reduce struct {
	LookAhead []int `json:"look_ahead"`
	Rule      int   `json:"rule"`
}

// Conflict is a cell of the action table with more than one candidate
// action. Adopted is the action kept by an override.
type Conflict struct {
	State      int       `json:"state"`
	Symbol     int       `json:"symbol"`
	Kind       string    `json:"kind"`
	Candidates []int     `json:"candidates"`
	Adopted    *int      `json:"adopted,omitempty"`
	ResolvedBy *Override `json:"resolved_by,omitempty"`
}

// Override picks the action of a cell that would otherwise conflict.
type Override struct {
	State  int        `json:"state"`
	Symbol string     `json:"symbol"`
	Action ActionKind `json:"action"`
	Target int        `json:"target"`
}

type State struct {
	Number    int           `json:"number"`
	Grounding int           `json:"grounding"`
	Items     []*Item       `json:"items"`
	Shift     []*Transition `json:"shift"`
	Reduce    []*Reduce     `json:"reduce"`
	GoTo      []*Transition `json:"goto"`
	Conflicts []*Conflict   `json:"conflicts"`
	Resolved  []*Conflict   `json:"resolved"`
}

type Report struct {
	Name         string         `json:"name"`
	Terminals    []*Terminal    `json:"terminals"`
	NonTerminals []*NonTerminal `json:"non_terminals"`
	Rules        []*Rule        `json:"rules"`
	States       []*State       `json:"states"`
	Warnings     []string       `json:"warnings"`
}
