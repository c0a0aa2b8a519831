package dialogue

import (
	"fmt"

	"github.com/m3rciful/minerva/internal/catalog"
	"github.com/m3rciful/minerva/internal/intent"
	"github.com/m3rciful/minerva/internal/session"
)

// Node describes one dialogue state: the closed set of replies it accepts
// and where the conversation goes when none of them apply.
type Node struct {
	State session.State
	// Options maps normalized replies to the next state.
	Options map[string]session.State
	// Help lists the accepted replies; shown after a reply is not understood.
	Help string
	// Fallback is the state kept when a reply is not understood.
	Fallback session.State
}

// Table is the transition table of the dialogue. It is read-only after BuildTable.
type Table struct {
	nodes map[session.State]Node
}

// BuildTable derives the table from the catalog: a start node whose options are
// the numeric shortcuts, one node per topic and the end node.
func BuildTable(reg *catalog.Registry) (*Table, error) {
	t := &Table{nodes: make(map[session.State]Node)}

	start := Node{
		State:    session.StateStart,
		Options:  make(map[string]session.State),
		Help:     reg.StartMenu(),
		Fallback: session.StateStart,
	}
	for _, topic := range reg.Topics() {
		if topic.Shortcut != "" {
			start.Options[intent.Normalize(topic.Shortcut)] = session.State(topic.Key)
		}
		st := session.State(topic.Key)
		t.nodes[st] = Node{
			State: st,
			Options: map[string]session.State{
				"sí": session.StateStart,
				"si": session.StateStart,
				"no": session.StateEnd,
			},
			Help:     topicOptionsHelp,
			Fallback: st,
		}
	}
	t.nodes[session.StateStart] = start
	t.nodes[session.StateEnd] = Node{
		State:    session.StateEnd,
		Fallback: session.StateStart,
	}

	if err := t.Validate(reg); err != nil {
		return nil, err
	}
	return t, nil
}

// Node returns the node for st.
func (t *Table) Node(st session.State) (Node, bool) {
	n, ok := t.nodes[st]
	return n, ok
}

// Validate checks the table is complete: every topic has a node, every node has
// a fallback, and every option and fallback points at a known state.
func (t *Table) Validate(reg *catalog.Registry) error {
	for _, st := range []session.State{session.StateStart, session.StateEnd} {
		if _, ok := t.nodes[st]; !ok {
			return fmt.Errorf("dialogue: table has no %q node", st)
		}
	}
	for _, k := range catalog.Keys {
		if !reg.Has(k) {
			return fmt.Errorf("dialogue: %w: %q", catalog.ErrUnknownTopic, k)
		}
		if _, ok := t.nodes[session.State(k)]; !ok {
			return fmt.Errorf("dialogue: table has no node for topic %q", k)
		}
	}
	for st, n := range t.nodes {
		if st != session.StateStart && st != session.StateEnd && !reg.Has(catalog.Key(st)) {
			return fmt.Errorf("dialogue: node %q is neither a topic nor a sentinel", st)
		}
		if n.Fallback == "" {
			return fmt.Errorf("dialogue: node %q has no fallback", st)
		}
		if _, ok := t.nodes[n.Fallback]; !ok {
			return fmt.Errorf("dialogue: node %q falls back to unknown state %q", st, n.Fallback)
		}
		for input, next := range n.Options {
			if input == "" {
				return fmt.Errorf("dialogue: node %q has an empty option", st)
			}
			if _, ok := t.nodes[next]; !ok {
				return fmt.Errorf("dialogue: node %q option %q targets unknown state %q", st, input, next)
			}
		}
	}
	return nil
}
