package flow

import "github.com/hupe1980/toolagent/core"

// CheckCycles walks the static agent-as-tool graph reachable from root and
// returns a *core.CycleDetectedError if any agent can reach itself.
func CheckCycles(root FlowAgent) error {
	done := map[string]bool{}

	var visit func(a FlowAgent, stack []FlowAgent) error
	visit = func(a FlowAgent, stack []FlowAgent) error {
		for _, s := range stack {
			if s.ID() == a.ID() {
				names := make([]string, 0, len(stack)+1)
				for _, f := range stack {
					names = append(names, f.GetName())
				}
				return &core.CycleDetectedError{Stack: append(names, a.GetName())}
			}
		}
		if done[a.ID()] {
			return nil
		}

		next := make([]FlowAgent, len(stack), len(stack)+1)
		copy(next, stack)
		next = append(next, a)

		for _, t := range a.GetTools().Tools() {
			at, ok := t.(AgentTool)
			if !ok || at.Agent() == nil {
				continue
			}
			if err := visit(at.Agent(), next); err != nil {
				return err
			}
		}

		done[a.ID()] = true
		return nil
	}

	return visit(root, nil)
}
