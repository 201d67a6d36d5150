package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// TemplateCycle is one cycle found in a template library.
type TemplateCycle struct {
	Path    []string `json:"path"`    // e.g. ["state_template:A", "state_template:B", "state_template:A"]
	Message string   `json:"message"` // human-readable description
}

// Err converts the cycle into a config error.
func (c TemplateCycle) Err() *scene.ConfigError {
	return &scene.ConfigError{
		Code:     scene.ErrCodeTemplateCycle,
		Template: templateName(c.Path[0]),
		Message:  c.Message,
	}
}

// AnalyzeTemplateCycles performs static cycle analysis on a template library.
//
// Expansion already fails on the first cycle it walks into; this reports
// every cycle at once, including cycles in templates no scene uses.
//
// The algorithm:
//  1. Build the template → referenced templates graph (state templates may
//     reference both kinds, operation templates only operation templates)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// References to unknown templates are ignored here; compilation reports them.
// A library without cycles returns an empty list. Output is sorted.
func AnalyzeTemplateCycles(states []scene.StateTemplate, ops []scene.OperationTemplate) []TemplateCycle {
	graph := buildTemplateGraph(states, ops)
	if len(graph) == 0 {
		return []TemplateCycle{}
	}

	cycles := []TemplateCycle{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Message < cycles[j].Message })
	return cycles
}

// templateGraph maps a template node id to the node ids it references.
type templateGraph map[string][]string

func nodeID(kind templateKind, name string) string {
	return kind.String() + ":" + name
}

func templateName(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return id
}

func buildTemplateGraph(states []scene.StateTemplate, ops []scene.OperationTemplate) templateGraph {
	graph := make(templateGraph)
	known := make(map[string]bool)
	for _, t := range states {
		known[nodeID(stateTemplateKind, t.Name)] = true
	}
	for _, t := range ops {
		known[nodeID(operationTemplateKind, t.Name)] = true
	}

	addEdges := func(from string, refs []string) {
		if graph[from] == nil {
			graph[from] = []string{}
		}
		seen := make(map[string]bool)
		for _, to := range refs {
			if known[to] && !seen[to] {
				seen[to] = true
				graph[from] = append(graph[from], to)
			}
		}
		sort.Strings(graph[from])
	}

	for _, t := range states {
		addEdges(nodeID(stateTemplateKind, t.Name), handlerRefs(t.Handlers))
	}
	for _, t := range ops {
		addEdges(nodeID(operationTemplateKind, t.Name), operationRefs(t.Operations))
	}
	return graph
}

func handlerRefs(nodes []scene.HandlerNode) []string {
	var refs []string
	for _, node := range nodes {
		switch n := node.(type) {
		case *scene.TemplateRefNode:
			refs = append(refs, nodeID(stateTemplateKind, n.Template))
		case *scene.OperationsNode:
			refs = append(refs, operationRefs(n.Operations)...)
		case *scene.SubStatesNode:
			refs = append(refs, handlerRefs(n.SubStates)...)
		}
	}
	return refs
}

func operationRefs(defs []scene.OperationDef) []string {
	var refs []string
	for _, def := range defs {
		if ref, ok := def.(*scene.OpTemplateRef); ok {
			refs = append(refs, nodeID(operationTemplateKind, ref.Template))
		}
	}
	return refs
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph templateGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the output is deterministic.
func tarjanSCC(graph templateGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// sccToCycle converts an SCC to a TemplateCycle starting at its smallest node.
func sccToCycle(scc []string, graph templateGraph) TemplateCycle {
	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)

	if len(sorted) == 1 {
		id := sorted[0]
		return TemplateCycle{
			Path:    []string{id, id},
			Message: fmt.Sprintf("self-referencing template: %s → %s", id, id),
		}
	}

	path := reconstructCyclePath(sorted, graph)
	return TemplateCycle{
		Path:    path,
		Message: fmt.Sprintf("template cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: start at the first node, follow edges to unvisited SCC members,
// and close the path as soon as the start node is reachable again.
func reconstructCyclePath(scc []string, graph templateGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
