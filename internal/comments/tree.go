// Package comments turns a thread's flat reply list into a sorted, depth-capped forest
// and guards the depth cap on insert.
package comments

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// MaxDepth is the deepest nesting level a reply may sit at. Roots are depth 0.
const MaxDepth = 6

type SortMode string

const (
	SortBest SortMode = "best"
	SortNew  SortMode = "new"
	SortOld  SortMode = "old"
)

var ErrInvalidSortMode = errors.New("sort must be best, new or old")

func ParseSortMode(value string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortBest:
		return SortBest, nil
	case SortNew:
		return SortNew, nil
	case SortOld:
		return SortOld, nil
	default:
		return "", ErrInvalidSortMode
	}
}

// Entry is the part of a post the tree needs.
type Entry struct {
	ID        string
	ParentID  string
	CreatedAt time.Time
	Score     int
}

type Node struct {
	Entry
	Depth    int
	Parent   int
	Children []int
}

// Forest addresses nodes by index. Nodes[i] corresponds to the i-th input entry.
type Forest struct {
	Nodes []Node
	Roots []int
}

// BuildTree links entries by parent id and sorts every level according to mode.
// Entries are expected in created_at ascending order. An entry whose parent is empty,
// itself, or absent from the list becomes a root.
func BuildTree(entries []Entry, mode SortMode) Forest {
	nodes := make([]Node, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		nodes[i] = Node{Entry: e, Parent: -1}
		if _, dup := index[e.ID]; !dup {
			index[e.ID] = i
		}
	}

	roots := make([]int, 0)
	for i := range nodes {
		p, ok := index[nodes[i].ParentID]
		if nodes[i].ParentID == "" || !ok || p == i {
			roots = append(roots, i)
			continue
		}
		nodes[i].Parent = p
		nodes[p].Children = append(nodes[p].Children, i)
	}

	reached := make([]bool, len(nodes))
	assignDepths(nodes, roots, reached)

	// Parent cycles are unreachable from any root; cut them loose at their first member.
	promoted := false
	for i := range nodes {
		if reached[i] {
			continue
		}
		detach(nodes, i)
		roots = append(roots, i)
		assignDepths(nodes, []int{i}, reached)
		promoted = true
	}
	if promoted {
		sort.Ints(roots)
	}

	less := comparator(nodes, mode)
	sortLevel(roots, less)
	for i := range nodes {
		sortLevel(nodes[i].Children, less)
	}
	return Forest{Nodes: nodes, Roots: roots}
}

func assignDepths(nodes []Node, start []int, reached []bool) {
	queue := append([]int(nil), start...)
	for _, r := range start {
		reached[r] = true
		nodes[r].Depth = 0
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range nodes[cur].Children {
			if reached[c] {
				continue
			}
			reached[c] = true
			nodes[c].Depth = min(nodes[cur].Depth+1, MaxDepth)
			queue = append(queue, c)
		}
	}
}

func detach(nodes []Node, i int) {
	p := nodes[i].Parent
	if p < 0 {
		return
	}
	kids := nodes[p].Children
	for k, c := range kids {
		if c == i {
			nodes[p].Children = append(kids[:k:k], kids[k+1:]...)
			break
		}
	}
	nodes[i].Parent = -1
}

func comparator(nodes []Node, mode SortMode) func(a, b int) bool {
	switch mode {
	case SortNew:
		return func(a, b int) bool { return nodes[a].CreatedAt.After(nodes[b].CreatedAt) }
	case SortOld:
		return func(a, b int) bool { return nodes[a].CreatedAt.Before(nodes[b].CreatedAt) }
	default:
		return func(a, b int) bool { return nodes[a].Score > nodes[b].Score }
	}
}

func sortLevel(level []int, less func(a, b int) bool) {
	sort.SliceStable(level, func(i, j int) bool { return less(level[i], level[j]) })
}

// MaxTreeDepth reports the deepest node depth in the forest.
func (f Forest) MaxTreeDepth() int {
	deepest := 0
	for _, n := range f.Nodes {
		if n.Depth > deepest {
			deepest = n.Depth
		}
	}
	return deepest
}
