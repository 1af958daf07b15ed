package comments

import (
	"fmt"
	"testing"
	"time"
)

var base = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

func childIDs(f Forest, level []int) []string {
	out := make([]string, 0, len(level))
	for _, i := range level {
		out = append(out, f.Nodes[i].ID)
	}
	return out
}

func assertIDs(t *testing.T, got []string, want ...string) {
	t.Helper()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildTreeLinksAndRoots(t *testing.T) {
	entries := []Entry{
		{ID: "body", CreatedAt: at(0)},
		{ID: "r1", ParentID: "body", CreatedAt: at(1)},
		{ID: "orphan", ParentID: "gone", CreatedAt: at(2)},
		{ID: "top", CreatedAt: at(3)},
		{ID: "r2", ParentID: "r1", CreatedAt: at(4)},
	}
	f := BuildTree(entries, SortOld)

	assertIDs(t, childIDs(f, f.Roots), "body", "orphan", "top")
	assertIDs(t, childIDs(f, f.Nodes[0].Children), "r1")
	if f.Nodes[4].Depth != 2 || f.Nodes[4].Parent != 1 {
		t.Fatalf("r2 depth/parent = %d/%d", f.Nodes[4].Depth, f.Nodes[4].Parent)
	}
	if f.Nodes[2].Depth != 0 {
		t.Fatalf("orphan should be a root at depth 0, got %d", f.Nodes[2].Depth)
	}
}

func TestBuildTreeSortsEveryLevel(t *testing.T) {
	entries := []Entry{
		{ID: "root", CreatedAt: at(0)},
		{ID: "a", ParentID: "root", CreatedAt: at(1), Score: 1},
		{ID: "b", ParentID: "root", CreatedAt: at(2), Score: 7},
		{ID: "a1", ParentID: "a", CreatedAt: at(3), Score: 0},
		{ID: "a2", ParentID: "a", CreatedAt: at(4), Score: 5},
		{ID: "b1", ParentID: "b", CreatedAt: at(5), Score: -2},
		{ID: "b2", ParentID: "b", CreatedAt: at(6), Score: 3},
		{ID: "b2x", ParentID: "b2", CreatedAt: at(7), Score: 1},
		{ID: "b2y", ParentID: "b2", CreatedAt: at(8), Score: 4},
	}
	f := BuildTree(entries, SortBest)

	assertIDs(t, childIDs(f, f.Nodes[0].Children), "b", "a")
	assertIDs(t, childIDs(f, f.Nodes[1].Children), "a2", "a1")
	assertIDs(t, childIDs(f, f.Nodes[2].Children), "b2", "b1")
	assertIDs(t, childIDs(f, f.Nodes[6].Children), "b2y", "b2x")

	f = BuildTree(entries, SortNew)
	assertIDs(t, childIDs(f, f.Nodes[0].Children), "b", "a")
	assertIDs(t, childIDs(f, f.Nodes[1].Children), "a2", "a1")
	assertIDs(t, childIDs(f, f.Nodes[6].Children), "b2y", "b2x")

	f = BuildTree(entries, SortOld)
	assertIDs(t, childIDs(f, f.Nodes[0].Children), "a", "b")
	assertIDs(t, childIDs(f, f.Nodes[2].Children), "b1", "b2")
}

func TestBuildTreeSortsRoots(t *testing.T) {
	entries := []Entry{
		{ID: "first", CreatedAt: at(0), Score: 1},
		{ID: "second", CreatedAt: at(1), Score: 10},
	}
	assertIDs(t, childIDs(BuildTree(entries, SortBest), BuildTree(entries, SortBest).Roots), "second", "first")
	f := BuildTree(entries, SortOld)
	assertIDs(t, childIDs(f, f.Roots), "first", "second")
}

func TestBuildTreeCapsDepth(t *testing.T) {
	entries := make([]Entry, 0, 12)
	parent := ""
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("p%02d", i)
		entries = append(entries, Entry{ID: id, ParentID: parent, CreatedAt: at(i)})
		parent = id
	}
	f := BuildTree(entries, SortOld)
	if got := f.MaxTreeDepth(); got != MaxDepth {
		t.Fatalf("MaxTreeDepth() = %d, want %d", got, MaxDepth)
	}
	for i, n := range f.Nodes {
		want := min(i, MaxDepth)
		if n.Depth != want {
			t.Fatalf("node %s depth = %d, want %d", n.ID, n.Depth, want)
		}
	}
}

func TestBuildTreeBreaksParentCycles(t *testing.T) {
	entries := []Entry{
		{ID: "root", CreatedAt: at(0)},
		{ID: "x", ParentID: "y", CreatedAt: at(1)},
		{ID: "y", ParentID: "x", CreatedAt: at(2)},
		{ID: "self", ParentID: "self", CreatedAt: at(3)},
	}
	f := BuildTree(entries, SortOld)
	assertIDs(t, childIDs(f, f.Roots), "root", "x", "self")
	assertIDs(t, childIDs(f, f.Nodes[1].Children), "y")
	if f.Nodes[2].Depth != 1 {
		t.Fatalf("y depth = %d, want 1", f.Nodes[2].Depth)
	}
}

func TestBuildTreeEmpty(t *testing.T) {
	f := BuildTree(nil, SortBest)
	if len(f.Nodes) != 0 || len(f.Roots) != 0 {
		t.Fatalf("expected empty forest, got %+v", f)
	}
}

func TestParseSortMode(t *testing.T) {
	if m, err := ParseSortMode(""); err != nil || m != SortBest {
		t.Fatalf("default = %q, %v", m, err)
	}
	if m, err := ParseSortMode("OLD"); err != nil || m != SortOld {
		t.Fatalf("ParseSortMode(OLD) = %q, %v", m, err)
	}
	if _, err := ParseSortMode("hot"); err == nil {
		t.Fatal("expected error")
	}
}
