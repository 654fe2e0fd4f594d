// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestDepths_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	depths, err := g.Depths(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(depths) != 0 {
		t.Errorf("expected no depths, got %v", depths)
	}
}

func TestDepths_SingleNode(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	depths, err := g.Depths(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depths["A"] != 1 {
		t.Errorf("expected depth 1, got %d", depths["A"])
	}
}

func TestDepths_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// A requires B, B requires C.
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	depths, err := g.Depths(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for node, want := range map[string]int{"A": 3, "B": 2, "C": 1} {
		if depths[node] != want {
			t.Errorf("depth(%s) = %d, want %d", node, depths[node], want)
		}
	}
}

func TestDepths_LongestChainWins(t *testing.T) {
	t.Parallel()
	g := New()
	// A requires both a short and a long chain.
	g.AddEdge("A", "short")
	g.AddEdge("A", "long1")
	g.AddEdge("long1", "long2")
	g.AddEdge("long2", "long3")

	depths, err := g.Depths(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depths["A"] != 4 {
		t.Errorf("depth(A) = %d, want 4", depths["A"])
	}
	if depths["short"] != 1 {
		t.Errorf("depth(short) = %d, want 1", depths["short"])
	}
}

func TestDepths_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	depths, err := g.Depths(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depths["A"] != 3 || depths["B"] != 2 || depths["C"] != 2 || depths["D"] != 1 {
		t.Errorf("unexpected depths %v", depths)
	}
}

func TestDepths_SimpleCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.Depths(0)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if !slices.Equal(cycleErr.Cycle, []string{"A", "B", "A"}) {
		t.Errorf("expected cycle [A B A], got %v", cycleErr.Cycle)
	}
}

func TestDepths_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "A")

	_, err := g.Depths(0)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
}

func TestDepths_CycleBehindPrefix(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("root", "A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	_, err := g.Depths(0)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if !slices.Equal(cycleErr.Cycle, []string{"A", "B", "C", "A"}) {
		t.Errorf("expected cycle [A B C A], got %v", cycleErr.Cycle)
	}
}

func TestDepths_RecursionCap(t *testing.T) {
	t.Parallel()
	g := New()
	for i := range 10 {
		g.AddEdge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1))
	}

	if _, err := g.Depths(5); err == nil {
		t.Fatal("expected recursion cap to trip")
	}
	depths, err := g.Depths(20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depths["n0"] != 11 {
		t.Errorf("depth(n0) = %d, want 11", depths["n0"])
	}
}

func TestAddEdge_DuplicatesIgnored(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "B")

	if got := g.Requires("A"); !slices.Equal(got, []string{"B"}) {
		t.Errorf("expected [B], got %v", got)
	}
	if !slices.Equal(g.Nodes(), []string{"A", "B"}) {
		t.Errorf("expected insertion order [A B], got %v", g.Nodes())
	}
	if !g.Has("B") || g.Has("C") {
		t.Error("unexpected Has() result")
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"A", "B", "A"}}
	expected := "dependency cycle detected: A -> B -> A"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
