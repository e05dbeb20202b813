package rdf

import (
	"slices"
	"sync"
	"testing"

	"pgregory.net/rapid"
)

func genTerm(t *rapid.T, label string, allowLiteral bool) Term {
	kinds := []int{0, 1}
	if allowLiteral {
		kinds = append(kinds, 2, 3)
	}
	switch rapid.SampledFrom(kinds).Draw(t, label+"Kind") {
	case 0:
		return IRI{Value: "urn:x:" + rapid.StringMatching(`[a-c]{1,2}`).Draw(t, label+"IRI")}
	case 1:
		return BlankNode{ID: rapid.StringMatching(`b[0-2]`).Draw(t, label+"Blank")}
	case 2:
		return Literal{Lexical: rapid.StringMatching(`[a-b0-1]{0,2}`).Draw(t, label+"Lex")}
	default:
		return Literal{
			Lexical:  rapid.StringMatching(`[0-2]`).Draw(t, label+"Num"),
			Datatype: IRI{Value: rapid.SampledFrom([]string{XSDInteger, XSDString}).Draw(t, label+"DT")},
		}
	}
}

func genTriples(t *rapid.T, label string) []Triple {
	n := rapid.IntRange(0, 20).Draw(t, label+"Len")
	out := make([]Triple, n)
	for i := range out {
		out[i] = Triple{
			S: genTerm(t, label+"S", false),
			P: IRI{Value: "urn:p:" + rapid.StringMatching(`[pq]`).Draw(t, label+"P")},
			O: genTerm(t, label+"O", true),
		}
	}
	return out
}

func graphOf(triples []Triple) *Graph {
	return Merge(nil, slices.Values(triples))
}

func TestMergeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		triples := genTriples(t, "g")
		once := graphOf(triples)
		twice := Merge(graphOf(triples), slices.Values(triples))
		if !once.Equal(twice) {
			t.Fatalf("merging the same triples twice changed the graph: %d vs %d", once.Len(), twice.Len())
		}
		self := once.Clone()
		self.Union(once)
		if !self.Equal(once) {
			t.Fatalf("g ∪ g != g")
		}
	})
}

func TestMergeIsCommutativeAndAssociative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := graphOf(genTriples(t, "a"))
		b := graphOf(genTriples(t, "b"))
		c := graphOf(genTriples(t, "c"))

		ab := a.Clone()
		ab.Union(b)
		ba := b.Clone()
		ba.Union(a)
		if !ab.Equal(ba) {
			t.Fatalf("a ∪ b != b ∪ a")
		}

		left := ab.Clone()
		left.Union(c)
		bc := b.Clone()
		bc.Union(c)
		right := a.Clone()
		right.Union(bc)
		if !left.Equal(right) {
			t.Fatalf("(a ∪ b) ∪ c != a ∪ (b ∪ c)")
		}
	})
}

func TestGraphSetSemantics(t *testing.T) {
	tr := Triple{S: IRI{Value: "urn:s"}, P: IRI{Value: "urn:p"}, O: Literal{Lexical: "v"}}
	g := NewGraph()
	if !g.Add(tr) {
		t.Fatal("first add should report insertion")
	}
	if g.Add(tr) {
		t.Fatal("second add should report duplicate")
	}
	if g.Add(Triple{S: tr.S, P: tr.P, O: Literal{Lexical: "v", Datatype: IRI{Value: XSDString}}}) {
		t.Fatal("xsd:string literal should equal the plain literal")
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 triple, got %d", g.Len())
	}
}

func TestGraphConcurrentAdd(t *testing.T) {
	g := NewGraph()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				g.Add(Triple{S: IRI{Value: "urn:s"}, P: IRI{Value: "urn:p"}, O: Literal{Lexical: string(rune('a' + i%26))}})
			}
		}()
	}
	wg.Wait()
	if g.Len() != 26 {
		t.Fatalf("expected 26 distinct triples, got %d", g.Len())
	}
	if got := len(g.Match(IRI{Value: "urn:s"}, nil, nil)); got != 26 {
		t.Fatalf("expected 26 triples for urn:s, got %d", got)
	}
}

func TestGraphMatchAgreesWithScan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := graphOf(genTriples(t, "g"))
		var s, o Term
		var p *IRI
		if rapid.Bool().Draw(t, "bindS") {
			s = genTerm(t, "s", false)
		}
		if rapid.Bool().Draw(t, "bindP") {
			p = &IRI{Value: "urn:p:" + rapid.StringMatching(`[pq]`).Draw(t, "p")}
		}
		if rapid.Bool().Draw(t, "bindO") {
			o = genTerm(t, "o", true)
		}

		var want []Triple
		for _, tr := range g.Sorted() {
			if s != nil && !termEqual(tr.S, s) {
				continue
			}
			if p != nil && tr.P != *p {
				continue
			}
			if o != nil && !termEqual(tr.O, o) {
				continue
			}
			want = append(want, tr)
		}
		got := g.Match(s, p, o)
		if !slices.EqualFunc(got, want, func(a, b Triple) bool { return a.Key() == b.Key() }) {
			t.Fatalf("Match(%v, %v, %v) = %v, want %v", s, p, o, got, want)
		}
	})
}

func TestGraphSortedIsDeterministic(t *testing.T) {
	g := NewGraph()
	g.Add(Triple{S: IRI{Value: "urn:b"}, P: IRI{Value: "urn:p"}, O: IRI{Value: "urn:o"}})
	g.Add(Triple{S: IRI{Value: "urn:a"}, P: IRI{Value: "urn:q"}, O: IRI{Value: "urn:o"}})
	g.Add(Triple{S: IRI{Value: "urn:a"}, P: IRI{Value: "urn:p"}, O: IRI{Value: "urn:o"}})
	sorted := g.Sorted()
	if sorted[0].S != (IRI{Value: "urn:a"}) || sorted[0].P.Value != "urn:p" || sorted[2].S != (IRI{Value: "urn:b"}) {
		t.Fatalf("unexpected order: %v", sorted)
	}
}
