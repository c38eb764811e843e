package engram

import (
	"context"
	"testing"
)

func TestHeuristicInferEpisode(t *testing.T) {
	c := NewHeuristicTypeInferencer("")
	typ, err := c.Infer(context.Background(), "I remember when they visited last time and came back later")
	if err != nil {
		t.Fatal(err)
	}
	if typ != TypeEpisode {
		t.Errorf("expected episode, got %s", typ)
	}
}

func TestHeuristicInferPreference(t *testing.T) {
	c := NewHeuristicTypeInferencer("")
	typ, err := c.Infer(context.Background(), "Alex likes jazz and prefers vinyl, is a big fan of old albums")
	if err != nil {
		t.Fatal(err)
	}
	if typ != TypePreference {
		t.Errorf("expected preference, got %s", typ)
	}
}

func TestHeuristicInferDecision(t *testing.T) {
	c := NewHeuristicTypeInferencer("")
	typ, err := c.Infer(context.Background(), "We decided to go with the simpler plan and settled on it")
	if err != nil {
		t.Fatal(err)
	}
	if typ != TypeDecision {
		t.Errorf("expected decision, got %s", typ)
	}
}

func TestHeuristicInferReflex(t *testing.T) {
	c := NewHeuristicTypeInferencer("")
	typ, err := c.Infer(context.Background(), "Whenever this happens, always respond automatically as a rule")
	if err != nil {
		t.Fatal(err)
	}
	if typ != TypeReflex {
		t.Errorf("expected reflex, got %s", typ)
	}
}

func TestHeuristicInferAmbiguousDefaultsFact(t *testing.T) {
	c := NewHeuristicTypeInferencer("")
	typ, err := c.Infer(context.Background(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	if typ != TypeFact {
		t.Errorf("ambiguous content should default to fact, got %s", typ)
	}
}

func TestHeuristicInferNoGeminiFallbackWithoutKey(t *testing.T) {
	c := NewHeuristicTypeInferencer("")
	typ, err := c.Infer(context.Background(), "something completely ambiguous xyz")
	if err != nil {
		t.Fatal(err)
	}
	if typ != TypeFact {
		t.Errorf("without API key, ambiguous should default to fact, got %s", typ)
	}
}
