package instance

import "testing"

func TestNew(t *testing.T) {
	answers := map[string]any{"name": "Acme"}
	inst, err := New(Params{ID: "i1", TemplateID: "t1", Answers: answers, Draft: "Hi Acme", Missing: []string{"date"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	answers["name"] = "changed"
	if inst.Answers()["name"] != "Acme" {
		t.Error("answers must be copied")
	}
	if inst.Complete() {
		t.Error("expected incomplete draft")
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(Params{TemplateID: "t1"}); err == nil {
		t.Error("expected error for empty ID")
	}
	if _, err := New(Params{ID: "i1"}); err == nil {
		t.Error("expected error for empty template ID")
	}
}
