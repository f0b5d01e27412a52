package models

import (
	"reflect"
	"testing"
)

func TestExecutionResult_Normalize(t *testing.T) {
	batch := 2
	r := ExecutionResult{
		TaskID:            " api ",
		AgentID:           "agent-1",
		ModifiedResources: []string{"b.go", " a.go", "", "b.go"},
		Changeset: []ChangeRecord{
			{Resource: "a.go", Identifiers: []string{"Serve", "Serve", " Route"}},
			{Resource: "new.go", Action: "CREATE"},
			{},
		},
		Batch: &batch,
	}

	n := r.Normalize()

	if n.TaskID != "api" {
		t.Errorf("TaskID = %q", n.TaskID)
	}
	if !reflect.DeepEqual(n.ModifiedResources, []string{"a.go", "b.go"}) {
		t.Errorf("ModifiedResources = %v", n.ModifiedResources)
	}
	if len(n.Changeset) != 2 {
		t.Fatalf("expected empty change records to be dropped, got %d", len(n.Changeset))
	}
	if n.Changeset[0].Action != ActionModify {
		t.Errorf("default action = %q, want %q", n.Changeset[0].Action, ActionModify)
	}
	if !n.Creates("new.go") || n.Creates("a.go") {
		t.Error("Creates() should only report created resources")
	}
	if !reflect.DeepEqual(n.Identifiers(), []string{"Route", "Serve"}) {
		t.Errorf("Identifiers() = %v", n.Identifiers())
	}
	if !reflect.DeepEqual(n.ReferencedResources(), []string{"a.go", "new.go"}) {
		t.Errorf("ReferencedResources() = %v", n.ReferencedResources())
	}

	batch = 7
	if *n.Batch != 2 {
		t.Error("Normalize must copy the batch pointer")
	}
}

func TestNormalizeResults_NilSlices(t *testing.T) {
	out := NormalizeResults(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("NormalizeResults(nil) = %#v", out)
	}

	out = NormalizeResults([]ExecutionResult{{TaskID: "a"}})
	if out[0].ModifiedResources == nil || out[0].Changeset == nil {
		t.Error("optional collections should be non-nil after normalizing")
	}
}
