package optional

import (
	"encoding/json"
	"testing"
)

type patch struct {
	Title    Field[string] `json:"title"`
	Assignee Field[int64]  `json:"assignee_id"`
}

func TestFieldDistinguishesAbsentNullAndValue(t *testing.T) {
	var p patch
	if err := json.Unmarshal([]byte(`{"assignee_id": null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Title.Set {
		t.Fatal("title should be absent")
	}
	if !p.Assignee.Set || !p.Assignee.Null {
		t.Fatalf("assignee should be present and null: %+v", p.Assignee)
	}

	p = patch{}
	if err := json.Unmarshal([]byte(`{"title": "x", "assignee_id": 4}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Title.Set || p.Title.Null || p.Title.Value != "x" {
		t.Fatalf("unexpected title: %+v", p.Title)
	}
	if p.Assignee.Value != 4 {
		t.Fatalf("unexpected assignee: %+v", p.Assignee)
	}
}

func TestFieldRejectsWrongType(t *testing.T) {
	var p patch
	if err := json.Unmarshal([]byte(`{"assignee_id": "four"}`), &p); err == nil {
		t.Fatal("expected type error")
	}
}

func TestConstructors(t *testing.T) {
	if f := Of(3); !f.Set || f.Null || f.Value != 3 {
		t.Fatalf("Of: %+v", f)
	}
	if f := Null[string](); !f.Set || !f.Null {
		t.Fatalf("Null: %+v", f)
	}
	data, err := json.Marshal(Null[int]())
	if err != nil || string(data) != "null" {
		t.Fatalf("marshal null = %s, %v", data, err)
	}
}
