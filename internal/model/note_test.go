package model

import (
	"encoding/json"
	"testing"
)

func TestNotePatch_DecodeFolderID(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantValue *int64
	}{
		{name: "omitted", body: `{"title":"x"}`, wantSet: false},
		{name: "explicit null", body: `{"folderId":null}`, wantSet: true},
		{name: "value", body: `{"folderId":4}`, wantSet: true, wantValue: Int64(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p NotePatch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if p.FolderID.Set != tt.wantSet {
				t.Errorf("FolderID.Set = %v, want %v", p.FolderID.Set, tt.wantSet)
			}
			switch {
			case tt.wantValue == nil && p.FolderID.Value != nil:
				t.Errorf("FolderID.Value = %d, want nil", *p.FolderID.Value)
			case tt.wantValue != nil && (p.FolderID.Value == nil || *p.FolderID.Value != *tt.wantValue):
				t.Errorf("FolderID.Value = %v, want %d", p.FolderID.Value, *tt.wantValue)
			}
		})
	}
}

func TestNotePatch_DecodeRejectsWrongType(t *testing.T) {
	var p NotePatch
	if err := json.Unmarshal([]byte(`{"folderId":"four"}`), &p); err == nil {
		t.Fatal("Unmarshal() should fail for a non-numeric folderId")
	}
}

func TestNotePatch_Apply(t *testing.T) {
	base := Note{ID: 1, Title: "old", Content: "body", FolderID: Int64(2)}

	t.Run("title only", func(t *testing.T) {
		n := base
		NotePatch{Title: String("new")}.Apply(&n)
		if n.Title != "new" || n.Content != "body" || n.FolderID == nil || *n.FolderID != 2 {
			t.Errorf("Apply() = %+v, want only title changed", n)
		}
	})

	t.Run("clear folder", func(t *testing.T) {
		n := base
		NotePatch{FolderID: Null[int64]()}.Apply(&n)
		if n.FolderID != nil {
			t.Errorf("FolderID = %d, want nil", *n.FolderID)
		}
	})

	t.Run("move folder", func(t *testing.T) {
		n := base
		NotePatch{FolderID: Some[int64](9)}.Apply(&n)
		if n.FolderID == nil || *n.FolderID != 9 {
			t.Errorf("FolderID = %v, want 9", n.FolderID)
		}
	})
}

func TestNotePatch_Empty(t *testing.T) {
	if !(NotePatch{}).Empty() {
		t.Error("zero NotePatch should be empty")
	}
	if (NotePatch{FolderID: Null[int64]()}).Empty() {
		t.Error("patch clearing the folder should not be empty")
	}
}
