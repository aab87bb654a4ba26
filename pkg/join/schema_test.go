package join

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rosscartlidge/sortmergejoin/pkg/joinerr"
)

func TestBuildJoinSchemaInnerStacksBothSides(t *testing.T) {
	left := keyValSchema("id", "lval")
	right := keyValSchema("id2", "rval")

	schema, err := BuildJoinSchema(left, right, Inner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schema.NumFields() != 4 {
		t.Fatalf("expected 4 fields, got %d", schema.NumFields())
	}
	names := []string{schema.Field(0).Name, schema.Field(1).Name, schema.Field(2).Name, schema.Field(3).Name}
	want := []string{"id", "lval", "id2", "rval"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("field %d: expected %q, got %q", i, n, names[i])
		}
	}
}

func TestBuildJoinSchemaSemiAndAntiProjectLeftOnly(t *testing.T) {
	left := keyValSchema("id", "lval")
	right := keyValSchema("id2", "rval")

	for _, jt := range []JoinType{Semi, Anti} {
		schema, err := BuildJoinSchema(left, right, jt)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", jt, err)
		}
		if schema.NumFields() != 2 {
			t.Fatalf("%s: expected 2 fields, got %d", jt, schema.NumFields())
		}
		if schema.Field(0).Name != "id" || schema.Field(1).Name != "lval" {
			t.Fatalf("%s: expected left-only schema, got %v", jt, schema)
		}
	}
}

func TestResolveKeyIndicesRejectsMissingColumn(t *testing.T) {
	left := keyValSchema("id", "lval")
	right := keyValSchema("id2", "rval")

	_, _, err := resolveKeyIndices(left, right, []ColumnPair{{Left: "nope", Right: "id2"}})
	if err == nil {
		t.Fatalf("expected an error for a missing left column")
	}
	je, ok := err.(*joinerr.JoinError)
	if !ok {
		t.Fatalf("expected a *joinerr.JoinError, got %T", err)
	}
	if je.Kind != joinerr.KindConfiguration {
		t.Fatalf("expected KindConfiguration, got %s", je.Kind)
	}
	if !strings.Contains(je.Reason, "nope") {
		t.Fatalf("expected reason to name the missing column, got %q", je.Reason)
	}
}

func TestResolveKeyIndicesRejectsIncompatibleTypes(t *testing.T) {
	left := keyValSchema("id", "lval")
	right := arrow.NewSchema([]arrow.Field{
		{Name: "id2", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	_, _, err := resolveKeyIndices(left, right, []ColumnPair{{Left: "id", Right: "id2"}})
	if err == nil {
		t.Fatalf("expected an error for incompatible key types")
	}
}

func TestResolveKeyIndicesHappyPath(t *testing.T) {
	left := keyValSchema("id", "lval")
	right := keyValSchema("id2", "rval")

	leftIdx, rightIdx, err := resolveKeyIndices(left, right, []ColumnPair{{Left: "id", Right: "id2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leftIdx) != 1 || leftIdx[0] != 0 {
		t.Fatalf("expected left index [0], got %v", leftIdx)
	}
	if len(rightIdx) != 1 || rightIdx[0] != 0 {
		t.Fatalf("expected right index [0], got %v", rightIdx)
	}
}
