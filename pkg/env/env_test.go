package env

import (
	"reflect"
	"testing"
)

func TestEnv_LookupAndSource(t *testing.T) {
	e := New()
	if err := e.Set("FOO", "bar", Source{Layer: LayerFile, Path: "/tmp/.env"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := e.Lookup("FOO"); !ok || v != "bar" {
		t.Fatalf("expected FOO=bar, got ok=%v v=%q", ok, v)
	}
	if _, ok := e.Lookup("MISSING"); ok {
		t.Fatalf("expected missing key to return ok=false")
	}
	src, ok := e.Source("FOO")
	if !ok || src.String() != "file:/tmp/.env" {
		t.Fatalf("unexpected source %v", src)
	}
}

func TestEnv_SealRejectsSet(t *testing.T) {
	e := New()
	e.Seal()
	if err := e.Set("A", "1", Source{Layer: LayerInline}); err == nil {
		t.Fatal("expected error on sealed env")
	}
	if !e.Sealed() {
		t.Fatal("expected sealed")
	}
}

func TestEnv_VarsIsACopy(t *testing.T) {
	e := FromMap(map[string]string{"A": "1"}, Source{Layer: LayerProcess})
	vars := e.Vars()
	vars["A"] = "changed"
	if e.Get("A") != "1" {
		t.Fatal("mutating Vars() must not change the env")
	}
}

func TestEnv_OverlayLeavesOriginal(t *testing.T) {
	base := FromMap(map[string]string{"A": "1", "B": "2"}, Source{Layer: LayerProcess})
	over := base.Overlay(map[string]string{"B": "3", "C": "4"}, Source{Layer: LayerNetwork})

	if base.Get("B") != "2" || base.Has("C") {
		t.Fatal("overlay mutated the base env")
	}
	if over.Get("B") != "3" || over.Get("C") != "4" || over.Get("A") != "1" {
		t.Fatalf("unexpected overlay result: %v", over.Vars())
	}
	if src, _ := over.Source("A"); src.Layer != LayerProcess {
		t.Fatalf("expected inherited source, got %v", src)
	}
	if !over.Sealed() {
		t.Fatal("overlay must be sealed")
	}
}

func TestEnv_Environ(t *testing.T) {
	e := FromMap(map[string]string{"B": "2", "A": "x=y"}, Source{Layer: LayerInline})
	want := []string{"A=x=y", "B=2"}
	if got := e.Environ(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEnv_ZeroValue(t *testing.T) {
	var e Env
	if e.Len() != 0 || e.Has("X") {
		t.Fatal("zero env should be empty")
	}
	if err := e.Set("X", "1", Source{Layer: LayerInline}); err != nil {
		t.Fatalf("Set on zero value: %v", err)
	}
	if e.Get("X") != "1" {
		t.Fatal("expected X=1")
	}
}
