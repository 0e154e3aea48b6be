package env

import (
	"errors"
	"reflect"
	"testing"
)

func TestExpand(t *testing.T) {
	vars := map[string]string{
		"ALCHEMY_API_KEY": "abc123",
		"NETWORK":         "sepolia",
		"HOST":            "eth-${NETWORK}.g.alchemy.com",
		"URL":             "https://${HOST}/v2/${ALCHEMY_API_KEY}",
		"EMPTY":           "",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"no references", "plain", "plain"},
		{"single", "https://x/${ALCHEMY_API_KEY}", "https://x/abc123"},
		{"repeated", "${NETWORK}-${NETWORK}", "sepolia-sepolia"},
		{"chained", "${URL}", "https://eth-sepolia.g.alchemy.com/v2/abc123"},
		{"empty value is defined", "a${EMPTY}b", "ab"},
		{"not a reference", "$NETWORK ${1X} ${", "$NETWORK ${1X} ${"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.template, MapLookup(vars))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpand_Unresolved(t *testing.T) {
	got, err := Expand("https://x/${MISSING}", MapLookup(map[string]string{}))
	if got != "" {
		t.Fatalf("expected no partial output, got %q", got)
	}
	var ue *UnresolvedVariableError
	if !errors.As(err, &ue) || ue.Name != "MISSING" {
		t.Fatalf("expected UnresolvedVariableError for MISSING, got %v", err)
	}
	if !errors.Is(err, ErrCyclicOrUnresolved) {
		t.Fatal("expected ErrCyclicOrUnresolved")
	}
}

func TestExpand_Cycle(t *testing.T) {
	cases := map[string]map[string]string{
		"self":  {"A": "${A}"},
		"pair":  {"A": "${B}", "B": "${A}"},
		"three": {"A": "x${B}", "B": "${C}", "C": "${A}"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Expand("${A}", MapLookup(vars))
			if got != "" {
				t.Fatalf("expected no partial output, got %q", got)
			}
			var ce *CyclicVariableError
			if !errors.As(err, &ce) {
				t.Fatalf("expected CyclicVariableError, got %v", err)
			}
			if !errors.Is(err, ErrCyclicOrUnresolved) {
				t.Fatal("expected ErrCyclicOrUnresolved")
			}
		})
	}
}

func TestExpand_DeepChainWithinBound(t *testing.T) {
	vars := map[string]string{"V0": "end"}
	prev := "V0"
	for _, name := range []string{"V1", "V2", "V3", "V4", "V5", "V6", "V7", "V8"} {
		vars[name] = "${" + prev + "}"
		prev = name
	}
	got, err := Expand("${V8}", MapLookup(vars))
	if err != nil || got != "end" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestReferences(t *testing.T) {
	got := References("${B} ${A} ${B} $C ${}")
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("got %v", got)
	}
}

func TestSubstitute_SinglePass(t *testing.T) {
	vars := map[string]string{"TEMPLATE": "${HOST}/v2", "NAME": "x"}
	got, err := Substitute("${TEMPLATE}?n=${NAME}", MapLookup(vars))
	if err != nil || got != "${HOST}/v2?n=x" {
		t.Fatalf("got %q, %v", got, err)
	}

	_, err = Substitute("${MISSING}", MapLookup(vars))
	var ue *UnresolvedVariableError
	if !errors.As(err, &ue) || ue.Name != "MISSING" {
		t.Fatalf("expected UnresolvedVariableError, got %v", err)
	}
}
