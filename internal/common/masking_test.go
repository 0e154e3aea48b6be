package common

import (
	"strings"
	"testing"
)

func TestMasker_MaskString(t *testing.T) {
	masker := NewMasker()

	tests := []struct {
		name     string
		input    string
		contains string
		absent   string
	}{
		{"password assignment", `password=hunter22`, MaskedValue, "hunter22"},
		{"api key json", `{"api_key":"sk-1234"}`, MaskedValue, "sk-1234"},
		{"private key flag style", `private_key: 0xdeadbeef`, MaskedValue, "0xdeadbeef"},
		{"bearer token", `header Bearer abc.def.ghi`, "Bearer ***MASKED***", "abc.def.ghi"},
		{"plain text untouched", `Script ran successfully.`, "Script ran successfully.", ""},
		{"tx hash untouched", `Hash: 0x6c1f1b2a`, "0x6c1f1b2a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := masker.MaskString(tt.input)
			if !strings.Contains(got, tt.contains) {
				t.Fatalf("expected %q in %q", tt.contains, got)
			}
			if tt.absent != "" && strings.Contains(got, tt.absent) {
				t.Fatalf("did not expect %q in %q", tt.absent, got)
			}
		})
	}
}

func TestMasker_AddSecrets(t *testing.T) {
	masker := NewMasker()
	masker.AddSecrets("abc123", "abc123def456", "x", "")

	got := masker.MaskString("--rpc-url https://x/abc123 --key abc123def456 x")
	if strings.Contains(got, "abc123") {
		t.Fatalf("secret leaked: %q", got)
	}
	if !strings.HasSuffix(got, " x") {
		t.Fatalf("short values must not be masked: %q", got)
	}
	if strings.Count(got, MaskedValue) != 2 {
		t.Fatalf("expected two masked values, got %q", got)
	}
}

func TestMasker_AddSecretsFromEnv(t *testing.T) {
	masker := NewMasker()
	masker.AddSecretsFromEnv(map[string]string{
		"ETHERSCAN_API_KEY": "etherscan-key-value",
		"KEYSTORE_ACCOUNT":  "deployer-account",
		"GIT_TOKEN":         "ghp_tokenvalue",
	})

	got := masker.MaskString("etherscan-key-value deployer-account ghp_tokenvalue")
	if strings.Contains(got, "etherscan-key-value") || strings.Contains(got, "ghp_tokenvalue") {
		t.Fatalf("secret leaked: %q", got)
	}
	if !strings.Contains(got, "deployer-account") {
		t.Fatalf("account names are not secret: %q", got)
	}
}

func TestIsSensitiveName(t *testing.T) {
	tests := map[string]bool{
		"ETHERSCAN_API_KEY":      true,
		"KEYSTORE_PASSWORD":      true,
		"PRIVATE_KEY":            true,
		"GIT_TOKEN":              true,
		"GIT_SSH_KEY_PASSPHRASE": true,
		"CLIENT_SECRET":          true,
		"KEYSTORE_ACCOUNT":       false,
		"BROADCAST_ACCOUNT":      false,
		"ALCHEMY_URL":            false,
		"MONKEY":                 false,
	}
	for name, want := range tests {
		if got := IsSensitiveName(name); got != want {
			t.Errorf("IsSensitiveName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestMasker_MaskValue(t *testing.T) {
	masker := NewMasker()

	if got := masker.MaskValue("password", "p"); got != MaskedValue {
		t.Fatalf("expected masked password, got %v", got)
	}
	if got := masker.MaskValue("ETHERSCAN_API_KEY", "k"); got != MaskedValue {
		t.Fatalf("expected masked api key, got %v", got)
	}
	if got := masker.MaskValue("network", "sepolia"); got != "sepolia" {
		t.Fatalf("expected untouched value, got %v", got)
	}
}

func TestMasker_MaskKeyValuePairs(t *testing.T) {
	masker := NewMasker()
	got := masker.MaskKeyValuePairs("token", "abc", "network", "mainnet", "dangling")
	if got[1] != MaskedValue || got[3] != "mainnet" || got[4] != "dangling" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestMasker_Disabled(t *testing.T) {
	masker := NewMasker()
	masker.AddSecrets("supersecret")
	masker.SetEnabled(false)

	input := "password=supersecret"
	if got := masker.MaskString(input); got != input {
		t.Fatalf("expected %q, got %q", input, got)
	}
	if masker.IsEnabled() {
		t.Fatal("expected masker to be disabled")
	}
}

func TestMasker_CustomPatterns(t *testing.T) {
	masker := NewMaskerWithPatterns(nil)
	masker.AddPattern(SensitivePattern{Name: "mnemonic", Keys: []string{"mnemonic"}})

	got := masker.MaskString(`mnemonic=word1`)
	if strings.Contains(got, "word1") {
		t.Fatalf("expected mnemonic to be masked, got %q", got)
	}
}

func TestGlobalMasking(t *testing.T) {
	original := IsMaskingEnabled()
	defer EnableMasking(original)

	EnableMasking(true)
	if got := MaskSensitiveData("password=abc"); strings.Contains(got, "abc") {
		t.Fatalf("expected masking, got %q", got)
	}

	EnableMasking(false)
	if got := MaskSensitiveData("password=abc"); got != "password=abc" {
		t.Fatalf("expected no masking, got %q", got)
	}
}
