package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/contract-deployer/internal/broadcast"
	"github.com/loykin/contract-deployer/internal/runner"
	"github.com/loykin/contract-deployer/internal/store"
	"github.com/loykin/contract-deployer/pkg/config"
	"github.com/loykin/contract-deployer/pkg/orchestrator"
)

func TestPrinter_Plan(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)

	p.Plan(config.PlanView{
		Project:     "token",
		Network:     "sepolia",
		ChainID:     11155111,
		RPCURL:      "https://rpc.example/***MASKED***",
		Verify:      true,
		Script:      "script/Deploy.s.sol",
		Signer:      "private key",
		Repo:        "https://github.com/acme/token",
		Ref:         "v1",
		ExtraArgs:   []string{"--slow"},
		NetworkVars: map[string]string{"FEE_RECIPIENT": "0xabc"},
		Fingerprint: "deadbeef",
	})

	out := buf.String()
	for _, want := range []string{
		"DEPLOYMENT CONFIG",
		"sepolia",
		"11155111",
		"https://rpc.example/***MASKED***",
		"https://github.com/acme/token@v1",
		"--slow",
		"FEE_RECIPIENT",
		"deadbeef",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "SETUP")
	assert.NotContains(t, out, "\x1b[", "plain output must not carry escape codes")
}

func TestPrinter_Event(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)

	p.Event(orchestrator.Event{Network: "anvil", Stage: orchestrator.StageDeploy, Command: "forge script x"})
	p.Event(orchestrator.Event{Network: "anvil", Stage: orchestrator.StageSetup, Done: true, Skipped: true})
	p.Event(orchestrator.Event{Network: "anvil", Stage: orchestrator.StageVerify, Done: true, Err: errors.New("boom")})
	p.Event(orchestrator.Event{Network: "anvil", Stage: orchestrator.StageDeploy, Done: true, Err: errors.New("boom")})
	p.Event(orchestrator.Event{Network: "anvil", Stage: orchestrator.StageDeploy, Done: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "[anvil] deploy forge script x", lines[0])
	assert.Equal(t, "[anvil] setup skipped", lines[1])
	assert.Equal(t, "[anvil] verify failed (warning)", lines[2])
	assert.Equal(t, "[anvil] deploy failed", lines[3])
	assert.Equal(t, "[anvil] deploy ok", lines[4])
}

func TestPrinter_Summary(t *testing.T) {
	start := time.Now()
	ok := &orchestrator.Run{
		ID:         "run-ok",
		Plan:       &config.Plan{Network: config.Network{Name: "anvil"}},
		State:      orchestrator.StateDone,
		Warnings:   []error{errors.New("verification failed")},
		Contracts:  []broadcast.Contract{{Name: "Counter", Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}},
		StartTime:  start,
		FinishTime: start.Add(2 * time.Second),
	}
	failed := &orchestrator.Run{
		ID:    "run-failed",
		Plan:  &config.Plan{Network: config.Network{Name: "sepolia"}},
		State: orchestrator.StateFailed,
		Err: &runner.CommandFailedError{
			Name:     "deploy",
			ExitCode: 1,
			Tail:     []string{"Error: script failed"},
		},
		StartTime:  start,
		FinishTime: start.Add(time.Second),
	}

	var buf bytes.Buffer
	New(&buf, false).Summary([]*orchestrator.Run{ok, nil, failed})

	out := buf.String()
	assert.Contains(t, out, "SUCCESS WITH WARNINGS anvil")
	assert.Contains(t, out, "Counter 0x5FbDB2315678afecb367f032d93F642f64180aa3")
	assert.Contains(t, out, "warning: verification failed")
	assert.Contains(t, out, "FAILED sepolia")
	assert.Contains(t, out, "last 1 lines of deploy output:")
	assert.Contains(t, out, "Error: script failed")
}

func TestPrinter_History(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)

	p.History(nil)
	assert.Contains(t, buf.String(), "no runs recorded")

	buf.Reset()
	p.History([]store.Record{{
		ID:        "run-1",
		Project:   "token",
		Network:   "anvil",
		ChainID:   31337,
		State:     "done",
		Contracts: []store.Contract{{Name: "Counter", Address: "0xabc"}},
		StartedAt: time.Now(),
	}})
	out := buf.String()
	for _, want := range []string{"RUN", "run-1", "anvil (31337)", "done", "0xabc"} {
		assert.Contains(t, out, want)
	}
}

func TestConfirm(t *testing.T) {
	plan := &config.Plan{Network: config.Network{Name: "sepolia"}}
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"sure\n", false},
		{"", false},
		{"y", true},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			var out bytes.Buffer
			ok, err := Confirm(strings.NewReader(tc.input), &out)(context.Background(), plan)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
			assert.Contains(t, out.String(), "Continue with deployment to sepolia? (y/n)")
		})
	}
}

func TestConfirm_Cancelled(t *testing.T) {
	blocked, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := Confirm(blocked, &bytes.Buffer{})(ctx, &config.Plan{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfirm_CancelledReadAnswersNextPrompt(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	confirm := Confirm(r, &bytes.Buffer{})
	plan := &config.Plan{Network: config.Network{Name: "sepolia"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := confirm(ctx, plan)
	require.ErrorIs(t, err, context.Canceled)

	go func() { _, _ = io.WriteString(w, "y\n") }()
	ok, err := confirm(context.Background(), plan)
	require.NoError(t, err)
	assert.True(t, ok)
}
