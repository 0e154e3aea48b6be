package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/runner"
	"github.com/loykin/contract-deployer/internal/store"
	"github.com/loykin/contract-deployer/pkg/config"
	"github.com/loykin/contract-deployer/pkg/orchestrator"
)

// Printer writes human-oriented output. Diagnostics go through the logger;
// Printer is for what the operator reads.
type Printer struct {
	w     io.Writer
	theme Theme
}

// New returns a Printer writing to w. Color is additionally limited by what
// the renderer detects for w.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, theme: NewTheme(lipgloss.NewRenderer(w), color)}
}

func (p *Printer) println(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}

// Plan prints the resolved plan as a boxed banner. Secret values are
// already masked by config.Plan.View.
func (p *Printer) Plan(v config.PlanView) {
	rows := [][2]string{
		{"PROJECT", v.Project},
		{"SCRIPT", v.Script},
		{"NETWORK", v.Network},
		{"CHAIN_ID", fmt.Sprint(v.ChainID)},
		{"RPC_URL", v.RPCURL},
		{"VERIFY", fmt.Sprint(v.Verify)},
		{"SIGNER", v.Signer},
	}
	if v.Sender != "" {
		rows = append(rows, [2]string{"SENDER", v.Sender})
	}
	if v.Repo != "" {
		repo := v.Repo
		if v.Ref != "" {
			repo += "@" + v.Ref
		}
		rows = append(rows, [2]string{"REPO", repo})
	}
	if v.Setup != "" {
		rows = append(rows, [2]string{"SETUP", v.Setup})
	}
	if len(v.ExtraArgs) > 0 {
		rows = append(rows, [2]string{"EXTRA_ARGS", strings.Join(v.ExtraArgs, " ")})
	}
	keys := make([]string, 0, len(v.NetworkVars))
	for k := range v.NetworkVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, [2]string{k, v.NetworkVars[k]})
	}
	rows = append(rows, [2]string{"FINGERPRINT", v.Fingerprint})

	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	lines := []string{p.theme.Title.Render("DEPLOYMENT CONFIG")}
	for _, r := range rows {
		label := p.theme.Label.Render(fmt.Sprintf("%-*s", width, r[0]))
		lines = append(lines, label+"  "+p.theme.Value.Render(r[1]))
	}
	p.println(p.theme.Box.Render(strings.Join(lines, "\n")))
}

// Event prints a one-line stage transition.
func (p *Printer) Event(e orchestrator.Event) {
	prefix := p.theme.Dim.Render(fmt.Sprintf("[%s]", e.Network))
	switch {
	case !e.Done && e.Command != "":
		p.println(fmt.Sprintf("%s %s %s", prefix, p.theme.Label.Render(string(e.Stage)), p.theme.Dim.Render(e.Command)))
	case !e.Done:
		p.println(fmt.Sprintf("%s %s", prefix, p.theme.Label.Render(string(e.Stage))))
	case e.Skipped:
		p.println(fmt.Sprintf("%s %s %s", prefix, string(e.Stage), p.theme.Dim.Render("skipped")))
	case e.Err != nil && e.Stage == orchestrator.StageVerify:
		p.println(fmt.Sprintf("%s %s %s", prefix, string(e.Stage), p.theme.Warn.Render("failed (warning)")))
	case e.Err != nil:
		p.println(fmt.Sprintf("%s %s %s", prefix, string(e.Stage), p.theme.Failed.Render("failed")))
	default:
		p.println(fmt.Sprintf("%s %s %s", prefix, string(e.Stage), p.theme.OK.Render("ok")))
	}
}

// Summary prints one block per run after all output has been streamed.
func (p *Printer) Summary(runs []*orchestrator.Run) {
	for _, r := range runs {
		if r == nil {
			continue
		}
		status := p.theme.OK.Render("SUCCESS")
		if !r.Succeeded() {
			status = p.theme.Failed.Render("FAILED")
		} else if len(r.Warnings) > 0 {
			status = p.theme.Warn.Render("SUCCESS WITH WARNINGS")
		}
		elapsed := r.FinishTime.Sub(r.StartTime).Round(time.Millisecond)
		p.println(fmt.Sprintf("%s %s %s", status, r.Plan.Network.Name, p.theme.Dim.Render(fmt.Sprintf("(%s, run %s)", elapsed, r.ID))))

		for _, c := range r.Contracts {
			name := c.Name
			if name == "" {
				name = "(factory)"
			}
			p.println(fmt.Sprintf("  %s %s", p.theme.Label.Render(name), c.Address))
		}
		for _, w := range r.Warnings {
			p.println("  " + p.theme.Warn.Render("warning: ") + common.MaskSensitiveData(w.Error()))
		}
		if r.KeptWorkdir() {
			p.println("  " + p.theme.Dim.Render("working directory kept at "+r.Workdir))
		}
		if r.Err != nil {
			p.Failure(r.Err)
		}
	}
}

// Failure prints err and, for command failures, the captured output tail.
func (p *Printer) Failure(err error) {
	p.println("  " + p.theme.Failed.Render("error: ") + common.MaskSensitiveData(err.Error()))
	var cfe *runner.CommandFailedError
	if errors.As(err, &cfe) && len(cfe.Tail) > 0 {
		p.println("  " + p.theme.Dim.Render(fmt.Sprintf("last %d lines of %s output:", len(cfe.Tail), cfe.Name)))
		for _, l := range cfe.Tail {
			p.println("    " + common.MaskSensitiveData(l))
		}
	}
}

// History prints recorded runs as a table.
func (p *Printer) History(records []store.Record) {
	if len(records) == 0 {
		p.println(p.theme.Dim.Render("no runs recorded"))
		return
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		contracts := make([]string, 0, len(r.Contracts))
		for _, c := range r.Contracts {
			contracts = append(contracts, c.Address)
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.ID,
			r.Project,
			fmt.Sprintf("%s (%d)", r.Network, r.ChainID),
			r.State,
			fmt.Sprint(len(r.Warnings)),
			strings.Join(contracts, " "),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "RUN", "PROJECT", "NETWORK", "STATE", "WARNINGS", "CONTRACTS").
		Rows(rows...)
	p.println(t.String())
}

// Confirm returns a hook that asks on out and reads the answer from in.
// Only "y" and "yes" confirm; end of input declines.
func Confirm(in io.Reader, out io.Writer) orchestrator.ConfirmFunc {
	type answer struct {
		line string
		err  error
	}
	reader := bufio.NewReader(in)
	// A read abandoned by cancellation stays pending and answers the next
	// prompt, so at most one goroutine ever reads from in.
	var pending chan answer

	return func(ctx context.Context, plan *config.Plan) (bool, error) {
		_, _ = fmt.Fprintf(out, "Continue with deployment to %s? (y/n): ", plan.Network.Name)

		if pending == nil {
			ch := make(chan answer, 1)
			go func() {
				line, err := reader.ReadString('\n')
				ch <- answer{line, err}
			}()
			pending = ch
		}

		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out)
			return false, ctx.Err()
		case a := <-pending:
			pending = nil
			if a.err != nil && !errors.Is(a.err, io.EOF) {
				return false, a.err
			}
			switch strings.ToLower(strings.TrimSpace(a.line)) {
			case "y", "yes":
				return true, nil
			}
			return false, nil
		}
	}
}
