package common

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiBlue    = "\033[34m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
	ansiGray    = "\033[90m"
)

// logScope holds the attributes that identify where a line comes from. The
// handler prints them as a fixed prefix instead of key=value pairs.
type logScope struct {
	component string
	network   string
	chainID   string
	stage     string
	runID     string
}

// take stores a if it is a scope attribute.
func (s *logScope) take(a slog.Attr) bool {
	switch a.Key {
	case "component":
		s.component = a.Value.String()
	case "network":
		s.network = a.Value.String()
	case "chain_id":
		s.chainID = a.Value.String()
	case "stage":
		s.stage = a.Value.String()
	case "run_id":
		s.runID = a.Value.String()
	default:
		return false
	}
	return true
}

type tone int

const (
	toneNeutral tone = iota
	toneOK
	toneWarn
	toneFailed
)

var outcomeTones = map[string]tone{
	"done":      toneOK,
	"ok":        toneOK,
	"success":   toneOK,
	"deployed":  toneOK,
	"verified":  toneOK,
	"skipped":   toneWarn,
	"warning":   toneWarn,
	"declined":  toneWarn,
	"failed":    toneFailed,
	"aborted":   toneFailed,
	"cancelled": toneFailed,
	"canceled":  toneFailed,
}

// outcomeTone classifies run and stage outcomes; other attributes stay neutral.
func outcomeTone(key, text string) tone {
	switch key {
	case "error", "err":
		return toneFailed
	case "state", "outcome", "result", "status":
		return outcomeTones[strings.ToLower(text)]
	}
	return toneNeutral
}

// ColorHandler is a slog handler for operators watching a deployment in a
// terminal. Lines look like
//
//	12:04:05.120 INF [orchestrator] sepolia_dev#11155111 deploy run=1a2b3c4d run finished state=done
//
// Values are masked before they are written.
type ColorHandler struct {
	opts     *slog.HandlerOptions
	writer   io.Writer
	mu       *sync.Mutex
	scope    logScope
	attrs    []slog.Attr
	prefix   string
	masker   *Masker
	useColor bool
}

// NewColorHandler returns a handler writing to w. Color is on when w is a
// terminal and NO_COLOR is unset.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColorHandler{
		opts:     opts,
		writer:   w,
		mu:       &sync.Mutex{},
		masker:   NewMasker(),
		useColor: shouldUseColor(w),
	}
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	scope := h.scope
	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && scope.take(a) {
			return true
		}
		attrs = append(attrs, h.qualify(a))
		return true
	})

	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(h.paint(ansiGray, r.Time.Format("15:04:05.000")))
		b.WriteByte(' ')
	}
	b.WriteString(h.levelLabel(r.Level))
	h.writeScope(&b, scope)
	b.WriteByte(' ')
	b.WriteString(h.maskString(r.Message))
	for _, a := range attrs {
		b.WriteByte(' ')
		h.writeAttr(&b, a)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *ColorHandler) levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return h.paint(ansiBold+ansiRed, "ERR")
	case level >= slog.LevelWarn:
		return h.paint(ansiYellow, "WRN")
	case level >= slog.LevelInfo:
		return h.paint(ansiGreen, "INF")
	default:
		return h.paint(ansiGray, "DBG")
	}
}

func (h *ColorHandler) writeScope(b *strings.Builder, s logScope) {
	if s.component != "" {
		b.WriteByte(' ')
		b.WriteString(h.paint(ansiCyan, "["+s.component+"]"))
	}
	if s.network != "" {
		network := s.network
		if s.chainID != "" {
			network += "#" + s.chainID
		}
		b.WriteByte(' ')
		b.WriteString(h.paint(ansiBold+ansiBlue, network))
	}
	if s.stage != "" {
		b.WriteByte(' ')
		b.WriteString(h.paint(ansiMagenta, s.stage))
	}
	if s.runID != "" {
		b.WriteByte(' ')
		b.WriteString(h.paint(ansiGray, "run="+shortRunID(s.runID)))
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (h *ColorHandler) writeAttr(b *strings.Builder, a slog.Attr) {
	v := a.Value.Resolve()
	text := h.valueText(a.Key, v)
	t := outcomeTone(a.Key, text)
	if _, isErr := v.Any().(error); isErr && v.Kind() == slog.KindAny {
		t = toneFailed
	}

	b.WriteString(h.paint(ansiGray, a.Key+"="))
	out := text
	if text == "" || strings.ContainsAny(text, " \t\n\"=") {
		out = strconv.Quote(text)
	}
	switch t {
	case toneOK:
		out = h.paint(ansiGreen, out)
	case toneWarn:
		out = h.paint(ansiYellow, out)
	case toneFailed:
		out = h.paint(ansiRed, out)
	}
	b.WriteString(out)
}

func (h *ColorHandler) valueText(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return h.maskValue(key, v.String())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return h.maskValue(key, err.Error())
		}
		return h.maskValue(key, v.String())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}

func (h *ColorHandler) maskValue(key, s string) string {
	if h.masker == nil {
		return s
	}
	if masked, ok := h.masker.MaskValue(key, s).(string); ok {
		return masked
	}
	return s
}

func (h *ColorHandler) maskString(s string) string {
	if h.masker == nil {
		return s
	}
	return h.masker.MaskString(s)
}

func (h *ColorHandler) paint(color, text string) string {
	if !h.useColor {
		return text
	}
	return color + text + ansiReset
}

func (h *ColorHandler) qualify(a slog.Attr) slog.Attr {
	if h.prefix != "" {
		a.Key = h.prefix + a.Key
	}
	return a
}

func (h *ColorHandler) clone() *ColorHandler {
	c := *h
	c.attrs = slices.Clip(h.attrs)
	return &c
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		if c.prefix == "" && c.scope.take(a) {
			continue
		}
		c.attrs = append(c.attrs, c.qualify(a))
	}
	return c
}

// WithGroup qualifies later attribute keys as "group.key".
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix += name + "."
	return c
}

// SetMasker replaces the masker applied to messages and values.
func (h *ColorHandler) SetMasker(masker *Masker) {
	h.masker = masker
}

// SetColorEnabled overrides terminal detection.
func (h *ColorHandler) SetColorEnabled(enabled bool) {
	h.useColor = enabled
}
