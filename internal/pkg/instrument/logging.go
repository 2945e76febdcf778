package instrument

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

const maskedValue = "***"

func initLogging(serviceName string, lp *sdklog.LoggerProvider, maskFields []string) {
	slog.SetDefault(slog.New(newHandler(os.Stdout, serviceName, lp, maskFields)))
}

// newHandler builds the JSON log handler, fanned out to the OTel log bridge
// when lp is set. Every record carries the service name, the correlation ID
// and the active trace/span IDs, with SecretFields and maskFields masked.
func newHandler(w io.Writer, serviceName string, lp *sdklog.LoggerProvider, maskFields []string) slog.Handler {
	var out slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		AddSource:   true,
		ReplaceAttr: renameAttr,
	})

	if lp != nil {
		out = fanout{out, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp))}
	}

	return &recordHandler{
		next:    out,
		service: serviceName,
		mask:    newMasker(append(append([]string{}, SecretFields...), maskFields...)),
	}
}

func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		_, rel, found := strings.Cut(src.File, "/internal/")
		if !found {
			return slog.Attr{}
		}
		return slog.String("file", "internal/"+rel+":"+strconv.Itoa(src.Line))
	}
	return a
}

// recordHandler masks attributes and enriches records from the context.
type recordHandler struct {
	next    slog.Handler
	service string
	mask    masker
}

func (h *recordHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *recordHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.mask.attr(a))
		return true
	})

	if cID := GetCorrelationID(ctx); cID != "" {
		out.AddAttrs(slog.String("_cID", cID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out.AddAttrs(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
	}
	out.AddAttrs(slog.String("service", h.service))

	return h.next.Handle(ctx, out)
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := lo.Map(attrs, func(a slog.Attr, _ int) slog.Attr { return h.mask.attr(a) })
	return &recordHandler{next: h.next.WithAttrs(masked), service: h.service, mask: h.mask}
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	return &recordHandler{next: h.next.WithGroup(name), service: h.service, mask: h.mask}
}

// fanout sends each record to every enabled handler.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return lo.SomeBy(f, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanout(lo.Map(f, func(h slog.Handler, _ int) slog.Handler { return h.WithAttrs(attrs) }))
}

func (f fanout) WithGroup(name string) slog.Handler {
	return fanout(lo.Map(f, func(h slog.Handler, _ int) slog.Handler { return h.WithGroup(name) }))
}

// masker replaces the values of sensitive keys, matched case-insensitively,
// in attributes, groups, maps and JSON payloads.
type masker map[string]struct{}

func newMasker(fields []string) masker {
	m := masker{}
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			m[f] = struct{}{}
		}
	}
	return m
}

func (m masker) sensitive(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

func (m masker) attr(a slog.Attr) slog.Attr {
	if m.sensitive(a.Key) {
		return slog.String(a.Key, maskedValue)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		a.Value = slog.GroupValue(lo.Map(a.Value.Group(), func(ga slog.Attr, _ int) slog.Attr { return m.attr(ga) })...)
	case slog.KindString:
		if s := a.Value.String(); strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
			if masked, ok := m.json([]byte(s)); ok {
				a.Value = slog.StringValue(masked)
			}
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any:
			a.Value = slog.AnyValue(m.data(v))
		case map[string]string:
			a.Value = slog.AnyValue(m.data(lo.MapValues(v, func(s string, _ string) any { return s })))
		case []any:
			a.Value = slog.AnyValue(m.data(v))
		case []byte:
			if masked, ok := m.json(v); ok {
				a.Value = slog.StringValue(masked)
			}
		}
	}

	return a
}

func (m masker) json(payload []byte) (string, bool) {
	var body any
	if len(payload) == 0 || json.Unmarshal(payload, &body) != nil {
		return "", false
	}

	b, err := json.Marshal(m.data(body))
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (m masker) data(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if m.sensitive(k) {
				out[k] = maskedValue
				continue
			}
			out[k] = m.data(inner)
		}
		return out
	case []any:
		return lo.Map(val, func(inner any, _ int) any { return m.data(inner) })
	default:
		return v
	}
}
