package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FixedFormatWriter rewrites zerolog JSON lines into fixed-width columns:
//
//	2026-10-19 12:00:00.000 [INF] [monitor        ] Temperature read celsius=55
//	2026-10-19 12:00:01.200 [ERR] [delayed        ] counter unavailable tag=CPUDIAG
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter wraps w.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

const componentWidth = 15

var levelAbbrev = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	take := func(key string) string {
		v, ok := fields[key]
		if !ok {
			return ""
		}
		delete(fields, key)
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}

	ts := formatTimestamp(take("time"))
	lvl, ok := levelAbbrev[take("level")]
	if !ok {
		lvl = "???"
	}
	comp := take("component")
	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}
	msg := take("message")
	delete(fields, "caller")

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%-*s] %s", ts, lvl, componentWidth, comp, msg)
	if extra := formatExtra(fields); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(f.w, b.String())
	return len(p), err
}

// formatTimestamp turns an RFC3339 timestamp into "2006-01-02 15:04:05.000".
func formatTimestamp(ts string) string {
	const width = 23
	if len(ts) < 19 {
		return fmt.Sprintf("%-*s", width, ts)
	}

	out := strings.Replace(ts, "T", " ", 1)
	if idx := strings.IndexAny(out[19:], "Z+-"); idx >= 0 {
		out = out[:19+idx]
	}

	if dot := strings.IndexByte(out, '.'); dot < 0 {
		out += ".000"
	} else if frac := len(out) - dot - 1; frac > 3 {
		out = out[:dot+4]
	} else {
		out += strings.Repeat("0", 3-frac)
	}
	return out
}

func formatExtra(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(s, " \t\n\"") {
			s = fmt.Sprintf("%q", s)
		}
		parts = append(parts, k+"="+s)
	}
	return strings.Join(parts, " ")
}
