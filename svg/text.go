package svg

import (
	"strings"

	"github.com/Schewwpid/note2PDF/coords"
)

// textState carries position and whitespace state across the runs of one
// text element.
type textState struct {
	first      bool
	lastSpace  bool // previous emitted run ended in a space
	runs       []*Text
	ctm        coords.Matrix
	vp         viewport
	pendingPos *Text // position attributes waiting for the next run
}

func (w *walker) text(n *node, st style, ctm coords.Matrix, vp viewport) {
	ts := &textState{first: true, lastSpace: true, ctm: ctm, vp: vp}
	w.textContent(ts, n, st, 0)
	// Trailing whitespace of the element is dropped.
	if k := len(ts.runs); k > 0 {
		last := ts.runs[k-1]
		last.Content = strings.TrimRight(last.Content, " ")
		if last.Content == "" {
			ts.runs = ts.runs[:k-1]
		}
	}
	for _, r := range ts.runs {
		w.d.Items = append(w.d.Items, r)
	}
}

func (w *walker) textContent(ts *textState, n *node, st style, depth int) {
	if depth > maxDepth {
		return
	}
	pos := &Text{AutoX: true, AutoY: true}
	positioned := false
	if v, ok := firstCoord(n, "x", ts.vp.w, st.fontSize); ok {
		pos.X, pos.AutoX, positioned = v, false, true
	}
	if v, ok := firstCoord(n, "y", ts.vp.h, st.fontSize); ok {
		pos.Y, pos.AutoY, positioned = v, false, true
	}
	if v, ok := firstCoord(n, "dx", ts.vp.w, st.fontSize); ok {
		pos.DX, positioned = v, true
	}
	if v, ok := firstCoord(n, "dy", ts.vp.h, st.fontSize); ok {
		pos.DY, positioned = v, true
	}
	if positioned {
		ts.pendingPos = pos
	}

	for _, c := range n.children {
		if c.name == "" {
			w.textRun(ts, c.text, st)
			continue
		}
		if c.name != "tspan" && c.name != "a" {
			continue
		}
		cs := st.child()
		w.applyStyle(&cs, c, ts.vp)
		if !cs.display {
			continue
		}
		cs.opacity *= st.opacity
		w.textContent(ts, c, cs, depth+1)
	}
}

func (w *walker) textRun(ts *textState, raw string, st style) {
	s := collapseSpace(raw)
	if ts.lastSpace {
		s = strings.TrimLeft(s, " ")
	}
	if s == "" {
		return
	}
	ts.lastSpace = strings.HasSuffix(s, " ")
	if st.hidden {
		// Hidden text still advances the pen.
		st.fill = paint{none: true}
	}
	run := &Text{
		Content:     s,
		AutoX:       true,
		AutoY:       true,
		NewChunk:    ts.first,
		FontSize:    st.fontSize,
		Anchor:      st.anchor,
		Fill:        resolvePaint(st.fill, st.color),
		FillOpacity: st.fillOpacity * st.opacity,
		CTM:         ts.ctm,
	}
	if p := ts.pendingPos; p != nil {
		run.X, run.AutoX = p.X, p.AutoX
		run.Y, run.AutoY = p.Y, p.AutoY
		run.DX, run.DY = p.DX, p.DY
		ts.pendingPos = nil
	}
	ts.first = false
	ts.runs = append(ts.runs, run)
}

// collapseSpace applies xml:space="default": newlines are removed, tabs
// become spaces and runs of spaces collapse to one.
func collapseSpace(s string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		switch r {
		case '\n', '\r':
			continue
		case '\t', ' ':
			if prevSpace {
				continue
			}
			b.WriteByte(' ')
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func firstCoord(n *node, name string, ref, fontSize float64) (float64, bool) {
	v, ok := n.attrs[name]
	if !ok {
		return 0, false
	}
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	if len(fields) == 0 {
		return 0, false
	}
	l, err := ParseLength(fields[0])
	if err != nil {
		return 0, false
	}
	return l.Points(ref, fontSize), true
}
