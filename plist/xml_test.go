package plist_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schewwpid/note2PDF/plist"
	pt "github.com/Schewwpid/note2PDF/plist/plisttest"
)

const header = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
`

func encode(t *testing.T, v plist.Value, opts ...plist.EncodeOption) string {
	t.Helper()
	out, err := plist.EncodeXML(v, opts...)
	require.NoError(t, err)
	return string(out)
}

func body(t *testing.T, v plist.Value, opts ...plist.EncodeOption) string {
	t.Helper()
	out := encode(t, v, opts...)
	require.True(t, strings.HasPrefix(out, header), "missing header")
	require.True(t, strings.HasSuffix(out, "</plist>\n"), "missing trailer")
	return strings.TrimSuffix(strings.TrimPrefix(out, header), "</plist>\n")
}

func TestEncodeNote1Scenario(t *testing.T) {
	raw := pt.Binary(pt.Note1())
	v, err := plist.Decode(raw)
	require.NoError(t, err)

	out := encode(t, v)
	assert.Contains(t, out, "<key>pages</key>\n\t\t\t<array>\n\t\t\t\t<string>UID:3</string>\n\t\t\t</array>")
	assert.Contains(t, out, "<key>root</key>\n\t\t<string>UID:1</string>")
	assert.Contains(t, out, "<key>w</key>\n\t\t\t<integer>612</integer>")
	assert.Contains(t, out, "<key>h</key>\n\t\t\t<integer>792</integer>")
	assert.NotContains(t, out, "CF$UID")
}

func TestEncodeExactLayout(t *testing.T) {
	d := plist.NewDict()
	d.Set("zeta", plist.NewArray())
	d.Set("alpha", plist.NewArray(plist.String(""), plist.Boolean(true), plist.Boolean(false)))
	d.Set("mid", plist.NewDict())
	d.Set("when", plist.Date{Time: time.Date(2021, 3, 4, 5, 6, 7, 890000000, time.UTC)})
	d.Set("ref", plist.UID(42))

	want := "<dict>\n" +
		"\t<key>alpha</key>\n" +
		"\t<array>\n" +
		"\t\t<string></string>\n" +
		"\t\t<true/>\n" +
		"\t\t<false/>\n" +
		"\t</array>\n" +
		"\t<key>mid</key>\n" +
		"\t<dict/>\n" +
		"\t<key>ref</key>\n" +
		"\t<string>UID:42</string>\n" +
		"\t<key>when</key>\n" +
		"\t<date>2021-03-04T05:06:07Z</date>\n" +
		"\t<key>zeta</key>\n" +
		"\t<array/>\n" +
		"</dict>\n"
	assert.Equal(t, want, body(t, d))
}

func TestEncodeInsertionOrder(t *testing.T) {
	d := plist.NewDict()
	d.Set("b", plist.Int(1))
	d.Set("a", plist.Int(2))

	out := body(t, d, plist.WithSortKeys(false))
	assert.Less(t, strings.Index(out, "<key>b</key>"), strings.Index(out, "<key>a</key>"))

	out = body(t, d)
	assert.Less(t, strings.Index(out, "<key>a</key>"), strings.Index(out, "<key>b</key>"))
}

func TestEncodeReals(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{-2.5, "-2.5"},
		{0.1, "0.1"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1e15, "1000000000000000.0"},
		{1e16, "1e+16"},
		{1.5e300, "1.5e+300"},
		{123456.789, "123456.789"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}
	for _, tc := range cases {
		got := body(t, plist.Real(tc.in))
		assert.Equal(t, "<real>"+tc.want+"</real>\n", got, "input %v", tc.in)
	}
}

func TestEncodeIntegers(t *testing.T) {
	assert.Equal(t, "<integer>-9223372036854775808</integer>\n", body(t, plist.Int(math.MinInt64)))
	assert.Equal(t, "<integer>18446744073709551615</integer>\n", body(t, plist.Uint(math.MaxUint64)))
}

func TestEncodeDataWrapping(t *testing.T) {
	top := body(t, plist.Data(bytes.Repeat([]byte{0xff}, 60)))
	lines := strings.Split(strings.TrimSuffix(top, "\n"), "\n")
	require.Equal(t, "<data>", lines[0])
	require.Equal(t, "</data>", lines[len(lines)-1])
	// 76 columns at level 0 means 57 input bytes per line.
	assert.Len(t, lines[1], 76)
	assert.Equal(t, "////", lines[2])

	nested := plist.NewArray(plist.NewArray(plist.Data(bytes.Repeat([]byte{0}, 60))))
	out := body(t, nested)
	assert.Contains(t, out, "\t\t<data>\n\t\t"+strings.Repeat("A", 60)+"\n\t\tAAAAAAAAAAAAAAAAAAAA\n\t\t</data>")

	assert.Equal(t, "<data>\n</data>\n", body(t, plist.Data{}))
}

func TestEncodeEscaping(t *testing.T) {
	got := body(t, plist.String("a<b>&c\r\nd\re\x01f\tg"))
	assert.Equal(t, "<string>a&lt;b&gt;&amp;c\nd\ne\uFFFDf\tg</string>\n", got)

	d := plist.NewDict()
	d.Set("k&y", plist.String("v"))
	assert.Contains(t, body(t, d), "<key>k&amp;y</key>")
}

func TestEncodeRejectsNil(t *testing.T) {
	_, err := plist.EncodeXML(nil)
	assert.ErrorIs(t, err, plist.ErrUnsupportedValue)

	var buf bytes.Buffer
	err = plist.NewEncoder(&buf).Encode(plist.NewArray(plist.Int(1), nil))
	assert.ErrorIs(t, err, plist.ErrUnsupportedValue)
	assert.Zero(t, buf.Len(), "nothing may be written on failure")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeWriteError(t *testing.T) {
	err := plist.NewEncoder(failingWriter{}).Encode(plist.String("x"))
	assert.EqualError(t, err, "disk full")
}

// Every decodable value, however deep its UIDs sit, must encode.
func TestEncodeTotalOverNestedUIDs(t *testing.T) {
	var v plist.Value = plist.UID(0)
	for i := 0; i < 50; i++ {
		d := plist.NewDict()
		d.Set("ref", plist.UID(uint64(i)))
		d.Set("next", plist.NewArray(v))
		v = d
	}
	decoded, err := plist.Decode(pt.Binary(v))
	require.NoError(t, err)
	assert.Equal(t, 51, plist.CountUIDs(decoded))

	out := encode(t, decoded)
	assert.Equal(t, 51, strings.Count(out, "<string>UID:"))
	assert.Contains(t, out, "<string>UID:49</string>")
}
