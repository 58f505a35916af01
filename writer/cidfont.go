package writer

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/Schewwpid/note2PDF/ir/raw"
	"github.com/Schewwpid/note2PDF/ir/semantic"
)

// addType0Font writes the Identity-H font dictionary, its CIDFontType2
// descendant and the ToUnicode CMap. Like simple fonts, the font program and
// CMap are left out if compressing them fails.
func (b *objectBuilder) addType0Font(font *semantic.Font, d *raw.Dict) {
	cid := font.DescendantFont
	dd := raw.NewDict()
	dd.Set("Type", raw.Name("Font"))
	subtype := cid.Subtype
	if subtype == "" {
		subtype = "CIDFontType2"
	}
	dd.Set("Subtype", raw.Name(subtype))
	base := cid.BaseFont
	if base == "" {
		base = font.BaseFont
	}
	dd.Set("BaseFont", raw.Name(base))
	info := raw.NewDict()
	info.Set("Registry", raw.Str([]byte(orDefault(cid.CIDSystemInfo.Registry, "Adobe"))))
	info.Set("Ordering", raw.Str([]byte(orDefault(cid.CIDSystemInfo.Ordering, "Identity"))))
	info.Set("Supplement", raw.Integer(cid.CIDSystemInfo.Supplement))
	dd.Set("CIDSystemInfo", info)
	if cid.DW > 0 {
		dd.Set("DW", raw.Integer(cid.DW))
	}
	if len(cid.W) > 0 {
		dd.Set("W", encodeCIDWidths(cid.W))
	}
	if cid.CIDToGIDMapName != "" {
		dd.Set("CIDToGIDMap", raw.Name(cid.CIDToGIDMapName))
	}
	if fd, err := b.addFontDescriptor(cid.Descriptor); err == nil && fd != nil {
		dd.Set("FontDescriptor", *fd)
	}
	descRef := b.nextRef()
	b.objects[descRef] = dd
	d.Set("DescendantFonts", raw.NewArray(descRef))

	if cmap := toUnicodeCMap(font); len(cmap) > 0 {
		if s, err := stream(raw.NewDict(), cmap, "", b.cfg); err == nil {
			ref := b.nextRef()
			b.objects[ref] = s
			d.Set("ToUnicode", ref)
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// encodeCIDWidths writes W as "first [w1 w2 ...]" entries, one per run of
// consecutive CIDs.
func encodeCIDWidths(widths map[int]int) *raw.Array {
	arr := raw.NewArray()
	cids := slices.Sorted(maps.Keys(widths))
	for i := 0; i < len(cids); {
		j := i + 1
		for j < len(cids) && cids[j] == cids[j-1]+1 {
			j++
		}
		run := raw.NewArray()
		for _, c := range cids[i:j] {
			run.Append(raw.Integer(widths[c]))
		}
		arr.Append(raw.Integer(cids[i]))
		arr.Append(run)
		i = j
	}
	return arr
}

// toUnicodeCMap renders font.ToUnicode as a two-byte bfchar CMap so text
// set in glyph IDs can be extracted and searched.
func toUnicodeCMap(font *semantic.Font) []byte {
	if len(font.ToUnicode) == 0 {
		return nil
	}
	cids := slices.Sorted(maps.Keys(font.ToUnicode))
	info := semantic.CIDSystemInfo{Registry: "Adobe", Ordering: "UCS"}
	name := strings.ReplaceAll(orDefault(font.BaseFont, "ToUnicode"), " ", "") + "-UTF16"

	var buf bytes.Buffer
	buf.WriteString("/CIDInit /ProcSet findresource begin\n")
	buf.WriteString("12 dict begin\n")
	buf.WriteString("begincmap\n")
	fmt.Fprintf(&buf, "/CIDSystemInfo << /Registry (%s) /Ordering (%s) /Supplement %d >> def\n", info.Registry, info.Ordering, info.Supplement)
	fmt.Fprintf(&buf, "/CMapName /%s def\n", name)
	buf.WriteString("/CMapType 2 def\n")
	buf.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for i := 0; i < len(cids); i += 100 {
		chunk := cids[i:min(i+100, len(cids))]
		fmt.Fprintf(&buf, "%d beginbfchar\n", len(chunk))
		for _, cid := range chunk {
			fmt.Fprintf(&buf, "<%04X> <", cid)
			for _, u := range utf16.Encode(font.ToUnicode[cid]) {
				fmt.Fprintf(&buf, "%04X", u)
			}
			buf.WriteString(">\n")
		}
		buf.WriteString("endbfchar\n")
	}
	buf.WriteString("endcmap\n")
	buf.WriteString("CMapName currentdict /CMap defineresource pop\n")
	buf.WriteString("end\nend\n")
	return buf.Bytes()
}
