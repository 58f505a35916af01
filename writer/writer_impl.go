package writer

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/Schewwpid/note2PDF/ir/raw"
	"github.com/Schewwpid/note2PDF/ir/semantic"
)

// ErrNoPages is returned for a document without pages.
var ErrNoPages = errors.New("writer: document has no pages")

type impl struct{ cfg Config }

func (w *impl) Write(ctx context.Context, doc *semantic.Document, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || len(doc.Pages) == 0 {
		return ErrNoPages
	}
	objects, catalogRef, infoRef, err := newObjectBuilder(doc, w.cfg, 1).Build()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + pdfVersion(w.cfg) + "\n%\xE2\xE3\xCF\xD3\n")

	ordered := make([]raw.ObjectRef, 0, len(objects))
	for ref := range objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })

	offsets := make(map[int]int64, len(ordered))
	for _, ref := range ordered {
		offsets[ref.Num] = int64(buf.Len())
		buf.Write(serializeObject(ref, objects[ref]))
	}

	ids := fileID(buf.Bytes(), w.cfg)
	maxObjNum := ordered[len(ordered)-1].Num

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObjNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObjNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	trailer := buildTrailer(maxObjNum+1, catalogRef, infoRef, ids)
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(trailer))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err = out.Write(buf.Bytes())
	return err
}

func serializeObject(ref raw.ObjectRef, obj raw.Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	buf.Write(serializePrimitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

// fileID returns the two /ID strings. Deterministic output hashes the
// serialised body; otherwise the identifier is random.
func fileID(body []byte, cfg Config) [2][]byte {
	sum := sha256.Sum256(body)
	seed := sum[:16]
	if cfg.Deterministic {
		return [2][]byte{seed, seed}
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		id = seed
	}
	return [2][]byte{id, id}
}

func buildTrailer(size int, catalogRef raw.ObjectRef, infoRef *raw.ObjectRef, ids [2][]byte) *raw.Dict {
	trailer := raw.NewDict()
	trailer.Set("Size", raw.Integer(size))
	trailer.Set("Root", catalogRef)
	if infoRef != nil {
		trailer.Set("Info", *infoRef)
	}
	trailer.Set("ID", raw.NewArray(raw.HexStr(ids[0]), raw.HexStr(ids[1])))
	return trailer
}
