// Package containertest builds note archives for tests.
package containertest

import (
	"bytes"

	"github.com/klauspost/compress/zip"
)

// Entry is one archive member. A nil Data with a trailing slash in Name
// writes a directory entry.
type Entry struct {
	Name  string
	Data  []byte
	Store bool // write uncompressed
}

// Zip returns an archive holding entries in order.
func Zip(entries ...Entry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := zip.Deflate
		if e.Store {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: method})
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(e.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Note returns a note archive with a root folder entry, the session
// descriptor and a page asset.
func Note(root string, session []byte) []byte {
	return Zip(
		Entry{Name: root + "/"},
		Entry{Name: root + "/Session.plist", Data: session},
		Entry{Name: root + "/Assets/page1.png", Data: []byte("not really a png")},
	)
}
