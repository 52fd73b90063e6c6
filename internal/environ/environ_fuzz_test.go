package environ

import (
	"bytes"
	"testing"
)

// FuzzParseBlock fuzzes the environ-block parser with arbitrary bytes to
// ensure it never panics and that parse -> serialize -> parse is stable.
func FuzzParseBlock(f *testing.F) {
	f.Add([]byte("A=1\x00B=2\x00"))
	f.Add([]byte("A=1\x00GARBAGE\x00B=2\x00"))
	f.Add([]byte("=nokey\x00\x00trailing"))
	f.Add([]byte{0})
	f.Add([]byte("K=v with spaces\x00K=dup\x00"))

	f.Fuzz(func(t *testing.T, data []byte) {
		first := ParseBlock(data)
		// Invariants: keys are non-empty and contain neither NUL nor '='
		// before their first character, values contain no NUL.
		var buf bytes.Buffer
		for k, v := range first {
			if k == "" {
				t.Fatalf("empty key parsed from %q", data)
			}
			if bytes.ContainsRune([]byte(k), 0) || bytes.ContainsRune([]byte(v), 0) {
				t.Fatalf("NUL leaked into entry %q=%q", k, v)
			}
			buf.WriteString(k)
			buf.WriteByte('=')
			buf.WriteString(v)
			buf.WriteByte(0)
		}
		second := ParseBlock(buf.Bytes())
		if len(second) != len(first) {
			t.Fatalf("reparse changed entry count: %d vs %d", len(first), len(second))
		}
		for k, v := range first {
			if second[k] != v {
				t.Fatalf("reparse changed %q: %q vs %q", k, v, second[k])
			}
		}
	})
}
