package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rmate/internal/document"
)

func TestVariables_SetReplacesInPlace(t *testing.T) {
	var vs Variables
	vs.Set("a", "1")
	vs.Set("b", "2")
	vs.Set("a", "3")

	want := Variables{{"a", "3"}, {"b", "2"}}
	if diff := cmp.Diff(want, vs); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}
	if vs.Len() != 2 {
		t.Errorf("Len() = %d", vs.Len())
	}
}

func TestVariables_Lookup(t *testing.T) {
	vs := Variables{{"token", "/tmp/x"}}

	if v, ok := vs.Lookup("token"); !ok || v != "/tmp/x" {
		t.Errorf("Lookup(token) = %q, %v", v, ok)
	}
	if _, ok := vs.Lookup("missing"); ok {
		t.Error("Lookup(missing) should report false")
	}
	if vs.Get("missing") != "" {
		t.Error("Get(missing) should be empty")
	}
}

func TestOpenVariables_Order(t *testing.T) {
	d := &document.Descriptor{
		Path:        "notes.txt",
		DisplayName: "box:notes.txt",
		FileType:    "txt",
		Line:        12,
	}
	abs, _ := filepath.Abs("notes.txt")

	want := Variables{
		{KeyDisplayName, "box:notes.txt"},
		{KeyFileType, "txt"},
		{KeyRealPath, abs},
		{KeySelection, "12"},
		{KeyToken, "notes.txt"},
		{KeyDataOnSave, "yes"},
		{KeyReActivate, "yes"},
	}
	if diff := cmp.Diff(want, OpenVariables(d)); diff != "" {
		t.Errorf("open variables mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenVariables_OmitsAbsentHints(t *testing.T) {
	d := &document.Descriptor{DisplayName: "box:untitled (stdin)"}

	want := Variables{
		{KeyDisplayName, "box:untitled (stdin)"},
		{KeyToken, document.StdinToken},
		{KeyDataOnSave, "yes"},
		{KeyReActivate, "yes"},
	}
	if diff := cmp.Diff(want, OpenVariables(d)); diff != "" {
		t.Errorf("open variables mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteOpen_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"text", []byte("hello world\n")},
		{"embedded newlines", []byte("a\n\nb\n\n")},
		{"binary", []byte{0, '\n', 0xff, 0, 'x'}},
		{"no trailing newline", []byte("last line")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &document.Descriptor{
				Payload:     tt.payload,
				Path:        "/srv/app/config.yml",
				DisplayName: "web01:/srv/app/config.yml",
				FileType:    "yaml",
				Line:        3,
			}

			var out bytes.Buffer
			ch := NewChannel(rw{strings.NewReader(""), &out}, nil)
			if err := writeOpen(ch, d); err != nil {
				t.Fatal(err)
			}
			if err := ch.Flush(); err != nil {
				t.Fatal(err)
			}

			got, err := parseOpenFrame(bufio.NewReader(&out))
			if err != nil {
				t.Fatalf("parse: %v\nwire: %q", err, out.String())
			}
			want := openFrame{Vars: OpenVariables(d), Data: tt.payload}
			if diff := cmp.Diff(want, got, cmp.Comparer(bytes.Equal)); diff != "" {
				t.Errorf("frame mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// ── independent frame parser ─────────────────────────────────────────

type openFrame struct {
	Vars Variables
	Data []byte
}

// parseOpenFrame decodes one "open" frame the way an editor listener
// would, without going through Channel.
func parseOpenFrame(r *bufio.Reader) (openFrame, error) {
	var f openFrame

	cmd, err := r.ReadString('\n')
	if err != nil {
		return f, err
	}
	if cmd != "open\n" {
		return f, fmt.Errorf("command = %q", cmd)
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return f, err
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			return f, nil
		}
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			return f, fmt.Errorf("bad line %q", line)
		}
		if k != "data" {
			f.Vars = append(f.Vars, Variable{Key: k, Value: v})
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Data = make([]byte, n)
		if _, err := io.ReadFull(r, f.Data); err != nil {
			return f, err
		}
		if n == 0 {
			f.Data = nil
		}
	}
}
