package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"reflect"
	"testing"
)

func TestSetKeepsInsertionOrder(t *testing.T) {
	r := New()
	r.Set("path", "/a/audio.mp3")
	r.Set("content", []byte("x"))
	r.Set("extra", "v")
	r.Set("path", "/b/audio.mp3")

	want := []string{"path", "content", "extra"}
	if got := r.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if s, _ := r.GetString("path"); s != "/b/audio.mp3" {
		t.Errorf("expected overwritten path, got %q", s)
	}
}

func TestDelete(t *testing.T) {
	r := FromPairs("a", 1, "b", 2, "c", 3)
	r.Delete("b")
	r.Delete("missing")

	if got := r.Keys(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Keys() = %v", got)
	}
	if r.Has("b") {
		t.Error("b should be gone")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestGetBytes(t *testing.T) {
	r := FromPairs("bin", []byte{1, 2}, "str", "ab", "num", 3)
	if b, ok := r.GetBytes("bin"); !ok || !bytes.Equal(b, []byte{1, 2}) {
		t.Errorf("bin = %v %v", b, ok)
	}
	if b, ok := r.GetBytes("str"); !ok || string(b) != "ab" {
		t.Errorf("str = %v %v", b, ok)
	}
	if _, ok := r.GetBytes("num"); ok {
		t.Error("numbers are not bytes")
	}
}

func TestCloneIsDeep(t *testing.T) {
	nested := FromPairs("k", "v")
	orig := FromPairs("content", []byte("abc"), "meta", nested, "list", []any{"x"})
	c := orig.Clone()

	c.Set("extra", true)
	cb, _ := c.GetBytes("content")
	cb[0] = 'Z'
	cm, _ := c.Get("meta")
	cm.(*Record).Set("k", "changed")

	if orig.Has("extra") {
		t.Error("clone mutation leaked a key into the original")
	}
	if ob, _ := orig.GetBytes("content"); string(ob) != "abc" {
		t.Errorf("clone shares byte slice: %q", ob)
	}
	if v, _ := nested.GetString("k"); v != "v" {
		t.Errorf("clone shares nested record: %q", v)
	}
}

func TestMarshalJSONOrder(t *testing.T) {
	r := FromPairs("z", "last-inserted-first", "a", json.Number("1.50"), "m", FromPairs("y", true, "b", nil))
	got, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"z":"last-inserted-first","a":1.50,"m":{"y":true,"b":null}}`
	if string(got) != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

func TestMarshalJSONBytesAreBase64(t *testing.T) {
	r := FromPairs("content", []byte("MOCK_AUDIO_BINARY_DATA"))
	got, _ := json.Marshal(r)
	want := `{"content":"` + base64.StdEncoding.EncodeToString([]byte("MOCK_AUDIO_BINARY_DATA")) + `"}`
	if string(got) != want {
		t.Errorf("got %s want %s", got, want)
	}
}

func TestDecodeJSONRoundTrip(t *testing.T) {
	in := `{"path":"/a/audio.mp3","size":12345,"nested":{"b":1,"a":[1,"two",{"x":null}]},"flag":false}`
	r, err := DecodeJSON([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Keys(); !reflect.DeepEqual(got, []string{"path", "size", "nested", "flag"}) {
		t.Errorf("Keys() = %v", got)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != in {
		t.Errorf("round trip changed output:\n got %s\nwant %s", out, in)
	}
}

func TestDecodeJSONBinaryFields(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0, 1, 2, 255})
	in := `{"content":"` + payload + `","label":"not base64 !!"}`
	r, err := DecodeJSON([]byte(in), "content", "label")
	if err != nil {
		t.Fatal(err)
	}
	v, _ := r.Get("content")
	if b, ok := v.([]byte); !ok || !bytes.Equal(b, []byte{0, 1, 2, 255}) {
		t.Errorf("content not decoded: %#v", v)
	}
	if s, ok := r.GetString("label"); !ok || s != "not base64 !!" {
		t.Errorf("undecodable field should stay a string, got %#v", s)
	}
}

func TestDecodeJSONErrors(t *testing.T) {
	for _, in := range []string{``, `[]`, `"x"`, `{"a":1} {"b":2}`, `{"a":}`} {
		if _, err := DecodeJSON([]byte(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestDecodeJSONBatch(t *testing.T) {
	single, err := DecodeJSONBatch([]byte(`  {"a":1}`))
	if err != nil || len(single) != 1 {
		t.Fatalf("single: %v %v", single, err)
	}

	many, err := DecodeJSONBatch([]byte(`[{"path":"1"},{"path":"2"},{"path":"3"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(many) != 3 {
		t.Fatalf("expected 3 records, got %d", len(many))
	}
	for i, r := range many {
		if p, _ := r.GetString("path"); p != string(rune('1'+i)) {
			t.Errorf("record %d path = %q", i, p)
		}
	}

	if _, err := DecodeJSONBatch([]byte(`[{"a":1}, 2]`)); err == nil {
		t.Error("expected error for non-object element")
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var rs []*Record
	if err := json.Unmarshal([]byte(`[{"b":1,"a":2}]`), &rs); err != nil {
		t.Fatal(err)
	}
	if got := rs[0].Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Keys() = %v", got)
	}
}

func TestRangeStopsEarly(t *testing.T) {
	r := FromPairs("a", 1, "b", 2, "c", 3)
	var seen []string
	r.Range(func(k string, _ any) bool {
		seen = append(seen, k)
		return k != "b"
	})
	if !reflect.DeepEqual(seen, []string{"a", "b"}) {
		t.Errorf("seen = %v", seen)
	}
}
