package secretstore

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func TestParseKey(t *testing.T) {
	key := bytes.Repeat([]byte{0xAB}, 32)

	for _, raw := range []string{
		hex.EncodeToString(key),
		"0x" + hex.EncodeToString(key),
		base64.StdEncoding.EncodeToString(key),
	} {
		got, err := ParseKey(raw)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", raw, err)
		}
		if !bytes.Equal(got, key) {
			t.Fatalf("ParseKey(%q) = %x", raw, got)
		}
	}

	if got, err := ParseKey(""); err != nil || got != nil {
		t.Fatalf("empty key: %x, %v", got, err)
	}
	if _, err := ParseKey("deadbeef"); err == nil {
		t.Fatalf("short key accepted")
	}
	if _, err := ParseKey("not-a-key***"); err == nil {
		t.Fatalf("garbage key accepted")
	}
}

func TestStore_SetGetRoundtrip(t *testing.T) {
	ss, err := Open(OpenOptions{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ss.Close()

	if err := ss.SetString("env/TOKEN", "secret"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := ss.GetString("env/TOKEN")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || v != "secret" {
		t.Fatalf("get = %q,%v", v, found)
	}

	_, found, err = ss.GetString("env/MISSING")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if found {
		t.Fatalf("missing key reported found")
	}
}
