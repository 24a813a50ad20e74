package store

import (
	"bytes"
	"path/filepath"
	"testing"
)

func kvUnderTest(t *testing.T, name string) KV {
	t.Helper()
	switch name {
	case "memory":
		return NewMemory()
	case "sqlite":
		s, err := Open(filepath.Join(t.TempDir(), "kv.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	default:
		t.Fatalf("unknown store %q", name)
		return nil
	}
}

func TestKVRoundTrip(t *testing.T) {
	for _, name := range []string{"memory", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			kv := kvUnderTest(t, name)

			if _, ok, err := kv.Get("missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
			}

			if err := kv.Set("a", []byte("one")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := kv.Set("a", []byte("two")); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}

			v, ok, err := kv.Get("a")
			if err != nil || !ok {
				t.Fatalf("Get(a) = ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(v, []byte("two")) {
				t.Fatalf("Get(a) = %q, want %q", v, "two")
			}

			if err := kv.Delete("a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := kv.Get("a"); ok {
				t.Fatal("key survived delete")
			}
			if err := kv.Delete("a"); err != nil {
				t.Fatalf("Delete absent key: %v", err)
			}
		})
	}
}

func TestKVKeysPrefix(t *testing.T) {
	for _, name := range []string{"memory", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			kv := kvUnderTest(t, name)

			for _, k := range []string{"cache/v2/b", "cache/v1/a", "cache/v2/a", "syncq/state"} {
				if err := kv.Set(k, []byte("x")); err != nil {
					t.Fatalf("Set(%q): %v", k, err)
				}
			}

			keys, err := kv.Keys("cache/v2/")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			want := []string{"cache/v2/a", "cache/v2/b"}
			if len(keys) != len(want) {
				t.Fatalf("Keys = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Fatalf("Keys = %v, want %v", keys, want)
				}
			}
		})
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set("queue", []byte("pending")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get("queue")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = ok=%v err=%v", ok, err)
	}
	if string(v) != "pending" {
		t.Fatalf("Get after reopen = %q, want %q", v, "pending")
	}
}
