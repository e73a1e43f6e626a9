package registry

import "testing"

func TestLookupKnownExtensions(t *testing.T) {
	for _, ext := range []string{".go", ".py", ".js", ".ts", ".tsx", ".java", ".cs", ".cpp", ".php", ".rs", ".zig"} {
		def, ok := Lookup(ext)
		if !ok {
			t.Fatalf("expected registry entry for %s", ext)
		}
		if def.Grammar == nil {
			t.Fatalf("%s: nil grammar func", ext)
		}
		if def.Query == "" {
			t.Fatalf("%s: empty query", ext)
		}
	}
}

func TestLookupUnknownExtension(t *testing.T) {
	if _, ok := Lookup(".nonexistent"); ok {
		t.Fatalf("expected no registry entry for .nonexistent")
	}
}

func TestCaptureKindsCoverFunctionAndClass(t *testing.T) {
	if k, ok := CaptureKinds["function"]; !ok || k.String() != "Function" {
		t.Fatalf("expected function capture to map to Function kind, got %v ok=%v", k, ok)
	}
	if k, ok := CaptureKinds["class"]; !ok || k.String() != "Class" {
		t.Fatalf("expected class capture to map to Class kind, got %v ok=%v", k, ok)
	}
}

func TestExtensionsNonEmpty(t *testing.T) {
	if len(Extensions()) == 0 {
		t.Fatalf("expected at least one registered extension")
	}
}
