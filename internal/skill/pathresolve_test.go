package skill

import "testing"

func TestResolvePath_RelativeJoinsAllowedRoot(t *testing.T) {
	resolved, err := resolvePath("foo.txt", []string{"/workspace"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != "/workspace/foo.txt" {
		t.Fatalf("got %q", resolved)
	}
}

func TestResolvePath_RejectsOutsideAllowedRoots(t *testing.T) {
	_, err := resolvePath("/etc/passwd", []string{"/workspace"}, nil)
	if err == nil {
		t.Fatal("expected error for path outside allowed roots")
	}
}

func TestResolvePath_RejectsDotDotEscape(t *testing.T) {
	_, err := resolvePath("../../etc/passwd", []string{"/workspace/project"}, nil)
	if err == nil {
		t.Fatal("expected error for a ../ escape")
	}
}

func TestResolvePath_RejectsAbsoluteBlockedPath(t *testing.T) {
	_, err := resolvePath("/workspace/.git/config", []string{"/workspace"}, []string{"/workspace/.git"})
	if err == nil {
		t.Fatal("expected error for path inside an absolute blocked path")
	}
}

func TestResolvePath_RejectsRelativeBlockedPath(t *testing.T) {
	_, err := resolvePath("secrets/key.pem", []string{"/workspace"}, []string{"secrets"})
	if err == nil {
		t.Fatal("expected error for path inside a relative-to-root blocked path")
	}
}

func TestResolvePath_AllowsSiblingOfBlockedPath(t *testing.T) {
	resolved, err := resolvePath("src/main.go", []string{"/workspace"}, []string{"secrets"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != "/workspace/src/main.go" {
		t.Fatalf("got %q", resolved)
	}
}

func TestResolvePath_NoAllowedPathsIsError(t *testing.T) {
	if _, err := resolvePath("foo.txt", nil, nil); err == nil {
		t.Fatal("expected error with no allowed paths configured")
	}
}
