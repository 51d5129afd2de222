package vault

import "testing"

func TestCipher_SealOpenRoundTrip(t *testing.T) {
	c, err := NewCipher([]byte("test-master-key-material-32bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ct, nonce, err := c.Seal("ws-1", []byte("hello vault"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if string(ct) == "hello vault" {
		t.Fatal("ciphertext must not equal plaintext")
	}

	pt, err := c.Open("ws-1", ct, nonce)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if string(pt) != "hello vault" {
		t.Fatalf("got %q", pt)
	}
}

func TestCipher_DifferentWorkspacesDeriveDifferentKeys(t *testing.T) {
	c, _ := NewCipher([]byte("test-master-key-material-32bytes"))

	ct, nonce, _ := c.Seal("ws-a", []byte("secret"))
	if _, err := c.Open("ws-b", ct, nonce); err == nil {
		t.Fatal("expected decryption under a different workspace key to fail")
	}
}

func TestNewCipher_RejectsEmptyMasterKey(t *testing.T) {
	if _, err := NewCipher(nil); err == nil {
		t.Fatal("expected error for empty master key")
	}
}
