package password

import (
	"strings"
	"testing"
)

func testParams() Argon2Params {
	return Argon2Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(testParams())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	encoded, err := hasher.Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected PHC prefix: %q", encoded)
	}

	ok, err := hasher.Verify("Secret123", encoded)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = hasher.Verify("Secret124", encoded)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestHashSaltsAreUnique(t *testing.T) {
	hasher, _ := NewArgon2(testParams())

	a, err := hasher.Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := hasher.Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	hasher, _ := NewArgon2(testParams())
	if _, err := hasher.Hash("short"); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	hasher, _ := NewArgon2(testParams())

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	} {
		if _, err := hasher.Verify("Secret123", encoded); err == nil {
			t.Fatalf("expected error for %q", encoded)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	weak, _ := NewArgon2(testParams())
	encoded, err := weak.Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	strongParams := testParams()
	strongParams.Memory = 64 * 1024
	strong, _ := NewArgon2(strongParams)

	upgrade, err := strong.NeedsRehash(encoded)
	if err != nil {
		t.Fatalf("NeedsRehash failed: %v", err)
	}
	if !upgrade {
		t.Fatal("expected rehash for weaker stored parameters")
	}

	same, err := weak.NeedsRehash(encoded)
	if err != nil {
		t.Fatalf("NeedsRehash failed: %v", err)
	}
	if same {
		t.Fatal("unexpected rehash for identical parameters")
	}
}

func TestNewArgon2RejectsWeakParams(t *testing.T) {
	params := testParams()
	params.Memory = 1024
	if _, err := NewArgon2(params); err == nil {
		t.Fatal("expected error for low memory")
	}
}
