package pedersen

import (
	"testing"

	"filippo.io/edwards25519"

	"github.com/veilchain/go-veiled/internal/crypto/group"
)

func TestCommitDeterministic(t *testing.T) {
	b, err := group.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}

	c1 := Commit(42, b)
	c2 := Commit(42, b)
	if c1.V.Equal(c2.V) != 1 {
		t.Error("same value and blind must commit identically")
	}

	c3 := Commit(43, b)
	if c1.V.Equal(c3.V) == 1 {
		t.Error("different values must not collide under the same blind")
	}
}

func TestCommitHiding(t *testing.T) {
	c1, _, err := CommitRandom(42)
	if err != nil {
		t.Fatal(err)
	}
	c2, _, err := CommitRandom(42)
	if err != nil {
		t.Fatal(err)
	}
	if c1.V.Equal(c2.V) == 1 {
		t.Error("fresh blinds must yield distinct commitments")
	}
}

func TestCommitHomomorphic(t *testing.T) {
	b1, _ := group.RandomScalar()
	b2, _ := group.RandomScalar()

	sum := Commit(10, b1).Add(Commit(32, b2))
	bSum := edwards25519.NewScalar().Add(b1, b2)
	want := Commit(42, bSum)

	if sum.V.Equal(want.V) != 1 {
		t.Error("commitment addition must match committed sum")
	}

	diff := Commit(42, b1).Sub(Commit(10, b2))
	bDiff := edwards25519.NewScalar().Subtract(b1, b2)
	wantDiff := Commit(32, bDiff)
	if diff.V.Equal(wantDiff.V) != 1 {
		t.Error("commitment subtraction must match committed difference")
	}
}

func TestCommitmentSerialization(t *testing.T) {
	c, _, err := CommitRandom(7)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseCommitment(c.Bytes())
	if err != nil {
		t.Fatalf("ParseCommitment failed: %v", err)
	}
	if parsed.V.Equal(c.V) != 1 {
		t.Error("parsed commitment does not match")
	}

	if _, err := ParseCommitment([]byte{1}); err == nil {
		t.Error("expected short commitment to fail")
	}
}
