package rscode

import (
	"testing"
)

func TestDecodeMatrixDataFailure(t *testing.T) {
	n, k := 4, 2
	e, err := BuildGenerator(n, k)
	if err != nil {
		t.Fatalf("BuildGenerator error: %v", err)
	}

	// Fail data index 0; alive = {1,2,3,4}.
	alive := []int{1, 2, 3, 4}
	failed := []int{0}
	decode, inv, err := DecodeMatrix(e, n, alive, failed)
	if err != nil {
		t.Fatalf("DecodeMatrix error: %v", err)
	}
	if decode.Rows() != 1 || decode.Cols() != n {
		t.Fatalf("unexpected decode matrix shape: %dx%d", decode.Rows(), decode.Cols())
	}

	// Recomputing from the cached inverse must agree exactly.
	decode2, err := DecodeMatrixFromInverse(e, n, inv, failed)
	if err != nil {
		t.Fatalf("DecodeMatrixFromInverse error: %v", err)
	}
	for c := 0; c < n; c++ {
		if decode.At(0, c) != decode2.At(0, c) {
			t.Fatalf("cached-inverse decode matrix differs at col %d", c)
		}
	}
}

func TestDecodeMatrixParityFailure(t *testing.T) {
	n, k := 4, 2
	e, err := BuildGenerator(n, k)
	if err != nil {
		t.Fatalf("BuildGenerator error: %v", err)
	}

	alive := []int{0, 1, 2, 3}
	failed := []int{5} // second parity block (index n+1 == 5)
	decode, _, err := DecodeMatrix(e, n, alive, failed)
	if err != nil {
		t.Fatalf("DecodeMatrix error: %v", err)
	}
	if decode.Rows() != 1 || decode.Cols() != n {
		t.Fatalf("unexpected decode matrix shape: %dx%d", decode.Rows(), decode.Cols())
	}
}

func TestDecodeMatrixTooFewSurvivors(t *testing.T) {
	n, k := 4, 2
	e, err := BuildGenerator(n, k)
	if err != nil {
		t.Fatalf("BuildGenerator error: %v", err)
	}
	_, _, err = DecodeMatrix(e, n, []int{0, 1, 2}, []int{3})
	if err != ErrTooFewSurvivors {
		t.Fatalf("expected ErrTooFewSurvivors, got %v", err)
	}
}
