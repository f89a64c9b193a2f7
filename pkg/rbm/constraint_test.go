package rbm

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestConstrainLengthNudgesPaddingBias(t *testing.T) {
	codec := testCodec(t, "abc$", 5, '$')
	model := testModel(t, codec, 4)

	// Seed the intercepts with distinct values so restoration mistakes
	// are visible.
	bias := model.VisibleBias()
	for i := range bias {
		bias[i] = float64(i) * 0.01
	}
	before := slices.Clone(bias)

	padIdx, _ := codec.CharLookup('$')
	nchars := codec.NChars()

	lc, err := ConstrainLength(model, 2, 3)
	if err != nil {
		t.Fatalf("ConstrainLength() error = %v", err)
	}

	wantDelta := []float64{-BigNumber, -BigNumber, 0, BigNumber, BigNumber}
	for posn, want := range wantDelta {
		got := bias[nchars*posn+padIdx] - before[nchars*posn+padIdx]
		if got != want {
			t.Errorf("position %d padding bias delta = %v, want %v", posn, got, want)
		}
	}
	// Non-padding entries must be untouched while the constraint holds.
	for i := range bias {
		if i%nchars == padIdx {
			continue
		}
		if bias[i] != before[i] {
			t.Errorf("non-padding bias %d changed from %v to %v", i, before[i], bias[i])
		}
	}

	lc.Release()
	if !slices.Equal(bias, before) {
		t.Errorf("biases not restored exactly after Release()")
	}

	// A second Release must not re-apply anything.
	lc.Release()
	if !slices.Equal(bias, before) {
		t.Errorf("repeated Release() changed biases")
	}
}

func TestConstrainLengthRestoresOnErrorExit(t *testing.T) {
	codec := testCodec(t, "abc$", 5, '$')
	model := testModel(t, codec, 4)
	bias := model.VisibleBias()
	for i := range bias {
		bias[i] = float64(i) * 0.25
	}
	before := slices.Clone(bias)

	run := func() error {
		lc, err := ConstrainLength(model, 1, 4)
		if err != nil {
			return err
		}
		defer lc.Release()
		return fmt.Errorf("simulated failure inside the constrained scope")
	}

	if err := run(); err == nil {
		t.Fatal("expected the scoped function to fail")
	}
	if !slices.Equal(bias, before) {
		t.Errorf("biases not restored after error exit")
	}
}

func TestConstrainLengthRejectsBadBounds(t *testing.T) {
	codec := testCodec(t, "abc$", 5, '$')

	testCases := []struct {
		name              string
		minLength, maxLen int
	}{
		{"MaxLengthZero", 0, 0},
		{"MaxLengthPastMaxlen", 0, 6},
		{"NegativeMinLength", -1, 3},
		{"MinLengthPastMaxlen", 6, 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			model := testModel(t, codec, 4)
			before := slices.Clone(model.VisibleBias())

			_, err := ConstrainLength(model, tc.minLength, tc.maxLen)
			if !errors.Is(err, ErrConfig) {
				t.Errorf("ConstrainLength() error = %v, want ErrConfig", err)
			}
			if !slices.Equal(model.VisibleBias(), before) {
				t.Errorf("rejected constraint mutated biases")
			}
		})
	}
}
