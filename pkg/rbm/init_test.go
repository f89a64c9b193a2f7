package rbm

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// writeExampleFile drops training lines into a temp file and returns its path.
func writeExampleFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "examples.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("failed to write example file: %v", err)
	}
	return path
}

// assertOneHot fails unless every position block of every row sums to
// exactly one with a single unit set.
func assertOneHot(t *testing.T, vis *mat.Dense, codec *Codec) {
	t.Helper()
	n, _ := vis.Dims()
	maxlen, nchars := codec.Shape()
	for i := 0; i < n; i++ {
		for posn := 0; posn < maxlen; posn++ {
			var sum float64
			ones := 0
			for k := 0; k < nchars; k++ {
				v := vis.At(i, posn*nchars+k)
				sum += v
				if v == 1 {
					ones++
				}
			}
			if sum != 1 || ones != 1 {
				t.Fatalf("row %d position %d is not one-hot (sum=%v)", i, posn, sum)
			}
		}
	}
}

func TestStartingVisibleShapes(t *testing.T) {
	const n = 7
	codec := testCodec(t, "abc $", 6, '$')
	model := testModel(t, codec, 5)

	source, err := NewFileSource(writeExampleFile(t, "ab c", "ca", "abc ab"), codec)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}

	methods := []InitMethod{
		InitZeros, InitBiases, InitUniform, InitSpaces, InitPadding,
		InitTrain, InitSilhouettes, InitChunks, InitUniformChars,
	}
	for _, method := range methods {
		t.Run(method.String(), func(t *testing.T) {
			vis, err := StartingVisible(context.Background(), method, n, model, source)
			if err != nil {
				t.Fatalf("StartingVisible(%v) error = %v", method, err)
			}
			rows, cols := vis.Dims()
			if rows != n || cols != codec.VisibleSize() {
				t.Errorf("got shape (%d, %d), want (%d, %d)", rows, cols, n, codec.VisibleSize())
			}
		})
	}
}

func TestStartingVisibleOneHotStrategies(t *testing.T) {
	const n = 16
	codec := testCodec(t, "abc $", 6, '$')
	model := testModel(t, codec, 5)

	for _, method := range []InitMethod{InitBiases, InitSpaces, InitPadding, InitChunks, InitUniformChars} {
		t.Run(method.String(), func(t *testing.T) {
			vis, err := StartingVisible(context.Background(), method, n, model, nil)
			if err != nil {
				t.Fatalf("StartingVisible(%v) error = %v", method, err)
			}
			assertOneHot(t, vis, codec)
		})
	}
}

func TestStartingVisibleSpacesAndPadding(t *testing.T) {
	const n = 3
	codec := testCodec(t, "abc $", 4, '$')
	model := testModel(t, codec, 5)

	vis, err := StartingVisible(context.Background(), InitSpaces, n, model, nil)
	if err != nil {
		t.Fatalf("StartingVisible(spaces) error = %v", err)
	}
	for i := 0; i < n; i++ {
		decoded, err := codec.Decode(vis.RawRowView(i), false, true)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if decoded != "    " {
			t.Errorf("spaces row %d decoded to %q", i, decoded)
		}
	}

	vis, err = StartingVisible(context.Background(), InitPadding, n, model, nil)
	if err != nil {
		t.Fatalf("StartingVisible(padding) error = %v", err)
	}
	for i := 0; i < n; i++ {
		decoded, err := codec.Decode(vis.RawRowView(i), false, true)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if decoded != "$$$$" {
			t.Errorf("padding row %d decoded to %q", i, decoded)
		}
	}
}

func TestStartingVisibleSpacesRequiresSpaceInAlphabet(t *testing.T) {
	codec := testCodec(t, "abc$", 4, '$')
	model := testModel(t, codec, 5)

	_, err := StartingVisible(context.Background(), InitSpaces, 2, model, nil)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("StartingVisible(spaces) error = %v, want ErrConfig", err)
	}
}

func TestStartingVisibleTrainRequiresSource(t *testing.T) {
	codec := testCodec(t, "abc$", 4, '$')
	model := testModel(t, codec, 5)

	for _, method := range []InitMethod{InitTrain, InitSilhouettes} {
		if _, err := StartingVisible(context.Background(), method, 2, model, nil); !errors.Is(err, ErrConfig) {
			t.Errorf("StartingVisible(%v) without source error = %v, want ErrConfig", method, err)
		}
	}
}

func TestStartingVisibleUnknownMethod(t *testing.T) {
	codec := testCodec(t, "abc$", 4, '$')
	model := testModel(t, codec, 5)

	bad := InitMethod(42)
	_, err := StartingVisible(context.Background(), bad, 2, model, nil)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("StartingVisible() error = %v, want ErrConfig", err)
	}
	if !strings.Contains(err.Error(), "InitMethod(42)") {
		t.Errorf("error %q does not name the bad method", err)
	}
}

func TestChunkLengthsDistribution(t *testing.T) {
	const n = 1000
	const maxlen = 20

	lengths := chunkLengths(n, maxlen)
	var sum float64
	for _, l := range lengths {
		if l < 1 || l > maxlen {
			t.Fatalf("length %d outside [1, %d]", l, maxlen)
		}
		sum += float64(l)
	}
	mean := sum / n

	// Clipping to [1, maxlen] and truncating to int pull the mean a
	// little under the 0.66*maxlen center.
	if math.Abs(mean-0.66*maxlen) > 1.5 {
		t.Errorf("mean length = %v, want within 1.5 of %v", mean, 0.66*maxlen)
	}
}

func TestStartingVisibleChunksTruncation(t *testing.T) {
	const n = 1000
	const maxlen = 20
	codec := testCodec(t, "abcdefghijklmnopqrstuvwxyz$", maxlen, '$')
	model := testModel(t, codec, 5)

	vis, err := StartingVisible(context.Background(), InitChunks, n, model, nil)
	if err != nil {
		t.Fatalf("StartingVisible(chunks) error = %v", err)
	}
	assertOneHot(t, vis, codec)

	// Each row ends in a filler run, so the index of its last character
	// bounds the sampled truncation length from below. The mean of those
	// bounds should sit close to the 0.66*maxlen center.
	var sum float64
	for i := 0; i < n; i++ {
		decoded, err := codec.Decode(vis.RawRowView(i), true, true)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		sum += float64(len(decoded))
	}
	mean := sum / n
	if mean < 10.5 || mean > 14.5 {
		t.Errorf("mean trimmed length = %v, want near %v", mean, 0.66*maxlen)
	}
}

func TestParseInitMethod(t *testing.T) {
	for _, method := range []InitMethod{
		InitBiases, InitZeros, InitUniform, InitSpaces, InitPadding,
		InitTrain, InitSilhouettes, InitChunks, InitUniformChars,
	} {
		got, err := ParseInitMethod(method.String())
		if err != nil || got != method {
			t.Errorf("ParseInitMethod(%q) = %v, %v", method.String(), got, err)
		}
	}
	if _, err := ParseInitMethod("bogus"); !errors.Is(err, ErrConfig) {
		t.Errorf("ParseInitMethod(bogus) error = %v, want ErrConfig", err)
	}
}
