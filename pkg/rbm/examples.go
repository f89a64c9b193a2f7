package rbm

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// ExampleSource supplies codec-encoded training examples for the train
// and silhouettes initializers. Draw returns exactly n rows, sampling
// with replacement when the underlying corpus is smaller; a non-nil
// mutagen is applied to each drawn row.
type ExampleSource interface {
	Draw(ctx context.Context, n int, mutagen Mutagen) (*mat.Dense, error)
}

// FileSource serves examples from a plain text file, one sequence per
// line. Lines that cannot be encoded (too long, or containing symbols
// outside the alphabet) are skipped at load time.
type FileSource struct {
	codec *Codec
	rows  [][]float64
	rng   *rand.Rand
}

// NewFileSource reads and encodes every usable line of the file at path.
func NewFileSource(path string, codec *Codec) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open example file: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var rows [][]float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		row, err := codec.Encode(scanner.Text())
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read example file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no encodable examples in %s", ErrConfig, path)
	}

	return &FileSource{
		codec: codec,
		rows:  rows,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

// Len returns the number of usable examples loaded from the file.
func (s *FileSource) Len() int { return len(s.rows) }

// SetRand replaces the source's random source.
func (s *FileSource) SetRand(rng *rand.Rand) {
	if rng != nil {
		s.rng = rng
	}
}

// Draw returns n encoded rows drawn uniformly at random, with
// replacement, from the loaded examples.
func (s *FileSource) Draw(_ context.Context, n int, mutagen Mutagen) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: draw count must be positive, got %d", ErrConfig, n)
	}
	vis := mat.NewDense(n, s.codec.VisibleSize(), nil)
	for i := 0; i < n; i++ {
		row := slices.Clone(s.rows[s.rng.IntN(len(s.rows))])
		if mutagen != nil {
			mutagen(row)
		}
		vis.SetRow(i, row)
	}
	return vis, nil
}
