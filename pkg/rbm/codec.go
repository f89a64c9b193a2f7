package rbm

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Codec translates between strings and the flattened one-hot rows the
// model operates on. Each of the maxlen character positions occupies a
// contiguous block of nchars entries in a row, and unused trailing
// positions hold the filler symbol.
type Codec struct {
	alphabet []rune
	lookup   map[rune]int
	maxlen   int
	filler   rune
}

// NewCodec builds a codec for the given alphabet and maximum sequence
// length. The filler rune marks unused trailing positions and must be a
// member of the alphabet.
func NewCodec(alphabet string, maxlen int, filler rune) (*Codec, error) {
	runes := []rune(alphabet)
	if len(runes) == 0 {
		return nil, fmt.Errorf("%w: alphabet is empty", ErrConfig)
	}
	if maxlen <= 0 {
		return nil, fmt.Errorf("%w: maxlen must be positive, got %d", ErrConfig, maxlen)
	}
	lookup := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, ok := lookup[r]; ok {
			return nil, fmt.Errorf("%w: duplicate alphabet symbol %q", ErrConfig, r)
		}
		lookup[r] = i
	}
	if _, ok := lookup[filler]; !ok {
		return nil, fmt.Errorf("%w: filler symbol %q is not in the alphabet", ErrConfig, filler)
	}
	return &Codec{
		alphabet: runes,
		lookup:   lookup,
		maxlen:   maxlen,
		filler:   filler,
	}, nil
}

// MaxLen returns the fixed sequence length in characters.
func (c *Codec) MaxLen() int { return c.maxlen }

// NChars returns the alphabet size.
func (c *Codec) NChars() int { return len(c.alphabet) }

// Filler returns the padding symbol.
func (c *Codec) Filler() rune { return c.filler }

// Shape returns the (maxlen, nchars) dimensions of a single encoded
// sequence before flattening.
func (c *Codec) Shape() (int, int) { return c.maxlen, len(c.alphabet) }

// VisibleSize returns the length of a flattened row, maxlen*nchars.
func (c *Codec) VisibleSize() int { return c.maxlen * len(c.alphabet) }

// CharLookup returns the alphabet index of r, reporting whether r is a
// member of the alphabet.
func (c *Codec) CharLookup(r rune) (int, bool) {
	idx, ok := c.lookup[r]
	return idx, ok
}

// Encode one-hots s into a flattened row, padding trailing positions with
// the filler symbol. It fails if s is longer than maxlen or contains a
// rune outside the alphabet.
func (c *Codec) Encode(s string) ([]float64, error) {
	runes := []rune(s)
	if len(runes) > c.maxlen {
		return nil, fmt.Errorf("sequence %q is longer than %d characters", s, c.maxlen)
	}
	nchars := len(c.alphabet)
	row := make([]float64, c.maxlen*nchars)
	fillIdx := c.lookup[c.filler]
	for posn := 0; posn < c.maxlen; posn++ {
		idx := fillIdx
		if posn < len(runes) {
			var ok bool
			idx, ok = c.lookup[runes[posn]]
			if !ok {
				return nil, fmt.Errorf("symbol %q in %q is not in the alphabet", runes[posn], s)
			}
		}
		row[posn*nchars+idx] = 1
	}
	return row, nil
}

// Decode maps a flattened row back to a string. In strict mode every
// position block must be exactly one-hot; otherwise the largest entry in
// each block wins, so ambiguous or continuous-valued rows still decode.
// With pretty set, trailing filler symbols are trimmed.
func (c *Codec) Decode(row []float64, pretty, strict bool) (string, error) {
	nchars := len(c.alphabet)
	if len(row) != c.maxlen*nchars {
		return "", fmt.Errorf("row has %d entries, want %d", len(row), c.maxlen*nchars)
	}
	var builder strings.Builder
	for posn := 0; posn < c.maxlen; posn++ {
		block := row[posn*nchars : (posn+1)*nchars]
		if strict {
			ones := 0
			for _, v := range block {
				switch v {
				case 1:
					ones++
				case 0:
				default:
					return "", fmt.Errorf("position %d holds a non-binary value %v", posn, v)
				}
			}
			if ones != 1 {
				return "", fmt.Errorf("position %d is not one-hot (%d units set)", posn, ones)
			}
		}
		best := 0
		for k, v := range block {
			if v > block[best] {
				best = k
			}
		}
		builder.WriteRune(c.alphabet[best])
	}
	decoded := builder.String()
	if pretty {
		decoded = strings.TrimRight(decoded, string(c.filler))
	}
	return decoded, nil
}

// Mutagen rewrites an encoded example row in place.
type Mutagen func(row []float64)

// MutagenSilhouettes returns a mutagen that replaces every non-filler,
// non-space character in a row with a uniformly random one, preserving
// only which positions are filled versus blank.
func (c *Codec) MutagenSilhouettes(rng *rand.Rand) Mutagen {
	nchars := len(c.alphabet)
	fillIdx := c.lookup[c.filler]
	spaceIdx, hasSpace := c.lookup[' ']

	// Alphabet indices a mutated position may take.
	candidates := make([]int, 0, nchars)
	for k := 0; k < nchars; k++ {
		if k == fillIdx || (hasSpace && k == spaceIdx) {
			continue
		}
		candidates = append(candidates, k)
	}

	return func(row []float64) {
		if len(candidates) == 0 {
			return
		}
		for posn := 0; posn < c.maxlen; posn++ {
			block := row[posn*nchars : (posn+1)*nchars]
			best := 0
			for k, v := range block {
				if v > block[best] {
					best = k
				}
			}
			if best == fillIdx || (hasSpace && best == spaceIdx) {
				continue
			}
			for k := range block {
				block[k] = 0
			}
			block[candidates[rng.IntN(len(candidates))]] = 1
		}
	}
}
