package rbm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
	"gonum.org/v1/gonum/mat"
)

// ExportedModel is the serializable representation of a trained model,
// used for JSON-based import and export.
type ExportedModel struct {
	Alphabet    string    `json:"alphabet"`
	Filler      string    `json:"filler"`
	MaxLen      int       `json:"maxlen"`
	NumHidden   int       `json:"num_hidden"`
	Weights     []float64 `json:"weights"` // row-major (maxlen*nchars, num_hidden)
	HiddenBias  []float64 `json:"hidden_bias"`
	VisibleBias []float64 `json:"visible_bias"`
}

// Export serializes the model into a JSON format and writes it to the
// provided io.Writer. This is useful for backups or for transferring
// trained weights between processes.
func (m *Model) Export(w io.Writer) error {
	nvis, nhid := m.weights.Dims()
	exported := ExportedModel{
		Alphabet:    string(m.codec.alphabet),
		Filler:      string(m.codec.filler),
		MaxLen:      m.codec.maxlen,
		NumHidden:   nhid,
		Weights:     make([]float64, 0, nvis*nhid),
		HiddenBias:  append([]float64(nil), m.hiddenBias...),
		VisibleBias: append([]float64(nil), m.visibleBias...),
	}
	for i := 0; i < nvis; i++ {
		exported.Weights = append(exported.Weights, m.weights.RawRowView(i)...)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportModel reads a JSON representation of a model from an io.Reader
// and reconstructs it, validating that the parameter shapes agree with
// the declared codec dimensions.
func ImportModel(r io.Reader) (*Model, error) {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return nil, fmt.Errorf("failed to decode json model: %w", err)
	}

	fillers := []rune(imported.Filler)
	if len(fillers) != 1 {
		return nil, fmt.Errorf("model filler must be a single symbol, got %q", imported.Filler)
	}
	codec, err := NewCodec(imported.Alphabet, imported.MaxLen, fillers[0])
	if err != nil {
		return nil, err
	}

	model, err := NewModel(codec, imported.NumHidden)
	if err != nil {
		return nil, err
	}
	nvis := codec.VisibleSize()
	if len(imported.Weights) != nvis*imported.NumHidden {
		return nil, fmt.Errorf("model has %d weights, want %d", len(imported.Weights), nvis*imported.NumHidden)
	}
	if len(imported.HiddenBias) != imported.NumHidden {
		return nil, fmt.Errorf("model has %d hidden biases, want %d", len(imported.HiddenBias), imported.NumHidden)
	}
	if len(imported.VisibleBias) != nvis {
		return nil, fmt.Errorf("model has %d visible biases, want %d", len(imported.VisibleBias), nvis)
	}

	model.weights = mat.NewDense(nvis, imported.NumHidden, imported.Weights)
	model.hiddenBias = imported.HiddenBias
	model.visibleBias = imported.VisibleBias
	return model, nil
}

// Save writes the model to path atomically, so a crash mid-write never
// leaves a truncated model file behind.
func (m *Model) Save(path string) error {
	var buf bytes.Buffer
	if err := m.Export(&buf); err != nil {
		return fmt.Errorf("failed to serialize model: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// LoadModel reads a model previously written by Save.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return ImportModel(f)
}
