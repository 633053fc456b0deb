package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kilianp07/fieldfleet/core/model"
)

// LoadPredictions reads a saved forecast. See DecodePredictions.
func LoadPredictions(path string) ([]model.Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("predictions: %w", err)
	}
	defer f.Close()
	return DecodePredictions(f)
}

// DecodePredictions parses JSON holding either a bare prediction list or a
// plan written by the planner, whose forecast.predictions are used.
func DecodePredictions(r io.Reader) ([]model.Prediction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var preds []model.Prediction
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var plan struct {
			Forecast struct {
				Predictions []model.Prediction `json:"predictions"`
			} `json:"forecast"`
		}
		if err := json.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidPrediction, err)
		}
		preds = plan.Forecast.Predictions
	} else if err := json.Unmarshal(data, &preds); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidPrediction, err)
	}
	if err := model.ValidatePredictions(preds); err != nil {
		return nil, err
	}
	if preds == nil {
		preds = []model.Prediction{}
	}
	return preds, nil
}
