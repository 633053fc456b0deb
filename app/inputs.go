package app

import (
	"fmt"

	"github.com/kilianp07/fieldfleet/config"
	"github.com/kilianp07/fieldfleet/core/model"
	"github.com/kilianp07/fieldfleet/core/prediction"
	"github.com/kilianp07/fieldfleet/infra/input"
)

// Inputs holds the records of one planning run.
type Inputs struct {
	Readings  []model.Reading
	Units     []model.Unit
	Machines  []model.Machine
	Consumers []model.ConsumerRecord
	// Predictions is a replayed forecast. When non-nil it replaces fitting
	// the readings; see Engine.
	Predictions []model.Prediction
}

// Engine returns the engine replaying Predictions, or nil when the run
// fits the readings.
func (in Inputs) Engine() prediction.Engine {
	if in.Predictions == nil {
		return nil
	}
	return prediction.StaticEngine{Predictions: in.Predictions}
}

// Validate checks the rosters. Any malformed record fails the run.
func (in Inputs) Validate() error {
	if err := model.ValidateUnits(in.Units); err != nil {
		return fmt.Errorf("unit roster: %w", err)
	}
	if err := model.ValidateMachines(in.Machines); err != nil {
		return fmt.Errorf("machine roster: %w", err)
	}
	if err := model.ValidateConsumers(in.Consumers); err != nil {
		return fmt.Errorf("consumer roster: %w", err)
	}
	if err := model.ValidatePredictions(in.Predictions); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	return nil
}

// LoadInputs reads the files named by cfg. Machine and consumer rosters are
// optional, and so are readings and units when a forecast is replayed.
func LoadInputs(cfg config.InputsConfig) (Inputs, error) {
	var in Inputs
	var err error
	if cfg.Predictions != "" {
		if in.Predictions, err = input.LoadPredictions(cfg.Predictions); err != nil {
			return Inputs{}, err
		}
	}
	if cfg.Readings != "" || cfg.Predictions == "" {
		if in.Readings, err = input.LoadReadings(cfg.Readings); err != nil {
			return Inputs{}, err
		}
	}
	if cfg.Units != "" || cfg.Predictions == "" {
		if in.Units, err = input.LoadUnits(cfg.Units); err != nil {
			return Inputs{}, err
		}
	}
	if cfg.Machines != "" {
		if in.Machines, err = input.LoadMachines(cfg.Machines); err != nil {
			return Inputs{}, err
		}
	}
	if cfg.Consumers != "" {
		if in.Consumers, err = input.LoadConsumers(cfg.Consumers); err != nil {
			return Inputs{}, err
		}
	}
	return in, nil
}
