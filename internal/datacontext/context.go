// Package datacontext bundles the datasets a model is validated against.
package datacontext

import (
	"fmt"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
)

// DatasetName identifies one of the three datasets of a DataContext
type DatasetName string

const (
	TestingData              DatasetName = "testing_data"
	TrainingData             DatasetName = "training_data"
	MinimumFunctionalityData DatasetName = "minimum_functionality_data"
)

// DatasetNames lists the recognised dataset names
func DatasetNames() []DatasetName {
	return []DatasetName{TestingData, TrainingData, MinimumFunctionalityData}
}

// DataContext is an immutable holder of testing, training and smoke-test
// data plus the name of the target column present in all three.
type DataContext struct {
	testing              *frame.Frame
	training             *frame.Frame
	minimumFunctionality *frame.Frame
	target               string
}

// New validates and builds a DataContext. When minimumFunctionality is nil the
// first row of testing data is used.
func New(testing, training, minimumFunctionality *frame.Frame, target string) (*DataContext, error) {
	if testing == nil || training == nil {
		return nil, fmt.Errorf("%w: testing and training data are required", core.ErrConfiguration)
	}
	if target == "" {
		return nil, fmt.Errorf("%w: target column name is required", core.ErrConfiguration)
	}
	if minimumFunctionality == nil {
		minimumFunctionality = testing.Head(1)
	}

	dc := &DataContext{
		testing:              testing,
		training:             training,
		minimumFunctionality: minimumFunctionality,
		target:               target,
	}
	for _, name := range DatasetNames() {
		df, _ := dc.Dataset(name)
		if !df.HasColumn(target) {
			return nil, fmt.Errorf("%w %q in %s", core.ErrMissingTarget, target, name)
		}
	}
	return dc, nil
}

// Target returns the target column name
func (dc *DataContext) Target() string {
	return dc.target
}

// Dataset returns the full table registered under name
func (dc *DataContext) Dataset(name DatasetName) (*frame.Frame, error) {
	switch name {
	case TestingData:
		return dc.testing, nil
	case TrainingData:
		return dc.training, nil
	case MinimumFunctionalityData:
		return dc.minimumFunctionality, nil
	default:
		return nil, core.NewUnknownDatasetError(string(name))
	}
}

// Features returns the feature column names, in table order
func (dc *DataContext) Features() []string {
	return dc.testing.Drop(dc.target).Columns()
}

// FeaturesAndLabels splits the named dataset on the target column
func (dc *DataContext) FeaturesAndLabels(name DatasetName) (*frame.Frame, frame.Series, error) {
	df, err := dc.Dataset(name)
	if err != nil {
		return nil, frame.Series{}, err
	}
	return df.SplitTarget(dc.target)
}
