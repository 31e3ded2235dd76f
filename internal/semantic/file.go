package semantic

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	DataSets []fileDataSet `yaml:"data_sets"`
}

type fileDataSet struct {
	ID                int64              `yaml:"id"`
	Name              string             `yaml:"name"`
	BizName           string             `yaml:"biz_name"`
	Description       string             `yaml:"description"`
	TimeDefaultConfig *TimeDefaultConfig `yaml:"time_default"`
	Metrics           []SchemaElement    `yaml:"metrics"`
	Dimensions        []SchemaElement    `yaml:"dimensions"`
	Terms             []SchemaElement    `yaml:"terms"`
}

// FileSource reads the registry from a YAML document on disk.
type FileSource struct {
	Path string
}

func (f FileSource) Load(_ context.Context) (*Schema, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, fmt.Errorf("semantic schema file path is required")
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open semantic schema file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return DecodeYAML(file)
}

func DecodeYAML(r io.Reader) (*Schema, error) {
	var doc fileDocument
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode semantic schema yaml: %w", err)
	}

	dataSets := make([]DataSetSchema, 0, len(doc.DataSets))
	for _, item := range doc.DataSets {
		timeDefault := TimeDefaultConfig{Unit: NoTimeDefault}
		if item.TimeDefaultConfig != nil {
			timeDefault = *item.TimeDefaultConfig
		}
		dataSets = append(dataSets, DataSetSchema{
			DataSet: SchemaElement{
				ID:          item.ID,
				Name:        item.Name,
				BizName:     item.BizName,
				Description: item.Description,
			},
			Metrics:                  item.Metrics,
			Dimensions:               item.Dimensions,
			Terms:                    item.Terms,
			TagTypeTimeDefaultConfig: timeDefault,
		})
	}
	return NewSchema(dataSets)
}
