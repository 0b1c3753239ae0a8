package idfm2bq

import (
	"fmt"
	"os"

	"google.golang.org/api/option"
)

const (
	defaultDataset  = "silver"
	defaultLocation = "us-east1"
)

// Config holds everything read from the environment. The gold tables live
// inside the silver dataset: queries against a US-multiregion dataset from a
// us-east1 dataset fail with a location mismatch, so we never create a
// second dataset.
type Config struct {
	ProjectID       string
	Bucket          string
	CredentialsFile string
	Dataset         string
	Location        string
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		ProjectID:       os.Getenv("PROJECT_ID"),
		Bucket:          os.Getenv("BUCKET_NAME"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Dataset:         os.Getenv("BQ_DATASET"),
		Location:        os.Getenv("BQ_LOCATION"),
	}
	if cfg.ProjectID == "" {
		return Config{}, fmt.Errorf("PROJECT_ID is not set")
	}
	if cfg.Bucket == "" {
		return Config{}, fmt.Errorf("BUCKET_NAME is not set")
	}
	if cfg.Dataset == "" {
		cfg.Dataset = defaultDataset
	}
	if cfg.Location == "" {
		cfg.Location = defaultLocation
	}
	return cfg, nil
}

// ClientOptions passes the credential file explicitly when one is configured.
// Without it the SDKs fall back to application default credentials.
func (c Config) ClientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	return opts
}
