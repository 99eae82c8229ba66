package mainconfig

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/clinic-occupancy-maps/internal/config"
)

func TestNewS3ClientEndpointOverride(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "sa-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	if awsCfg.Region != "sa-east-1" {
		t.Fatalf("unexpected region %s", awsCfg.Region)
	}

	opts := NewS3Client(awsCfg, cfg).Options()
	if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://localhost:4566" {
		t.Fatalf("expected endpoint override, got %v", opts.BaseEndpoint)
	}
	if !opts.UsePathStyle {
		t.Fatalf("expected path-style addressing with an override")
	}
}

func TestNewS3ClientDefaultEndpoint(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{AWSRegion: "sa-east-1", AWSAccessKeyID: "a", AWSSecretAccessKey: "b"}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	if opts := NewS3Client(awsCfg, cfg).Options(); opts.BaseEndpoint != nil {
		t.Fatalf("expected default endpoint, got %s", *opts.BaseEndpoint)
	}
}
