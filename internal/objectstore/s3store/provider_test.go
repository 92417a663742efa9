package s3store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePreset_FillsBlankEndpointAndRegion(t *testing.T) {
	cfg, err := ResolvePreset("minio", Config{Bucket: "b"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000", cfg.Endpoint)
	require.Equal(t, "us-east-1", cfg.Region)
}

func TestResolvePreset_DoesNotOverrideExplicitValues(t *testing.T) {
	cfg, err := ResolvePreset("minio", Config{Bucket: "b", Endpoint: "http://custom:9000", Region: "eu-west-1"})
	require.NoError(t, err)
	require.Equal(t, "http://custom:9000", cfg.Endpoint)
	require.Equal(t, "eu-west-1", cfg.Region)
}

func TestResolvePreset_UnknownProviderErrors(t *testing.T) {
	_, err := ResolvePreset("nope", Config{Bucket: "b"})
	require.Error(t, err)
}

func TestResolvePreset_CaseInsensitive(t *testing.T) {
	cfg, err := ResolvePreset("MinIO", Config{Bucket: "b"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000", cfg.Endpoint)
}
