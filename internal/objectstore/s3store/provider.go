package s3store

import (
	"fmt"
	"strings"
)

// preset holds the connection defaults for one S3-compatible provider. Any
// preset with a non-empty endpoint gets path-style addressing for free: New
// already forces UsePathStyle whenever cfg.Endpoint is set.
type preset struct {
	endpoint      string
	defaultRegion string
}

// presets covers the S3-compatible backends a tiered-storage deployment is
// likely to target, beyond AWS itself.
var presets = map[string]preset{
	"aws":        {endpoint: "", defaultRegion: "us-east-1"},
	"minio":      {endpoint: "http://localhost:9000", defaultRegion: "us-east-1"},
	"garage":     {endpoint: "http://127.0.0.1:3900", defaultRegion: "garage"},
	"wasabi":     {endpoint: "https://s3.wasabisys.com", defaultRegion: "us-east-1"},
	"backblaze":  {endpoint: "https://s3.us-west-000.backblazeb2.com", defaultRegion: "us-west-000"},
	"cloudflare": {endpoint: "", defaultRegion: "auto"},
}

// ResolvePreset fills in cfg.Endpoint and cfg.Region from a named provider
// preset wherever the caller left them blank. AWS itself needs no endpoint
// override, since aws-sdk-go-v2 already resolves it from the region.
func ResolvePreset(provider string, cfg Config) (Config, error) {
	p, ok := presets[strings.ToLower(provider)]
	if !ok {
		names := make([]string, 0, len(presets))
		for name := range presets {
			names = append(names, name)
		}
		return Config{}, fmt.Errorf("s3store: unknown provider %q (supported: %s)", provider, strings.Join(names, ", "))
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = p.endpoint
	}
	if cfg.Region == "" {
		cfg.Region = p.defaultRegion
	}
	return cfg, nil
}
