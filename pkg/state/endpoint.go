package state

import (
	"fmt"
	"strings"
)

// Deployment environments.
const (
	ProdEnv  = "prod"
	StageEnv = "stage"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "amer"

// Regions lists the regions served by the State service. The first entry is
// the default.
var Regions = []string{"amer", "apac", "emea", "aus"}

const regionPlaceholder = "<region>"

var endpointTemplates = map[string]string{
	ProdEnv:  "https://storage-state-" + regionPlaceholder + ".app-builder.adp.adobe.io",
	StageEnv: "https://storage-state-" + regionPlaceholder + ".stg.app-builder.adp.adobe.io",
}

// ResolveRegion returns region, or DefaultRegion when it is empty. Regions
// outside Regions fail with ErrBadArgument.
func ResolveRegion(region string) (string, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return DefaultRegion, nil
	}
	for _, r := range Regions {
		if r == region {
			return region, nil
		}
	}
	return "", badArgument(
		fmt.Sprintf("region %q is not supported, must be one of [%s]", region, strings.Join(Regions, ", ")),
		map[string]any{"region": region},
	)
}

// ResolveEndpoint maps an environment and a region to the service base URL.
// A non-empty override is returned as is, regardless of env and region.
func ResolveEndpoint(env, region, override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return strings.TrimRight(override, "/"), nil
	}

	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		env = ProdEnv
	}
	tmpl, ok := endpointTemplates[env]
	if !ok {
		return "", badArgument(
			fmt.Sprintf("environment %q is not supported, must be %q or %q", env, ProdEnv, StageEnv),
			map[string]any{"env": env},
		)
	}

	resolved, err := ResolveRegion(region)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(tmpl, regionPlaceholder, resolved), nil
}
