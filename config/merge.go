package config

// mergeConfigs merges override configuration into base. Scalar fields
// replace when set; lists replace wholesale when non-nil.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Coordination = mergeCoordination(result.Coordination, override.Coordination)
	result.Sync = mergeSync(result.Sync, override.Sync)
	result.Registry = mergeRegistry(result.Registry, override.Registry)

	// Merge extensions
	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(result.Extensions)+len(override.Extensions))
		for k, v := range result.Extensions {
			merged[k] = v
		}
		for key, value := range override.Extensions {
			// If both base and override have the same extension key, merge them
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					mergedMap := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						mergedMap[k] = v
					}
					for k, v := range overrideMap {
						mergedMap[k] = v
					}
					merged[key] = mergedMap
					continue
				}
			}
			// Otherwise just replace
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}

func mergeCoordination(base, override CoordinationConfig) CoordinationConfig {
	result := base

	if override.RegistryDir != "" {
		result.RegistryDir = override.RegistryDir
	}
	if override.StaleAfter != "" {
		result.StaleAfter = override.StaleAfter
	}
	if override.ZombieAfter != "" {
		result.ZombieAfter = override.ZombieAfter
	}
	if override.ConflictMode != "" {
		result.ConflictMode = override.ConflictMode
	}
	if override.Ignore != nil {
		result.Ignore = override.Ignore
	}

	return result
}

func mergeSync(base, override SyncConfig) SyncConfig {
	result := base

	if override.TTL != "" {
		result.TTL = override.TTL
	}
	if override.DefaultRemote != "" {
		result.DefaultRemote = override.DefaultRemote
	}
	if override.MaxCommits != 0 {
		result.MaxCommits = override.MaxCommits
	}
	if override.Fetch != nil {
		result.Fetch = override.Fetch
	}
	if override.DependencyFiles != nil {
		result.DependencyFiles = override.DependencyFiles
	}
	if override.HighImpactPaths != nil {
		result.HighImpactPaths = override.HighImpactPaths
	}

	return result
}

func mergeRegistry(base, override RegistryConfig) RegistryConfig {
	result := base

	if override.Backend != "" {
		result.Backend = override.Backend
	}
	if override.RedisURL != "" {
		result.RedisURL = override.RedisURL
	}
	if override.Namespace != "" {
		result.Namespace = override.Namespace
	}

	return result
}
