package syncer

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// diff returns the JSON merge patch turning the remote object into the local one. Only fields
// declared locally are compared, fields set by the server are ignored. An empty patch is "{}".
func diff(remote, local map[string]any) ([]byte, error) {
	projection := make(map[string]any, len(local))
	for field := range local {
		if v, ok := remote[field]; ok {
			projection[field] = v
		}
	}

	original, err := json.Marshal(projection)
	if err != nil {
		return nil, fmt.Errorf("failed to encode remote object: %w", err)
	}
	modified, err := json.Marshal(local)
	if err != nil {
		return nil, fmt.Errorf("failed to encode local object: %w", err)
	}

	patch, err := jsonpatch.CreateMergePatch(original, modified)
	if err != nil {
		return nil, fmt.Errorf("failed to compute merge patch: %w", err)
	}
	return patch, nil
}

func isEmptyPatch(patch []byte) bool {
	return string(patch) == "{}"
}
