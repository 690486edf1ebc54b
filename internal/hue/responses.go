package hue

import (
	"encoding/json"

	"github.com/amimof/huego"
)

// apiResponse mirrors one element of a v1 response list. huego's own
// APIError decoder asserts every field is present, so bridge replies are
// decoded here and converted afterwards.
type apiResponse struct {
	Success map[string]any `json:"success,omitempty"`
	Error   *apiError      `json:"error,omitempty"`
}

type apiError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func decodeResponses(data []byte) ([]huego.APIResponse, error) {
	var raw []apiResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	result := make([]huego.APIResponse, len(raw))
	for i, r := range raw {
		result[i].Success = r.Success
		if r.Error != nil {
			result[i].Error = &huego.APIError{
				Type:        r.Error.Type,
				Address:     r.Error.Address,
				Description: r.Error.Description,
			}
		}
	}
	return result, nil
}
