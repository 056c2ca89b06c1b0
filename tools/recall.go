package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aigentic/fleetassist/recall"
)

// RecallTool returns the recall lookup tool backed by the NHTSA client.
func RecallTool(client *recall.Client) Tool {
	return Tool{
		Schema: schema("recall_query",
			"Retrieves the recall actions related to the make, model, and model year provided.",
			`{"type":"object","properties":{"make":{"type":"string","description":"The vehicle make (e.g., \"Audi\", \"BMW\")."},"model":{"type":"string","description":"The vehicle model (e.g., \"A4\", \"X5\")."},"model_year":{"type":"integer","description":"The model year of the vehicle (e.g., 2022)."}},"required":["make","model","model_year"]}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Make      string `json:"make"`
				Model     string `json:"model"`
				ModelYear int    `json:"model_year"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			if in.Make == "" || in.Model == "" || in.ModelYear == 0 {
				return nil, fmt.Errorf("make, model and model_year are required")
			}
			return client.RecallsByVehicle(ctx, in.Make, in.Model, in.ModelYear)
		},
	}
}
