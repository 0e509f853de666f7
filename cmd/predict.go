package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/salary-predictor/internal/predict"
)

type cliResult struct {
	PredictedSalary json.Number `json:"predicted_salary,omitempty"`
	Currency        string      `json:"currency,omitempty"`
	Period          string      `json:"period,omitempty"`
	Error           string      `json:"error,omitempty"`
}

func newPredictCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Scores job profiles read from a file or stdin",
		Long: `Reads a JSON job profile, or a JSON array of profiles, and prints the
predicted monthly salary for each. Reads stdin when --file is "-" or unset.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file) //nolint:gosec // operator-supplied path
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			var payload any
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("invalid JSON: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			records, isBatch := payload.([]any)
			if !isBatch {
				pred, err := appInstance.Predictor.PredictOne(cmd.Context(), payload)
				if err != nil {
					return fmt.Errorf("predict: %w", err)
				}
				return enc.Encode(toCLIResult(pred, nil))
			}

			outcomes := appInstance.Predictor.PredictBatch(cmd.Context(), records)
			results := make([]cliResult, len(outcomes))
			for i, out := range outcomes {
				results[i] = toCLIResult(out.Prediction, out.Err)
			}
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON input file (default stdin)")
	return cmd
}

func toCLIResult(p predict.Prediction, err error) cliResult {
	if err != nil {
		return cliResult{Error: err.Error()}
	}
	return cliResult{
		PredictedSalary: json.Number(p.Salary.String()),
		Currency:        p.Currency,
		Period:          p.Period,
	}
}
