package generator

import (
	_ "embed"
	"strings"

	"github-signals/internal/common"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var reportSchema string

// ValidateReport checks a serialized report against the embedded schema.
// A violation is fatal to the run: consumers depend on the report shape,
// so a bad report must never be published.
func ValidateReport(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(reportSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return common.WrapError(common.ErrCodeSchema, "schema validation could not run", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return common.NewError(common.ErrCodeSchema, "report violates schema: "+strings.Join(msgs, "; "))
}
