package refine

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/yungbote/autodoc-backend/internal/domain"
)

//go:embed proposal.schema.json
var proposalSchemaJSON string

var proposalSchema = mustCompileSchema(proposalSchemaJSON, "proposal.schema.json")

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ExtractJSONObject returns the span from the first '{' to the last '}'.
func ExtractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", domain.ErrNoJSONObject
	}
	return raw[start : end+1], nil
}

// ParseRecord decodes and shape-checks a model response. Unknown keys and the
// model's emails are dropped, nulls become empty values, and the output policy
// (empty emails, [] lists) is applied.
func ParseRecord(raw string) (domain.ProposalRecord, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return domain.ProposalRecord{}, err
	}
	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return domain.ProposalRecord{}, fmt.Errorf("decode model json: %w", err)
	}
	if err := proposalSchema.Validate(doc); err != nil {
		return domain.ProposalRecord{}, fmt.Errorf("schema: %w", err)
	}
	fields, ok := doc.(map[string]any)
	if !ok {
		return domain.ProposalRecord{}, fmt.Errorf("schema: model json is not an object")
	}
	// emails is always emptied, so whatever shape the model sent is dropped.
	delete(fields, "emails")
	cleaned, err := json.Marshal(fields)
	if err != nil {
		return domain.ProposalRecord{}, fmt.Errorf("re-encode model json: %w", err)
	}
	var rec domain.ProposalRecord
	if err := json.Unmarshal(cleaned, &rec); err != nil {
		return domain.ProposalRecord{}, fmt.Errorf("decode proposal record: %w", err)
	}
	rec.Normalize()
	return rec, nil
}
