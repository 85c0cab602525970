// Package seed loads a JSON seed file describing a competency-mapping process
// and its participating units, and creates the process, the unit hierarchy
// and one subprocess per unit.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

const schema = `{
	"type": "object",
	"required": ["process", "units"],
	"properties": {
		"process": {
			"type": "object",
			"required": ["type", "description"],
			"properties": {
				"type": {"type": "string", "enum": ["MAPEAMENTO", "REVISAO"]},
				"description": {"type": "string", "minLength": 1},
				"prazo": {"type": "string", "format": "date-time"}
			}
		},
		"prazo_etapa1": {"type": "string", "format": "date-time"},
		"units": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["code", "sigla", "name"],
				"properties": {
					"code": {"type": "integer", "minimum": 1},
					"sigla": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"email": {"type": "string"},
					"titular_id": {"type": "string"},
					"superior_sigla": {"type": "string"}
				}
			}
		}
	}
}`

// File is the parsed seed file.
type File struct {
	Process     ProcessSeed `json:"process"`
	PrazoEtapa1 *time.Time  `json:"prazo_etapa1,omitempty"`
	Units       []UnitSeed  `json:"units"`
}

// ProcessSeed describes the process to create.
type ProcessSeed struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Prazo       *time.Time `json:"prazo,omitempty"`
}

// UnitSeed describes one participating unit. SuperiorSigla references another
// unit of the same file or an already-registered unit; empty means root.
type UnitSeed struct {
	Code          int64  `json:"code"`
	Sigla         string `json:"sigla"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	TitularID     string `json:"titular_id,omitempty"`
	SuperiorSigla string `json:"superior_sigla,omitempty"`
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	err = validate(raw)
	if err != nil {
		return nil, err
	}

	var file File

	err = json.Unmarshal(raw, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	return &file, nil
}

func validate(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate seed file: %w", err)
	}

	if !result.Valid() {
		var details []string
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return fmt.Errorf("seed file validation failed: %s", strings.Join(details, "; "))
	}

	return nil
}
