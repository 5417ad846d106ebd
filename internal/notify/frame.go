package notify

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/frame.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

// FrameKind discriminates frames exchanged over a cross-process bridge.
type FrameKind string

const (
	FrameNotification FrameKind = "notification"
	FrameReply        FrameKind = "reply"
	FrameCheck        FrameKind = "check"
)

// Frame is the envelope that carries messages, replies and check requests
// between the coordinator process and a UI process.
type Frame struct {
	Kind         FrameKind `json:"kind"`
	ID           string    `json:"id,omitempty"`
	ExpectsReply bool      `json:"expects_reply,omitempty"`
	Notification *Message  `json:"notification,omitempty"`
	Reply        *Reply    `json:"reply,omitempty"`
}

// FrameError reports a frame that failed schema validation.
type FrameError struct {
	Issues []string
}

func (e *FrameError) Error() string {
	return "invalid frame: " + strings.Join(e.Issues, "; ")
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("frame.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("frame.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// EncodeFrame marshals f to JSON.
func EncodeFrame(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshaling frame: %w", err)
	}
	return data, nil
}

// DecodeFrame validates raw against the frame schema and unmarshals it.
// Schema violations are returned as *FrameError.
func DecodeFrame(raw []byte) (*Frame, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing frame JSON: %w", err)
	}

	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("unexpected validation error type: %w", err)
		}
		return nil, &FrameError{Issues: collectIssues(ve)}
	}

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return &f, nil
}

// collectIssues walks the error tree and keeps the leaf errors, which carry
// the property-level detail.
func collectIssues(ve *jsonschema.ValidationError) []string {
	var issues []string
	seen := make(map[string]bool)

	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, cause := range e.Causes {
				walk(cause)
			}
			return
		}
		if e.ErrorKind == nil {
			return
		}
		path := "/" + strings.Join(e.InstanceLocation, "/")
		issue := path + ": " + e.ErrorKind.LocalizedString(printer)
		if !seen[issue] {
			seen[issue] = true
			issues = append(issues, issue)
		}
	}
	walk(ve)

	if len(issues) == 0 {
		issues = append(issues, ve.Error())
	}
	return issues
}
