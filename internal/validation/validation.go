package validation

import (
	"encoding/json"
	"net/http"
	"strings"

	"committer/internal/errors"
)

// maxBody bounds request bodies; path lists for a vault stay far below it.
const maxBody = 4 << 20

type Validator interface {
	Validate() error
}

// PathsRequest is the body of add and revert calls.
type PathsRequest struct {
	Paths []string `json:"paths"`
}

func (p *PathsRequest) Validate() error {
	if len(p.Paths) == 0 {
		return errors.ValidationError("paths are required", nil)
	}
	var bad []int
	for i, path := range p.Paths {
		if strings.TrimSpace(path) == "" {
			bad = append(bad, i)
		}
	}
	if len(bad) > 0 {
		return errors.ValidationError("paths must not be empty", map[string]any{"indexes": bad})
	}
	return nil
}

// CommitRequest is the body of a commit call.
type CommitRequest struct {
	PathsRequest
	Message string `json:"message"`
}

func (c *CommitRequest) Validate() error {
	if strings.TrimSpace(c.Message) == "" {
		return errors.ValidationError("message is required", nil)
	}
	return c.PathsRequest.Validate()
}

// Decode reads a JSON body into v and validates it.
func Decode(r *http.Request, v Validator) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.ValidationError("invalid request body", err.Error())
	}
	return v.Validate()
}

func ValidatePathsRequest(r *http.Request) (*PathsRequest, error) {
	var p PathsRequest
	if err := Decode(r, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func ValidateCommitRequest(r *http.Request) (*CommitRequest, error) {
	var c CommitRequest
	if err := Decode(r, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
