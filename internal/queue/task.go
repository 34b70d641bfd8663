// Package queue runs document jobs on Redis through asynq.
//
// A Client enqueues process-document tasks; a Consumer runs them through the
// pipeline and stores the merged document as the task result, where it is
// retained for the configured period.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/pipeline"
)

// TypeProcessDocument is the asynq task type for document jobs.
const TypeProcessDocument = "process-document"

// PagePayload is one page of a job. Exactly one of Path and Data is set.
type PagePayload struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// Payload is the body of a process-document task.
type Payload struct {
	JobID    string        `json:"job_id"`
	CallerID string        `json:"caller_id,omitempty"`
	DocType  string        `json:"doc_type,omitempty"`
	Pages    []PagePayload `json:"pages"`
}

// NewProcessTask encodes p as a process-document task.
func NewProcessTask(p Payload, opts ...asynq.Option) (*asynq.Task, error) {
	if len(p.Pages) == 0 {
		return nil, perrors.NewInputError("enqueue", fmt.Errorf("job has no pages"))
	}
	if _, err := p.docType(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}
	return asynq.NewTask(TypeProcessDocument, data, opts...), nil
}

// inputs resolves the payload pages into pipeline inputs, reading paths from
// disk.
func (p Payload) inputs() ([]pipeline.PageInput, error) {
	out := make([]pipeline.PageInput, len(p.Pages))
	for i, page := range p.Pages {
		in := pipeline.PageInput{Name: page.Name, Data: page.Data}
		switch {
		case page.Path != "" && len(page.Data) > 0:
			return nil, perrors.NewInputError("load_page", fmt.Errorf("page %d has both path and data", i+1))
		case page.Path != "":
			data, err := os.ReadFile(page.Path)
			if err != nil {
				return nil, perrors.NewInputError("load_page", err)
			}
			in.Data = data
			if in.Name == "" {
				in.Name = filepath.Base(page.Path)
			}
		case len(page.Data) == 0:
			return nil, perrors.NewInputError("load_page", fmt.Errorf("page %d is empty", i+1))
		}
		if in.Name == "" {
			in.Name = fmt.Sprintf("page-%d", i+1)
		}
		out[i] = in
	}
	return out, nil
}

func (p Payload) docType() (extract.DocType, error) {
	if p.DocType == "" {
		return extract.DocTypeUnknown, nil
	}
	t, err := extract.ParseDocType(p.DocType)
	if err != nil {
		return "", perrors.NewInputError("doc_type", err)
	}
	return t, nil
}
