package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/pipeline"
)

type fakeProcessor struct {
	inputs   []pipeline.PageInput
	hint     extract.DocType
	callerID string
	err      error
	block    bool
}

func (f *fakeProcessor) Process(ctx context.Context, inputs []pipeline.PageInput, hint extract.DocType, callerID string) (pipeline.Document, error) {
	f.inputs, f.hint, f.callerID = inputs, hint, callerID
	if f.block {
		<-ctx.Done()
		return pipeline.Document{}, ctx.Err()
	}
	if f.err != nil {
		return pipeline.Document{}, f.err
	}
	return pipeline.Document{RequestID: "req-1", Pages: make([]pipeline.Page, len(inputs))}, nil
}

func newTestConsumer(p Processor, timeout time.Duration) *Consumer {
	return newConsumer(ConsumerConfig{QueueName: "documents", Processor: p, JobTimeout: timeout})
}

func task(t *testing.T, p Payload) *asynq.Task {
	t.Helper()
	tk, err := NewProcessTask(p)
	if err != nil {
		t.Fatalf("NewProcessTask: %v", err)
	}
	return tk
}

func TestHandleProcessDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	fp := &fakeProcessor{}
	c := newTestConsumer(fp, time.Minute)
	err := c.mux.ProcessTask(context.Background(), task(t, Payload{
		JobID:    "job-1",
		CallerID: "tenant-a",
		DocType:  "Invoice",
		Pages: []PagePayload{
			{Path: path},
			{Data: []byte("png bytes")},
		},
	}))
	if err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}

	if len(fp.inputs) != 2 {
		t.Fatalf("inputs = %d, want 2", len(fp.inputs))
	}
	if fp.inputs[0].Name != "scan.jpg" || string(fp.inputs[0].Data) != "jpeg bytes" {
		t.Errorf("path page = %+v", fp.inputs[0])
	}
	if fp.inputs[1].Name != "page-2" {
		t.Errorf("data page name = %q", fp.inputs[1].Name)
	}
	if fp.hint != extract.DocTypeInvoice || fp.callerID != "tenant-a" {
		t.Errorf("hint = %s caller = %s", fp.hint, fp.callerID)
	}
}

func TestHandleProcessDocument_SkipsRetry(t *testing.T) {
	tests := []struct {
		name string
		task *asynq.Task
		proc *fakeProcessor
	}{
		{
			name: "bad json",
			task: asynq.NewTask(TypeProcessDocument, []byte("{")),
			proc: &fakeProcessor{},
		},
		{
			name: "missing file",
			task: task(t, Payload{JobID: "j", Pages: []PagePayload{{Path: "/does/not/exist.png"}}}),
			proc: &fakeProcessor{},
		},
		{
			name: "path and data",
			task: task(t, Payload{JobID: "j", Pages: []PagePayload{{Path: "a.png", Data: []byte("x")}}}),
			proc: &fakeProcessor{},
		},
		{
			name: "undecodable page",
			task: task(t, Payload{JobID: "j", Pages: []PagePayload{{Data: []byte("x")}}}),
			proc: &fakeProcessor{err: perrors.NewInputError("decode", errors.New("bad image"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestConsumer(tt.proc, time.Minute).handleProcessDocument(context.Background(), tt.task)
			if !errors.Is(err, asynq.SkipRetry) {
				t.Errorf("err = %v, want SkipRetry", err)
			}
		})
	}
}

func TestHandleProcessDocument_RetriesTransientFailure(t *testing.T) {
	fp := &fakeProcessor{err: errors.New("redis went away")}
	err := newTestConsumer(fp, time.Minute).handleProcessDocument(context.Background(),
		task(t, Payload{JobID: "j", Pages: []PagePayload{{Data: []byte("x")}}}))
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Errorf("err = %v, want retryable error", err)
	}
}

func TestHandleProcessDocument_Timeout(t *testing.T) {
	fp := &fakeProcessor{block: true}
	err := newTestConsumer(fp, 20*time.Millisecond).handleProcessDocument(context.Background(),
		task(t, Payload{JobID: "j", Pages: []PagePayload{{Data: []byte("x")}}}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestNewProcessTask(t *testing.T) {
	if _, err := NewProcessTask(Payload{JobID: "j"}); !perrors.IsKind(err, perrors.KindInput) {
		t.Errorf("empty job: err = %v", err)
	}
	if _, err := NewProcessTask(Payload{JobID: "j", DocType: "spreadsheet", Pages: []PagePayload{{Data: []byte("x")}}}); !perrors.IsKind(err, perrors.KindInput) {
		t.Errorf("unknown doc type: err = %v", err)
	}

	tk := task(t, Payload{JobID: "j", DocType: "receipt", Pages: []PagePayload{{Data: []byte("x")}}})
	if tk.Type() != TypeProcessDocument {
		t.Errorf("type = %s", tk.Type())
	}
	var p Payload
	if err := json.Unmarshal(tk.Payload(), &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if string(p.Pages[0].Data) != "x" {
		t.Errorf("page data = %q", p.Pages[0].Data)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{4, time.Minute},
		{40, time.Minute},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.n, nil, nil); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestConfigRequired(t *testing.T) {
	if _, err := NewConsumer(ConsumerConfig{QueueName: "q", Processor: &fakeProcessor{}}); err == nil {
		t.Error("consumer without RedisURL should fail")
	}
	if _, err := NewConsumer(ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "q"}); err == nil {
		t.Error("consumer without processor should fail")
	}
	if _, err := NewClient(ClientConfig{RedisURL: "redis://localhost:6379"}); err == nil {
		t.Error("client without queue should fail")
	}
	if _, err := NewClient(ClientConfig{RedisURL: "ftp://nowhere", QueueName: "q"}); err == nil {
		t.Error("client with a bad URL should fail")
	}
}
