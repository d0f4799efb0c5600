package linkcheck

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/me/odmimport/internal/logging"
	"github.com/me/odmimport/pkg/model"
)

func testLogger() *slog.Logger {
	return logging.Discard()
}

type fakeS3 struct {
	objects map[string]bool
	calls   int
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.calls++
	if f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, errors.New("NotFound")
}

func TestCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.URL.Path == "/missing.tsv" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	s3api := &fakeS3{objects: map[string]bool{"bucket/data/expr.gct": true}}
	c := New(Config{}, testLogger()).WithS3(s3api)

	tests := []struct {
		name    string
		links   []string
		wantErr []string
	}{
		{
			name:  "all reachable",
			links: []string{server.URL + "/samples.tsv", "s3://bucket/data/expr.gct", "gs://other/skipped"},
		},
		{
			name:    "missing http",
			links:   []string{server.URL + "/missing.tsv"},
			wantErr: []string{"missing.tsv: HTTP 404"},
		},
		{
			name:    "missing s3 and bad s3 link",
			links:   []string{"s3://bucket/data/none.gct", "s3://bucket"},
			wantErr: []string{"s3://bucket/data/none.gct: NotFound", "s3://bucket: s3 link needs a bucket and a key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(context.Background(), tt.links)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Check: %v", err)
				}
				return
			}
			if !model.IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not contain %q", err, want)
				}
			}
		})
	}
}

func TestCheck_DeduplicatesLinks(t *testing.T) {
	s3api := &fakeS3{objects: map[string]bool{"b/k": true}}
	c := New(Config{}, testLogger()).WithS3(s3api)

	if err := c.Check(context.Background(), []string{"s3://b/k", "s3://b/k"}); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if s3api.calls != 1 {
		t.Errorf("HeadObject calls = %d, want 1", s3api.calls)
	}
}
