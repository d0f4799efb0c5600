package tree

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsAccession(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"GSF123", true},
		{"A1", true},
		{"gsf123", false},
		{"GSF", false},
		{"123", false},
		{"s3://bucket/GSF123", false},
		{"GSF123 ", false},
		{Implicit, false},
	}
	for _, tt := range tests {
		if got := IsAccession(tt.in); got != tt.want {
			t.Errorf("IsAccession(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitVersion(t *testing.T) {
	tests := []struct {
		in, link, prev string
	}{
		{"s3://b/e.gct[GSF9]", "s3://b/e.gct", "GSF9"},
		{"s3://b/e.gct", "s3://b/e.gct", ""},
		{"s3://b/e[1].gct", "s3://b/e[1].gct", ""},
		{"[GSF9]", "[GSF9]", ""},
	}
	for _, tt := range tests {
		link, prev := SplitVersion(tt.in)
		if link != tt.link || prev != tt.prev {
			t.Errorf("SplitVersion(%q) = (%q, %q), want (%q, %q)", tt.in, link, prev, tt.link, tt.prev)
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := &Node{Tag: TagLibraries, Value: "s3://b/l.tsv", Children: []*Node{
		{Tag: TagExpression, Value: "s3://b/e.gct", NumberOfFeatureAttributes: intp(2)},
	}}
	c := orig.Clone()
	if diff := cmp.Diff(orig, c); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}
	c.Children[0].Value = "changed"
	*c.Children[0].NumberOfFeatureAttributes = 7
	if orig.Children[0].Value != "s3://b/e.gct" || *orig.Children[0].NumberOfFeatureAttributes != 2 {
		t.Error("mutating the clone changed the original")
	}
}

func TestTree_Links(t *testing.T) {
	tr := Tree{
		{Tag: TagSamples, Value: "s3://b/s.tsv", Children: []*Node{
			{Tag: TagExpression, Value: "s3://b/e.gct[GSF1]", Metadata: "s3://b/m.tsv"},
			{Tag: TagMappingFile, Value: "MAP1"},
		}},
		{Tag: TagSamples, Value: Implicit},
	}
	want := []string{"s3://b/s.tsv", "s3://b/e.gct", "s3://b/m.tsv"}
	if diff := cmp.Diff(want, tr.Links()); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpLoad_RoundTrip(t *testing.T) {
	tr := mustBuild(t,
		tok(TagSamples, "s3://b/s.tsv"),
		tok(TagExpression, "s3://b/e.gct"),
		tok(TagNumberOfFeatureAttributes, "4"),
	)
	var buf bytes.Buffer
	if err := Dump(&buf, "STUDY1", tr); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"study: STUDY1", "tag: samples", "number-of-feature-attributes: 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}

	study, back, err := Load(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if study != "STUDY1" {
		t.Errorf("study = %q", study)
	}
	if diff := cmp.Diff(tr, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
