package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/me/odmimport/internal/logging"
	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
)

func testNormalizer() *Normalizer {
	return NewNormalizer(logging.Discard())
}

func tok(tag tree.Tag, value string) tree.Token {
	return tree.Token{Tag: tag, Value: value}
}

func build(t *testing.T, tokens ...tree.Token) tree.Tree {
	t.Helper()
	tr, err := tree.Build(tokens)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tr
}

func normalize(t *testing.T, opts Options, tokens ...tree.Token) (tree.Tree, error) {
	t.Helper()
	return testNormalizer().Normalize(build(t, tokens...), opts)
}

func wantValidation(t *testing.T, err error, pass, msgPart string) {
	t.Helper()
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *model.ValidationError, got %v", err)
	}
	if ve.Pass != pass {
		t.Errorf("pass = %q, want %q (%v)", ve.Pass, pass, ve)
	}
	if !strings.Contains(ve.Message, msgPart) {
		t.Errorf("message %q does not contain %q", ve.Message, msgPart)
	}
}

func TestNormalize_ValidTreeUnchanged(t *testing.T) {
	tokens := []tree.Token{
		tok(tree.TagSamples, "s3://b/s.tsv"),
		tok(tree.TagExpression, "s3://b/e.gct"),
		tok(tree.TagVariant, "s3://b/v.vcf"),
	}
	got, err := normalize(t, Options{Study: "s3://b/study.tsv"}, tokens...)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if diff := cmp.Diff(build(t, tokens...), got); diff != "" {
		t.Errorf("tree changed (-want +got):\n%s", diff)
	}
}

func TestNormalize_Duplicates(t *testing.T) {
	tests := []struct {
		name   string
		tokens []tree.Token
	}{
		{"same tag", []tree.Token{
			tok(tree.TagSamples, "s3://b/s.tsv"),
			tok(tree.TagSamples, "s3://b/s.tsv"),
		}},
		{"different tags", []tree.Token{
			tok(tree.TagSamples, "s3://b/x.tsv"),
			tok(tree.TagExpression, "s3://b/x.tsv"),
		}},
		{"metadata vs value", []tree.Token{
			tok(tree.TagSamples, "s3://b/s.tsv"),
			tok(tree.TagExpression, "s3://b/e.gct"),
			tok(tree.TagExpressionMetadata, "s3://b/s.tsv"),
		}},
		{"accessions across subtrees", []tree.Token{
			tok(tree.TagLibraries, "LIB1"),
			tok(tree.TagExpression, "EXP1"),
			tok(tree.TagLibraries, "LIB2"),
			tok(tree.TagExpression, "EXP1"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(t, Options{Study: "STUDY1"}, tt.tokens...)
			wantValidation(t, err, "duplicates", "already given")
		})
	}
}

func TestNormalize_ImplicitSamplesAreNotDuplicates(t *testing.T) {
	_, err := normalize(t, Options{Study: "STUDY1"},
		tok(tree.TagLibraries, "LIB1"),
		tok(tree.TagExpression, "s3://b/e1.gct"),
		tok(tree.TagLibraries, "LIB2"),
		tok(tree.TagExpression, "s3://b/e2.gct"),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

func TestNormalize_MappingFileAccession(t *testing.T) {
	got, err := normalize(t, Options{Study: "STUDY1"},
		tok(tree.TagSamples, "SAMP1"),
		tok(tree.TagExpression, "L1"),
		tok(tree.TagMappingFileAccession, "A1"),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	children := got[0].Children
	if len(children) != 2 {
		t.Fatalf("children = %d, want 2", len(children))
	}
	want := &tree.Node{Tag: tree.TagMappingFile, Value: "A1"}
	if diff := cmp.Diff(want, children[1]); diff != "" {
		t.Errorf("merged node mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_MappingFileLinkWithMetadata(t *testing.T) {
	got, err := normalize(t, Options{Study: "STUDY1"},
		tok(tree.TagSamples, "SAMP1"),
		tok(tree.TagExpression, "L1"),
		tok(tree.TagMappingFile, "L2"),
		tok(tree.TagMappingFileMetadata, "M1"),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	children := got[0].Children
	want := []*tree.Node{
		{Tag: tree.TagExpression, Value: "L1"},
		{Tag: tree.TagMappingFile, Value: "L2", Metadata: "M1"},
	}
	if diff := cmp.Diff(want, children); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_MappingFileIsOrderedLast(t *testing.T) {
	got, err := normalize(t, Options{Study: "STUDY1"},
		tok(tree.TagSamples, "SAMP1"),
		tok(tree.TagMappingFile, "s3://b/map.gtf"),
		tok(tree.TagExpression, "s3://b/e1.gct"),
		tok(tree.TagExpression, "s3://b/e2.gct"),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	children := got[0].Children
	if last := children[len(children)-1]; last.Tag != tree.TagMappingFile {
		t.Errorf("last child = %s, want mapping-file", last)
	}
}

func TestNormalize_MappingFileErrors(t *testing.T) {
	tests := []struct {
		name   string
		tokens []tree.Token
		msg    string
	}{
		{"no expression", []tree.Token{
			tok(tree.TagSamples, "SAMP1"),
			tok(tree.TagVariant, "s3://b/v.vcf"),
			tok(tree.TagMappingFile, "s3://b/map.gtf"),
		}, "only be linked to expression"},
		{"metadata only", []tree.Token{
			tok(tree.TagSamples, "SAMP1"),
			tok(tree.TagExpression, "s3://b/e.gct"),
			tok(tree.TagMappingFileMetadata, "s3://b/map.tsv"),
		}, "requires a mapping file link"},
		{"link and accession", []tree.Token{
			tok(tree.TagSamples, "SAMP1"),
			tok(tree.TagExpression, "s3://b/e.gct"),
			tok(tree.TagMappingFile, "s3://b/map.gtf"),
			tok(tree.TagMappingFileAccession, "MAP1"),
		}, "only one mapping file"},
		{"accession with metadata", []tree.Token{
			tok(tree.TagSamples, "SAMP1"),
			tok(tree.TagExpression, "s3://b/e.gct"),
			tok(tree.TagMappingFileAccession, "MAP1"),
			tok(tree.TagMappingFileMetadata, "s3://b/map.tsv"),
		}, "cannot be combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(t, Options{Study: "STUDY1"}, tt.tokens...)
			wantValidation(t, err, "mapping-files", tt.msg)
		})
	}
}

func TestNormalize_DataModel(t *testing.T) {
	tests := []struct {
		name   string
		tokens []tree.Token
		msg    string
	}{
		{"mixed within sample", []tree.Token{
			tok(tree.TagSamples, "s3://b/s.tsv"),
			tok(tree.TagExpression, "s3://b/e.gct"),
			tok(tree.TagLibraries, "s3://b/l.tsv"),
		}, "both libraries/preparations and signal data"},
		{"mixed across samples", []tree.Token{
			tok(tree.TagSamples, "s3://b/s1.tsv"),
			tok(tree.TagLibraries, "s3://b/l.tsv"),
			tok(tree.TagExpression, "s3://b/e1.gct"),
			tok(tree.TagSamples, "s3://b/s2.tsv"),
			tok(tree.TagExpression, "s3://b/e2.gct"),
		}, "other samples use libraries/preparations"},
		{"variant under library", []tree.Token{
			tok(tree.TagSamples, "s3://b/s.tsv"),
			tok(tree.TagLibraries, "s3://b/l.tsv"),
			tok(tree.TagVariant, "s3://b/v.vcf"),
		}, "only expression data"},
		{"flow cytometry under preparation", []tree.Token{
			tok(tree.TagPreparations, "PREP1"),
			tok(tree.TagFlowCytometry, "s3://b/f.facs"),
		}, "only expression data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(t, Options{Study: "STUDY1"}, tt.tokens...)
			wantValidation(t, err, "data-model", tt.msg)
		})
	}
}

func TestNormalize_Versions(t *testing.T) {
	tests := []struct {
		name   string
		study  string
		tokens []tree.Token
		msg    string
	}{
		{"reused previous version", "STUDY1", []tree.Token{
			tok(tree.TagSamples, "ACC1"),
			tok(tree.TagExpression, "s3://b/l.gct[G1]"),
			tok(tree.TagVariant, "s3://b/l2.vcf[G1]"),
		}, "already replaced"},
		{"new study", "s3://b/study.tsv", []tree.Token{
			tok(tree.TagSamples, "ACC1"),
			tok(tree.TagExpression, "s3://b/l.gct[G1]"),
		}, "study given as an accession"},
		{"new sample", "STUDY1", []tree.Token{
			tok(tree.TagSamples, "s3://b/s.tsv"),
			tok(tree.TagExpression, "s3://b/l.gct[G1]"),
		}, "samples given as an accession"},
		{"new library", "STUDY1", []tree.Token{
			tok(tree.TagSamples, "s3://b/s.tsv"),
			tok(tree.TagLibraries, "s3://b/lib.tsv"),
			tok(tree.TagExpression, "s3://b/l.gct[G1]"),
		}, "libraries given as an accession"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(t, Options{Study: tt.study}, tt.tokens...)
			wantValidation(t, err, "versions", tt.msg)
		})
	}
}

func TestNormalize_VersionsAccepted(t *testing.T) {
	_, err := normalize(t, Options{Study: "STUDY1"},
		tok(tree.TagLibraries, "LIB1"),
		tok(tree.TagExpression, "s3://b/l.gct[G1]"),
		tok(tree.TagLibraries, "LIB2"),
		tok(tree.TagExpression, "s3://b/l2.gct[G2]"),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

func TestNormalize_BroadcastToSamples(t *testing.T) {
	got, err := normalize(t, Options{Study: "STUDY1", LinkAll: true},
		tok(tree.TagSamples, "s3://b/s1.tsv"),
		tok(tree.TagExpression, "s3://b/e1.gct"),
		tok(tree.TagMappingFile, "s3://b/map.gtf"),
		tok(tree.TagSamples, "s3://b/s2.tsv"),
		tok(tree.TagVariant, "s3://b/v.vcf"),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for _, root := range got {
		var values []string
		for _, c := range root.Children {
			values = append(values, c.Value)
		}
		want := []string{"s3://b/e1.gct", "s3://b/v.vcf", "s3://b/map.gtf"}
		if diff := cmp.Diff(want, values); diff != "" {
			t.Errorf("%s children mismatch (-want +got):\n%s", root, diff)
		}
	}
	if got[0].Children[0] == got[1].Children[0] {
		t.Error("broadcast copies must not share nodes")
	}
}

func TestNormalize_BroadcastThroughLibraries(t *testing.T) {
	got, err := normalize(t, Options{Study: "STUDY1", LinkAll: true},
		tok(tree.TagSamples, "s3://b/s1.tsv"),
		tok(tree.TagLibraries, "s3://b/l1.tsv"),
		tok(tree.TagExpression, "s3://b/e1.gct"),
		tok(tree.TagSamples, "s3://b/s2.tsv"),
		tok(tree.TagLibraries, "s3://b/l2.tsv"),
		tok(tree.TagExpression, "s3://b/e2.gct"),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for _, root := range got {
		if len(root.Children) != 2 {
			t.Fatalf("%s has %d libraries, want 2", root, len(root.Children))
		}
		for _, lib := range root.Children {
			if len(lib.Children) != 2 {
				t.Errorf("%s under %s has %d signals, want 2", lib, root, len(lib.Children))
			}
		}
	}
	seen := map[*tree.Node]bool{}
	got.Walk(func(n, _ *tree.Node) error {
		if seen[n] {
			t.Errorf("node %s is reachable from two parents", n)
		}
		seen[n] = true
		return nil
	})
}

func TestNormalize_BroadcastRejectsSecondMappingFile(t *testing.T) {
	_, err := normalize(t, Options{Study: "STUDY1", LinkAll: true},
		tok(tree.TagSamples, "s3://b/s1.tsv"),
		tok(tree.TagExpression, "s3://b/e1.gct"),
		tok(tree.TagMappingFile, "s3://b/map1.gtf"),
		tok(tree.TagSamples, "s3://b/s2.tsv"),
		tok(tree.TagExpression, "s3://b/e2.gct"),
		tok(tree.TagMappingFileAccession, "MAP2"),
	)
	wantValidation(t, err, "broadcast", "only one mapping file")
}

func TestNormalize_BroadcastVersionCopiesCountOnce(t *testing.T) {
	_, err := normalize(t, Options{Study: "STUDY1", LinkAll: true},
		tok(tree.TagSamples, "SAMP1"),
		tok(tree.TagExpression, "s3://b/e.gct[G1]"),
		tok(tree.TagSamples, "SAMP2"),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}
