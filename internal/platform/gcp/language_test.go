package gcp

import (
	"testing"

	"cloud.google.com/go/language/apiv2/languagepb"

	"github.com/yungbote/autodoc-backend/internal/domain"
)

func TestMentionsToEntitiesOrdersByOffset(t *testing.T) {
	ents := []*languagepb.Entity{
		{
			Name: "25",
			Type: languagepb.Entity_NUMBER,
			Mentions: []*languagepb.EntityMention{
				{Text: &languagepb.TextSpan{Content: "25", BeginOffset: 19}},
			},
		},
		{
			Name: "Acme Corp",
			Type: languagepb.Entity_ORGANIZATION,
			Mentions: []*languagepb.EntityMention{
				{Text: &languagepb.TextSpan{Content: "Acme Corp", BeginOffset: 0}},
			},
		},
		{
			Name: "licencias",
			Type: languagepb.Entity_OTHER,
			Mentions: []*languagepb.EntityMention{
				{Text: &languagepb.TextSpan{Content: "licencias", BeginOffset: 22}},
			},
		},
	}
	got := mentionsToEntities(ents)
	if len(got) != 2 {
		t.Fatalf("entities: want=2 got=%d (%v)", len(got), got)
	}
	want := []domain.Entity{
		{Text: "Acme Corp", Label: domain.LabelOrg, Start: 0, End: 9},
		{Text: "25", Label: domain.LabelCardinal, Start: 19, End: 21},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entity %d: want=%+v got=%+v", i, want[i], got[i])
		}
	}
}

func TestProcessorName(t *testing.T) {
	if got := processorName("p", "eu", "abc", ""); got != "projects/p/locations/eu/processors/abc" {
		t.Fatalf("processorName: got=%q", got)
	}
	if got := processorName("p", "eu", "", ""); got != "" {
		t.Fatalf("processorName without id: want empty got=%q", got)
	}
}
