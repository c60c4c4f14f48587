package entities

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type fakeRecognizer struct {
	ents []domain.Entity
	err  error
	got  string
}

func (f *fakeRecognizer) Entities(_ context.Context, text string) ([]domain.Entity, error) {
	f.got = text
	return f.ents, f.err
}

func TestExtractCompanyAndLicenses(t *testing.T) {
	ner := &fakeRecognizer{ents: []domain.Entity{
		{Text: "25", Label: domain.LabelCardinal, Start: 19, End: 21},
		{Text: "Acme Corp", Label: domain.LabelOrg, Start: 0, End: 9},
	}}
	x := NewExtractor(logger.Nop(), ner, Options{})

	seed, err := x.Extract(context.Background(), "Acme Corp solicita 25 licencias")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if seed.CompanyName == nil || *seed.CompanyName != "Acme Corp" {
		t.Fatalf("company: want=%q got=%v", "Acme Corp", seed.CompanyName)
	}
	if seed.LicenseCount == nil || *seed.LicenseCount != 25 {
		t.Fatalf("licenses: want=25 got=%v", seed.LicenseCount)
	}
	if ner.got != "Acme Corp solicita 25 licencias" {
		t.Fatalf("recognizer input: got %q", ner.got)
	}
	if got := seed.JSON(); got != `{"nombre_empresa":"Acme Corp","num_licencias":25}` {
		t.Fatalf("seed json: got %s", got)
	}
}

func TestSeedFromEntitiesCardinalPolicy(t *testing.T) {
	ents := []domain.Entity{
		{Text: "dos", Label: domain.LabelCardinal, Start: 0},
		{Text: "1,200", Label: domain.LabelCardinal, Start: 10},
		{Text: "Globex", Label: domain.LabelOrg, Start: 20},
		{Text: "Initech", Label: domain.LabelOrg, Start: 30},
	}

	seed := SeedFromEntities(ents, Options{})
	if seed.LicenseCount == nil || *seed.LicenseCount != 1200 {
		t.Fatalf("first parseable: want=1200 got=%v", seed.LicenseCount)
	}
	if *seed.CompanyName != "Globex" {
		t.Fatalf("company: want=Globex got=%s", *seed.CompanyName)
	}

	strict := SeedFromEntities(ents, Options{StopAtFirstCardinal: true})
	if strict.LicenseCount != nil {
		t.Fatalf("stop at first: want unset got %d", *strict.LicenseCount)
	}
}

func TestSeedFromEntitiesEmpty(t *testing.T) {
	seed := SeedFromEntities(nil, Options{})
	if !seed.IsEmpty() {
		t.Fatalf("want empty seed got %+v", seed)
	}
	if seed.JSON() != "{}" {
		t.Fatalf("json: want {} got %s", seed.JSON())
	}
}

func TestExtractRecognizerFailure(t *testing.T) {
	boom := errors.New("sidecar down")
	x := NewExtractor(logger.Nop(), &fakeRecognizer{err: boom}, Options{})
	seed, err := x.Extract(context.Background(), "texto")
	if !errors.Is(err, boom) {
		t.Fatalf("err: want=%v got=%v", boom, err)
	}
	if !seed.IsEmpty() {
		t.Fatalf("seed: want empty got %+v", seed)
	}
}

func TestParseCount(t *testing.T) {
	for in, want := range map[string]int{"25": 25, " 1,000 ": 1000, "3": 3} {
		got, ok := ParseCount(in)
		if !ok || got != want {
			t.Fatalf("ParseCount(%q): want=%d got=%d ok=%v", in, want, got, ok)
		}
	}
	for _, in := range []string{"veinte", "", "2.5"} {
		if _, ok := ParseCount(in); ok {
			t.Fatalf("ParseCount(%q): want failure", in)
		}
	}
}
