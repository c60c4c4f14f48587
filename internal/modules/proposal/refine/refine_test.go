package refine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type scriptedLLM struct {
	replies []reply
	calls   int
	vars    []map[string]any
}

type reply struct {
	text string
	err  error
}

func (s *scriptedLLM) Complete(_ context.Context, vars map[string]any) (string, error) {
	s.vars = append(s.vars, vars)
	i := s.calls
	s.calls++
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i].text, s.replies[i].err
}

type sleepRecorder struct{ delays []time.Duration }

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestRefiner(llm Completer, rec *sleepRecorder) *Refiner {
	opts := DefaultOptions()
	opts.Sleep = rec.sleep
	return NewRefiner(logger.Nop(), llm, opts)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

const validRecord = `{
  "nombre_empresa": "Acme Corp",
  "descripcion_empresa": "Retail",
  "requerimientos_y_desafios": ["centralizar proyectos"],
  "cantidad_licencias": 25,
  "vigencia_contrato": "12 meses",
  "tipo_licencia": ["Pro"],
  "suscripciones": [
    {"producto": "CRM", "detalle": "USD 10 x 25 x 12", "monto_total_anual": "USD 3000 + IVA"}
  ],
  "total_suscripciones_anual": "USD 3000 + IVA",
  "horas_implementacion": "",
  "duracion_proyecto_implementacion": "",
  "monto_implementacion_anual": "",
  "emails": "ventas@acme.test"
}`

var unavailable = errors.New("API returned unexpected status code: 503: Service Unavailable")

func TestDelayDoubles(t *testing.T) {
	for n, want := range map[int]time.Duration{1: 2 * time.Second, 2: 4 * time.Second, 3: 8 * time.Second} {
		if got := Delay(n); got != want {
			t.Fatalf("Delay(%d): want=%s got=%s", n, want, got)
		}
	}
}

func TestRefineExhaustsAfterThreeTransientFailures(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{err: unavailable}}}
	rec := &sleepRecorder{}
	seed := domain.SeedRecord{CompanyName: strPtr("Acme Corp")}

	res := newTestRefiner(llm, rec).Refine(context.Background(), "corpus", seed)

	if llm.calls != 3 {
		t.Fatalf("calls: want=3 got=%d", llm.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if !reflect.DeepEqual(rec.delays, want) {
		t.Fatalf("delays: want=%v got=%v", want, rec.delays)
	}
	if res.Kind != KindDegraded {
		t.Fatalf("kind: want=%s got=%s", KindDegraded, res.Kind)
	}
	if !reflect.DeepEqual(res.Value(), seed) {
		t.Fatalf("value: want seed got %#v", res.Value())
	}
	var te *domain.RefinementTransientError
	if !errors.As(res.Err, &te) || te.Attempt != 3 {
		t.Fatalf("err: want transient attempt 3 got %v", res.Err)
	}
	if len(res.Attempts) != 3 || res.Attempts[2].Delay != 8*time.Second {
		t.Fatalf("attempt log: %+v", res.Attempts)
	}
}

func TestRefineWithoutFinalWait(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{err: unavailable}}}
	rec := &sleepRecorder{}
	r := NewRefiner(logger.Nop(), llm, Options{MaxAttempts: 3, Sleep: rec.sleep})

	res := r.Refine(context.Background(), "corpus", domain.SeedRecord{})
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if !reflect.DeepEqual(rec.delays, want) {
		t.Fatalf("delays: want=%v got=%v", want, rec.delays)
	}
	if res.Kind != KindDegraded {
		t.Fatalf("kind: want=%s got=%s", KindDegraded, res.Kind)
	}
}

func TestRefineRecoversAfterTransientFailures(t *testing.T) {
	for failures := 0; failures <= 2; failures++ {
		replies := []reply{}
		for i := 0; i < failures; i++ {
			replies = append(replies, reply{err: unavailable})
		}
		replies = append(replies, reply{text: validRecord})
		llm := &scriptedLLM{replies: replies}
		rec := &sleepRecorder{}

		res := newTestRefiner(llm, rec).Refine(context.Background(), "corpus", domain.SeedRecord{})
		if llm.calls != failures+1 {
			t.Fatalf("failures=%d calls: want=%d got=%d", failures, failures+1, llm.calls)
		}
		if len(rec.delays) != failures {
			t.Fatalf("failures=%d delays: %v", failures, rec.delays)
		}
		if !res.Refined() {
			t.Fatalf("failures=%d: want refined got %s (%v)", failures, res.Kind, res.Err)
		}
	}
}

func TestRefineGRPCUnavailableIsTransient(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{err: status.Error(codes.Unavailable, "backend down")}, {text: validRecord}}}
	rec := &sleepRecorder{}
	res := newTestRefiner(llm, rec).Refine(context.Background(), "corpus", domain.SeedRecord{})
	if !res.Refined() || llm.calls != 2 {
		t.Fatalf("want refined after 2 calls, got %s after %d", res.Kind, llm.calls)
	}
}

func TestRefineNonTransientErrorDoesNotRetry(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{err: errors.New("API returned unexpected status code: 401: invalid api key")}}}
	rec := &sleepRecorder{}
	seed := domain.SeedRecord{LicenseCount: intPtr(25)}

	res := newTestRefiner(llm, rec).Refine(context.Background(), "corpus", seed)
	if llm.calls != 1 {
		t.Fatalf("calls: want=1 got=%d", llm.calls)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("delays: want none got %v", rec.delays)
	}
	var fe *domain.RefinementFatalError
	if res.Kind != KindDegraded || !errors.As(res.Err, &fe) {
		t.Fatalf("want degraded with fatal error, got %s %v", res.Kind, res.Err)
	}
}

func TestRefineParsesJSONInsideProse(t *testing.T) {
	raw := "Claro, aquí está la propuesta:\n```json\n" + validRecord + "\n```\nSaludos."
	llm := &scriptedLLM{replies: []reply{{text: raw}}}
	res := newTestRefiner(llm, &sleepRecorder{}).Refine(context.Background(), "corpus", domain.SeedRecord{})

	if !res.Refined() {
		t.Fatalf("want refined got %s (%v)", res.Kind, res.Err)
	}
	if res.Record.CompanyName != "Acme Corp" {
		t.Fatalf("company: want=%q got=%q", "Acme Corp", res.Record.CompanyName)
	}
	if res.Record.LicenseQuantity != "25" {
		t.Fatalf("licenses: want=%q got=%q", "25", res.Record.LicenseQuantity)
	}
	if res.Record.Emails != "" {
		t.Fatalf("emails: want empty got %q", res.Record.Emails)
	}
}

func TestRefineIgnoresEmailsShape(t *testing.T) {
	for _, emails := range []string{`[]`, `["ventas@acme.cl"]`, `null`, `{"a": "b"}`, `3`} {
		raw := strings.Replace(validRecord, `"emails": "ventas@acme.test"`, `"emails": `+emails, 1)
		llm := &scriptedLLM{replies: []reply{{text: raw}}}
		res := newTestRefiner(llm, &sleepRecorder{}).Refine(context.Background(), "corpus", domain.SeedRecord{})
		if !res.Refined() {
			t.Fatalf("emails=%s: want refined got %s (%v)", emails, res.Kind, res.Err)
		}
		if res.Record.Emails != "" {
			t.Fatalf("emails=%s: want empty got %q", emails, res.Record.Emails)
		}
	}
}

func TestParseRecordAcceptsNulls(t *testing.T) {
	raw := `{
  "nombre_empresa": null,
  "descripcion_empresa": null,
  "requerimientos_y_desafios": null,
  "cantidad_licencias": null,
  "vigencia_contrato": "12 meses",
  "tipo_licencia": null,
  "suscripciones": null,
  "total_suscripciones_anual": null,
  "horas_implementacion": null,
  "duracion_proyecto_implementacion": null,
  "monto_implementacion_anual": null,
  "emails": null
}`
	rec, err := ParseRecord(raw)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.CompanyName != "" || rec.LicenseQuantity != "" || rec.ContractTerm != "12 meses" {
		t.Fatalf("scalars: %+v", rec)
	}
	if rec.Requirements == nil || rec.LicenseTypes == nil || rec.Subscriptions == nil {
		t.Fatalf("lists: want [] got %+v", rec)
	}
}

func TestRefineDegradesOnBadResponses(t *testing.T) {
	cases := map[string]string{
		"no braces":       "lo siento, no puedo ayudar",
		"reversed braces": "} nada {",
		"invalid json":    "{nombre_empresa: Acme}",
		"unknown product": strings.Replace(validRecord, `"CRM"`, `"ERP"`, 1),
		"missing IVA":     strings.Replace(validRecord, `"monto_total_anual": "USD 3000 + IVA"`, `"monto_total_anual": "USD 3000"`, 1),
		"bad total":       strings.Replace(validRecord, `"total_suscripciones_anual": "USD 3000 + IVA"`, `"total_suscripciones_anual": "tres mil"`, 1),
		"wrong list type": strings.Replace(validRecord, `["Pro"]`, `"Pro"`, 1),
	}
	for name, raw := range cases {
		llm := &scriptedLLM{replies: []reply{{text: raw}}}
		seed := domain.SeedRecord{CompanyName: strPtr("Acme Corp")}
		res := newTestRefiner(llm, &sleepRecorder{}).Refine(context.Background(), "corpus", seed)
		if res.Kind != KindDegraded {
			t.Fatalf("%s: want degraded got %s", name, res.Kind)
		}
		if llm.calls != 1 {
			t.Fatalf("%s: calls want=1 got=%d", name, llm.calls)
		}
		if !reflect.DeepEqual(res.Seed, seed) {
			t.Fatalf("%s: seed changed: %#v", name, res.Seed)
		}
	}
}

func TestRefinePromptCarriesCorpusAndSeed(t *testing.T) {
	llm := &scriptedLLM{replies: []reply{{text: validRecord}}}
	seed := domain.SeedRecord{CompanyName: strPtr("Compañía Ñandú"), LicenseCount: intPtr(7)}
	newTestRefiner(llm, &sleepRecorder{}).Refine(context.Background(), "texto de la reunión", seed)

	got := llm.vars[0]
	if got["text"] != "texto de la reunión" {
		t.Fatalf("text var: got %v", got["text"])
	}
	wantSeed := `{"nombre_empresa":"Compañía Ñandú","num_licencias":7}`
	if got["initial_data"] != wantSeed {
		t.Fatalf("initial_data: want=%s got=%v", wantSeed, got["initial_data"])
	}
}

func TestExtractJSONObject(t *testing.T) {
	got, err := ExtractJSONObject(`x {"a": {"b": 1}} y`)
	if err != nil || got != `{"a": {"b": 1}}` {
		t.Fatalf("want nested object got %q (%v)", got, err)
	}
	if _, err := ExtractJSONObject("no object"); !errors.Is(err, domain.ErrNoJSONObject) {
		t.Fatalf("want ErrNoJSONObject got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{unavailable, true},
		{errors.New("service unavailable, try later"), true},
		{fmt.Errorf("wrapped: %w", &domain.RefinementTransientError{Attempt: 1, Err: errors.New("x")}), true},
		{status.Error(codes.Unavailable, "x"), true},
		{status.Error(codes.InvalidArgument, "x"), false},
		{errors.New("400 bad request"), false},
		{errors.New("API returned unexpected status code: 400: prompt has 15030 tokens"), false},
		{errors.New("status code 503"), true},
		{context.Canceled, false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v): want=%v got=%v", tc.err, tc.want, got)
		}
	}
}
