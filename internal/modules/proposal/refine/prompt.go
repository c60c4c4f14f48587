package refine

// PromptTemplate is rendered with text/template; {{.text}} receives the corpus
// and {{.initial_data}} the JSON seed record.
const PromptTemplate = `
Eres un asistente experto en generación de propuestas comerciales para Seidor, en español.
Tienes **información base** de productos Monday.com (precios, características, usos) proveniente de un PDF estático incluido en el proyecto.
Cuando proceses las distintas fuentes de información (audio, video, PDF, DOCX, ingreso manual), debes combinar las necesidades concretas del cliente con esa información base.

Tienes **información base** de productos Monday.com, seguida del texto transcrito de la reunión.

### Información base de productos:
{{.text}}

### Datos de cliente (transcripción + NER preliminar):
Datos iniciales:
{{.initial_data}}

### Tareas:
1. **Suscripciones:**
   - Lista productos solicitados (1–4).
   - Para cada uno:
     - producto: Work Management, CRM, Dev o Service.
     - detalle: (precio usuario)×(usuarios)×12 meses.
     - monto_total_anual: «<valor> + IVA».
   - total_suscripciones_anual: suma de cada monto_total_anual + IVA.

2. **Implementación:**
   - Solo rellena **horas_implementacion** y **duracion_proyecto_implementacion** si en la reunión o documentación se mencionaron explícitamente horas o duración del proyecto.
   - Si no se mencionan estos detalles, deja ambos campos como cadena vacía.
   - Cuando apliquen, reporta:
     * servicio: 'Proyecto de Implementación'.
     * duracion: 'X horas / Y semanas'.
     * valor: '1.5 UF / Hora'.
     * monto_implementacion_anual: 'horas×1.5 UF + IVA'.

**Instrucciones:**
- Deja campos no encontrados como "".
- emails siempre vacío.

Devuelve **solo** un JSON con estas claves:
` + "```json" + `
{
  "nombre_empresa": "",
  "descripcion_empresa": "",
  "requerimientos_y_desafios": [],
  "cantidad_licencias": "",
  "vigencia_contrato": "",
  "tipo_licencia": [],
  "suscripciones": [
    {"producto":"","detalle":"","monto_total_anual":"<valor> + IVA"}
  ],
  "total_suscripciones_anual": "<suma> + IVA",
  "horas_implementacion": "",
  "duracion_proyecto_implementacion": "",
  "monto_implementacion_anual": "<horas> × 1.5 UF + IVA",
  "emails": ""
}` + "```" + `

Texto combinado: tras información base y datos iniciales.
`

const (
	varText        = "text"
	varInitialData = "initial_data"
)

// PromptVariables lists the template inputs in the order the chain expects.
func PromptVariables() []string { return []string{varText, varInitialData} }
