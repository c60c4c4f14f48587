package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

type Product string

const (
	ProductWorkManagement Product = "Work Management"
	ProductCRM            Product = "CRM"
	ProductDev            Product = "Dev"
	ProductService        Product = "Service"
)

// Catalog is the fixed set of subscription products, in prompt order.
func Catalog() []Product {
	return []Product{ProductWorkManagement, ProductCRM, ProductDev, ProductService}
}

func (p Product) Valid() bool {
	for _, c := range Catalog() {
		if p == c {
			return true
		}
	}
	return false
}

// TaxSuffix is appended to every monetary total handed to the presentation layer.
const TaxSuffix = " + IVA"

// SeedRecord is the preliminary NER extraction. Unset fields are omitted.
type SeedRecord struct {
	CompanyName  *string `json:"nombre_empresa,omitempty"`
	LicenseCount *int    `json:"num_licencias,omitempty"`
}

func (s SeedRecord) IsEmpty() bool {
	return s.CompanyName == nil && s.LicenseCount == nil
}

// JSON renders the seed with non-ASCII characters kept literal.
func (s SeedRecord) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSpace(buf.String())
}

type Subscription struct {
	Product     Product `json:"producto"`
	Detail      string  `json:"detalle"`
	AnnualTotal string  `json:"monto_total_anual"`
}

// ProposalRecord is the refined output. Field names are the contract with the
// slide generator and the front-end.
type ProposalRecord struct {
	CompanyName                string         `json:"nombre_empresa"`
	CompanyDescription         string         `json:"descripcion_empresa"`
	Requirements               []string       `json:"requerimientos_y_desafios"`
	LicenseQuantity            FlexString     `json:"cantidad_licencias"`
	ContractTerm               string         `json:"vigencia_contrato"`
	LicenseTypes               []string       `json:"tipo_licencia"`
	Subscriptions              []Subscription `json:"suscripciones"`
	TotalAnnualSubscriptions   string         `json:"total_suscripciones_anual"`
	ImplementationHours        FlexString     `json:"horas_implementacion"`
	ImplementationDuration     string         `json:"duracion_proyecto_implementacion"`
	AnnualImplementationAmount string         `json:"monto_implementacion_anual"`
	Emails                     string         `json:"emails"`
}

// Normalize applies the output policy: emails are always empty and list
// fields serialize as [] rather than null.
func (r *ProposalRecord) Normalize() {
	r.Emails = ""
	if r.Requirements == nil {
		r.Requirements = []string{}
	}
	if r.LicenseTypes == nil {
		r.LicenseTypes = []string{}
	}
	if r.Subscriptions == nil {
		r.Subscriptions = []Subscription{}
	}
}

// FlexString accepts a JSON string or number and keeps it as text.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}
