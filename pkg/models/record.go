package models

import "time"

// Attribute is a canonical field name understood by the structured store.
type Attribute string

const (
	AttrPolicyHolder Attribute = "policyHolder"
	AttrClaimNumber  Attribute = "claimNumber"
	AttrPolicyID     Attribute = "policyID"
	AttrDate         Attribute = "date"
	AttrDeductible   Attribute = "deductible"
)

// RecordAttributes lists the non-identity canonical attributes in column order.
var RecordAttributes = []Attribute{
	AttrPolicyHolder,
	AttrPolicyID,
	AttrDate,
	AttrDeductible,
}

type CanonicalRecord struct {
	// Identity: ClaimNumber is the partition key, FileName the secondary key.
	ClaimNumber string `json:"claimNumber"`
	FileName    string `json:"fileName"`

	// Attributes holds mapped canonical attributes other than the identity fields.
	Attributes map[Attribute]string `json:"attributes,omitempty"`

	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Get returns the value of a canonical attribute, including claimNumber.
func (r *CanonicalRecord) Get(attr Attribute) string {
	if attr == AttrClaimNumber {
		return r.ClaimNumber
	}
	return r.Attributes[attr]
}

// Set assigns a canonical attribute. claimNumber is stored on the identity field.
func (r *CanonicalRecord) Set(attr Attribute, value string) {
	if attr == AttrClaimNumber {
		r.ClaimNumber = value
		return
	}
	if r.Attributes == nil {
		r.Attributes = make(map[Attribute]string)
	}
	r.Attributes[attr] = value
}

// HasAttributes reports whether anything beyond the identity fields was mapped.
// Records without attributes are not persisted.
func (r *CanonicalRecord) HasAttributes() bool {
	for _, v := range r.Attributes {
		if v != "" {
			return true
		}
	}
	return false
}
