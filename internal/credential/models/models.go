package models

import "time"

// Credential is an issued record. It is immutable once stored: any deviation
// between the stored digest and a digest recomputed over the canonical fields
// signals tampering or corruption.
type Credential struct {
	StudentName    string   `json:"student_name"`
	StudentEmail   string   `json:"student_email,omitempty"`
	Institution    string   `json:"institution"`
	Degree         string   `json:"degree"`
	GraduationYear int      `json:"graduation_year"`
	CGPA           *float64 `json:"cgpa,omitempty"`
	RegNumber      string   `json:"reg_number,omitempty"`
	Honours        string   `json:"honours,omitempty"`
	StateOfOrigin  string   `json:"state_of_origin,omitempty"`

	Digest      string    `json:"hash"`
	IssuedBy    string    `json:"issued_by"`
	IssuerEmail string    `json:"issuer_email"`
	CreatedAt   time.Time `json:"created_at"`
}

// CanonicalPayload returns the credential restricted to the fields covered by
// the digest. Empty optional fields are omitted so a record issued without
// them hashes identically to the original request.
func (c *Credential) CanonicalPayload() map[string]any {
	payload := map[string]any{
		"student_name":    c.StudentName,
		"institution":     c.Institution,
		"degree":          c.Degree,
		"graduation_year": c.GraduationYear,
	}
	if c.StudentEmail != "" {
		payload["student_email"] = c.StudentEmail
	}
	if c.CGPA != nil {
		payload["cgpa"] = *c.CGPA
	}
	if c.RegNumber != "" {
		payload["reg_number"] = c.RegNumber
	}
	if c.Honours != "" {
		payload["honours"] = c.Honours
	}
	if c.StateOfOrigin != "" {
		payload["state_of_origin"] = c.StateOfOrigin
	}
	return payload
}

// Summary is the restricted projection returned to plain users when listing
// credentials.
type Summary struct {
	Digest         string `json:"hash"`
	StudentName    string `json:"student_name"`
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	GraduationYear int    `json:"graduation_year"`
}

// Summary projects the credential into its restricted view.
func (c *Credential) Summary() Summary {
	return Summary{
		Digest:         c.Digest,
		StudentName:    c.StudentName,
		Institution:    c.Institution,
		Degree:         c.Degree,
		GraduationYear: c.GraduationYear,
	}
}
