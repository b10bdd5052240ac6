// internal/models/application.go
package models

import "time"

// JobApplication is one row of job_applications. Rows are inserted once and
// never updated.
type JobApplication struct {
	ID         string      `json:"id" db:"id"`
	FirstName  string      `json:"firstName" db:"first_name"`
	LastName   string      `json:"lastName" db:"last_name"`
	Email      string      `json:"email" db:"email"`
	Phone      string      `json:"phone" db:"phone"`
	Address    string      `json:"address" db:"address"`
	City       string      `json:"city" db:"city"`
	State      string      `json:"state" db:"state"`
	Zip        string      `json:"zip" db:"zip"`
	Position   string      `json:"position" db:"position"`
	Experience string      `json:"experience" db:"experience"`
	StartDate  time.Time   `json:"startDate" db:"start_date"`
	ResumeURL  *string     `json:"resumeUrl,omitempty" db:"resume_url"`
	References []Reference `json:"references" db:"references"`
	CreatedAt  time.Time   `json:"createdAt" db:"created_at"`
}

type Reference struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

// ApplicationForm is what the careers form submits.
type ApplicationForm struct {
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	Address    string      `json:"address"`
	City       string      `json:"city"`
	State      string      `json:"state"`
	Zip        string      `json:"zip"`
	Position   string      `json:"position"`
	Experience string      `json:"experience"`
	References []Reference `json:"references"`
	FormToken  string      `json:"formToken,omitempty"`
}

// Document returns the form as a generic map for schema validation.
func (f ApplicationForm) Document() map[string]interface{} {
	refs := make([]interface{}, 0, len(f.References))
	for _, r := range f.References {
		refs = append(refs, map[string]interface{}{
			"name":         r.Name,
			"relationship": r.Relationship,
			"phone":        r.Phone,
			"email":        r.Email,
		})
	}
	return map[string]interface{}{
		"firstName":  f.FirstName,
		"lastName":   f.LastName,
		"email":      f.Email,
		"phone":      f.Phone,
		"address":    f.Address,
		"city":       f.City,
		"state":      f.State,
		"zip":        f.Zip,
		"position":   f.Position,
		"experience": f.Experience,
		"references": refs,
	}
}
