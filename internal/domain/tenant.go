package domain

import (
	"time"
)

// Contact is a CRUD-plane entity: a phone-addressable lead belonging to a
// workspace. Opt-out is monotonic once true.
type Contact struct {
	ID          string  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Workspace   string  `json:"workspace" gorm:"type:varchar(255);not null;index:idx_contacts_workspace_phone,unique"`
	Phone       string  `json:"phone" gorm:"type:varchar(32);not null;index:idx_contacts_workspace_phone,unique"`
	Name        string  `json:"name" gorm:"type:varchar(255)"`
	Email       *string `json:"email" gorm:"type:varchar(255)"`
	CompanyName *string `json:"company_name" gorm:"type:varchar(255)"`
	OptedOut    bool    `json:"opted_out" gorm:"default:false"`

	FirstContactedAt *time.Time `json:"first_contacted_at"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Contact.
func (Contact) TableName() string {
	return "contacts"
}

// OptOut marks the contact opted out. Once true it must never be cleared
// by a send path.
func (c *Contact) OptOut() {
	c.OptedOut = true
}

// CreateContactRequest is the input to enroll a new contact.
type CreateContactRequest struct {
	Workspace   string  `json:"workspace" validate:"required"`
	Phone       string  `json:"phone" validate:"required"`
	Name        string  `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
}

// TemplateFields returns the case-insensitive placeholder substitution map
// for this contact, used by the campaign dispatcher's template renderer:
// {first_name}, {last_name}, {full_name}, {company_name}, {email}.
func (c *Contact) TemplateFields() map[string]string {
	first, last := splitName(c.Name)
	email := ""
	if c.Email != nil {
		email = *c.Email
	}
	company := ""
	if c.CompanyName != nil {
		company = *c.CompanyName
	}
	return map[string]string{
		"first_name":   first,
		"last_name":    last,
		"full_name":    c.Name,
		"company_name": company,
		"email":        email,
	}
}

func splitName(full string) (first, last string) {
	for i := 0; i < len(full); i++ {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}
