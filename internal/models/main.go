// Package models defines the core data structures for vendors, sectors and dashboard figures.
package models

import "time"

// Flag values accepted for the VAT and professional-register attributes.
const (
	Yes = "Sì"
	No  = "No"
)

// Vendor is an external sales agent record.
type Vendor struct {
	// ID is the auto-incremented identifier assigned by the database.
	ID int64 `json:"id"`
	// FullName is the vendor's first and last name.
	FullName string `json:"nome_cognome"`
	// Email is the upsert key; it is unique across vendors.
	Email string `json:"email"`
	// Phone is the contact phone number.
	Phone string `json:"telefono"`
	// City is where the vendor operates.
	City string `json:"citta"`
	// SalesExperience is the number of years of sales experience.
	SalesExperience int `json:"esperienza_vendita"`
	// BirthYear is the vendor's year of birth.
	BirthYear int `json:"anno_nascita"`
	// Sector is the name of the sector of experience.
	Sector string `json:"settore_esperienza"`
	// VATRegistered is "Sì" or "No".
	VATRegistered string `json:"partita_iva"`
	// Enasarco is "Sì" or "No" for professional-register membership.
	Enasarco string `json:"agente_isenarco"`
	// CV is a filesystem path or URL of the résumé. Empty when absent.
	CV string `json:"cv,omitempty"`
	// Notes holds free-text notes. Empty when absent.
	Notes string `json:"note,omitempty"`
	// CreatedAt is set on insert and refreshed by upserts.
	CreatedAt time.Time `json:"data_creazione"`
}

// VendorFilter holds the optional search filters. Empty fields and the
// "all" sentinels impose no constraint.
type VendorFilter struct {
	Name          string `json:"nome"`
	City          string `json:"citta"`
	Sector        string `json:"settore"`
	VATRegistered string `json:"partita_iva"`
	Enasarco      string `json:"agente_isenarco"`
}

// Sector is a named industry tag.
type Sector struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`
}

// BulkResult reports the outcome of a bulk upsert.
type BulkResult struct {
	Inserted int `json:"inseriti"`
	Updated  int `json:"aggiornati"`
	Skipped  int `json:"ignorati"`
}

// Count is a labelled total used by the dashboard.
type Count struct {
	Label string `json:"label"`
	Total int64  `json:"totale"`
}

// Stats groups the dashboard figures.
type Stats struct {
	Total        int64   `json:"totale"`
	BySector     []Count `json:"per_settore"`
	ByExperience []Count `json:"per_esperienza"`
	TopCities    []Count `json:"top_citta"`
}
