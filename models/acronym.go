package models

// Acronym is one row of the abbreviation reference table, keyed in the
// lookup map by its uppercased abbreviation.
type Acronym struct {
	Abbreviation string `json:"abbreviation" bson:"abbreviation"`
	FullForm     string `json:"full_form" bson:"full_form"`
	Category     string `json:"category,omitempty" bson:"category,omitempty"`
}

// AcronymCorrection records a rewrite of a wrong abbreviation expansion
// in a generated answer.
type AcronymCorrection struct {
	Abbreviation string `json:"abbreviation"`
	Original     string `json:"original"`
	Corrected    string `json:"corrected"`
}
