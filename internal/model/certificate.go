package model

import "time"

// Certificate holds the data needed to fill a preferential-origin certificate
// for a qualified product. Generated only when the qualification passed.
type Certificate struct {
	ExporterName         string
	ExporterAddress      string
	ExporterTaxID        string
	ImporterName         string
	ImporterAddress      string
	ProductDescription   string
	Classification       string
	PreferenceCriterion  string
	CountryOfOrigin      string
	RegionalValueContent string
	ApplicableRule       string
	SupportingDocuments  []string
	Instructions         []string
	BlanketStart         time.Time
	BlanketEnd           time.Time
	GeneratedAt          time.Time
}
