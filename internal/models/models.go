package models

// APIResponse is the JSON envelope every successful payload travels in.
type APIResponse struct {
	Data interface{} `json:"data"`
}

// Document is an export document: a catch certificate, processing statement
// or storage document owned by a single exporter account.
type Document struct {
	ID        string `json:"id"`
	Number    string `json:"document_number"`
	Type      string `json:"type"`
	OwnerID   int    `json:"owner_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Document types.
const (
	DocCatchCertificate    = "catchCertificate"
	DocProcessingStatement = "processingStatement"
	DocStorageDocument     = "storageDocument"
)

// Document statuses.
const (
	StatusDraft    = "draft"
	StatusLocked   = "locked"
	StatusComplete = "complete"
	StatusVoid     = "void"
)

// Product is a species/commodity entry on a document. Landings attach to a
// product, never directly to the document.
type Product struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	Species       string `json:"species"`
	Description   string `json:"description"`
	CommodityCode string `json:"commodity_code"`
	State         string `json:"state"`
	Presentation  string `json:"presentation"`
	Status        string `json:"status,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// Vessel is a registry snapshot copied onto a landing at commit time.
type Vessel struct {
	PLN              string `json:"pln"`
	Name             string `json:"vessel_name"`
	HomePort         string `json:"home_port"`
	Flag             string `json:"flag"`
	LicenceNumber    string `json:"licence_number"`
	LicenceValidFrom string `json:"licence_valid_from"`
	LicenceValidTo   string `json:"licence_valid_to"`
}

// Landing is a single catch event attached to a product. EEZs is an ordered
// list; index matters for the add/remove zone actions.
type Landing struct {
	ID           string   `json:"id"`
	DocumentID   string   `json:"document_id"`
	ProductID    string   `json:"product_id"`
	StartDate    string   `json:"start_date,omitempty"`
	DateLanded   string   `json:"date_landed"`
	FaoArea      string   `json:"fao_area"`
	HighSeasArea bool     `json:"high_seas_area"`
	EEZs         []string `json:"exclusive_economic_zones"`
	RFMO         string   `json:"rfmo,omitempty"`
	GearCategory string   `json:"gear_category"`
	GearType     string   `json:"gear_type"`
	GearCode     string   `json:"gear_code"`
	VesselPLN    string   `json:"vessel_pln"`
	VesselName   string   `json:"vessel_name"`
	ExportWeight float64  `json:"export_weight"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// RowError is one field-level failure on an uploaded row. ID follows the
// pattern row-<line>-<productId>-<index>-upload-file-error and is stable
// across repeated renders of the same validation result.
type RowError struct {
	ID      string `json:"id"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// RowOutcome is the verdict for one uploaded row. A row with zero field
// errors is accepted; any field error rejects the whole row but never blocks
// sibling rows.
type RowOutcome struct {
	Line      int        `json:"line"`
	ProductID string     `json:"product_id"`
	Columns   []string   `json:"columns"`
	Errors    []RowError `json:"errors"`
	Accepted  bool       `json:"accepted"`
	Landing   *Landing   `json:"landing,omitempty"`
}

// UploadSummary is the complete result of validating one uploaded file.
// FileError is set only for the terminal file-level conditions (too large,
// empty, too many rows), in which case no rows were validated.
type UploadSummary struct {
	BatchID   string       `json:"batch_id"`
	FileName  string       `json:"file_name"`
	FileError string       `json:"file_error,omitempty"`
	Total     int          `json:"total"`
	Accepted  int          `json:"accepted"`
	Rejected  int          `json:"rejected"`
	Rows      []RowOutcome `json:"rows"`
	CreatedAt string       `json:"created_at,omitempty"`
}
