package models

import (
	"time"
)

// EmailMetadata holds the header-derived metadata of one email artifact
type EmailMetadata struct {
	Timestamp       string   `json:"timestamp"`
	Subject         string   `json:"subject"`
	From            string   `json:"from"`
	To              string   `json:"to"`
	Date            string   `json:"date"`
	MessageID       string   `json:"message_id"`
	ReturnPath      string   `json:"return_path"`
	Received        []string `json:"received"`
	XMailer         string   `json:"x_mailer"`
	XOriginatingIP  string   `json:"x_originating_ip"`
	ListUnsubscribe string   `json:"list_unsubscribe,omitempty"`
	SenderDomain    string   `json:"sender_domain,omitempty"`
}

// EmailContent holds the inline body parts of one email artifact.
// Attachment parts are excluded; same-type parts are concatenated in
// document order.
type EmailContent struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// AttemptErrorKind classifies a failed unsubscribe attempt
type AttemptErrorKind string

const (
	AttemptErrorTimeout      AttemptErrorKind = "timeout"
	AttemptErrorDNS          AttemptErrorKind = "dns"
	AttemptErrorTLS          AttemptErrorKind = "tls"
	AttemptErrorMalformedURL AttemptErrorKind = "malformed_url"
	AttemptErrorConnection   AttemptErrorKind = "connection"
)

// UnsubscribeAttempt records the outcome of one opt-out request
type UnsubscribeAttempt struct {
	Link        string           `json:"link"`
	StatusCode  int              `json:"status_code,omitempty"`
	Success     bool             `json:"success"`
	ResponseURL string           `json:"response_url,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   AttemptErrorKind `json:"error_kind,omitempty"`
	Timestamp   string           `json:"timestamp"`
}

// WhoisData holds domain registration intelligence for a sender domain.
// A failed lookup produces a record with only Domain, Error and Timestamp set.
type WhoisData struct {
	Domain         string   `json:"domain"`
	Registrar      string   `json:"registrar,omitempty"`
	CreationDate   string   `json:"creation_date,omitempty"`
	ExpirationDate string   `json:"expiration_date,omitempty"`
	NameServers    []string `json:"name_servers"`
	Emails         []string `json:"emails"`
	Org            string   `json:"org,omitempty"`
	Country        string   `json:"country,omitempty"`
	Error          string   `json:"error,omitempty"`
	Timestamp      string   `json:"timestamp"`
}

// AuthorityReport is a staged report descriptor for a reporting authority
type AuthorityReport struct {
	Authority string `json:"authority"`
	Method    string `json:"method"`
	URL       string `json:"url,omitempty"`
	Email     string `json:"email,omitempty"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// CompanyReport is a staged report descriptor for an impersonated company
type CompanyReport struct {
	Company   string `json:"company"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ProcessingResult is the full structured outcome of one artifact run.
// Once persisted it is an append-only historical record.
type ProcessingResult struct {
	CorrelationID       string               `json:"correlation_id"`
	FilePath            string               `json:"file_path"`
	Metadata            *EmailMetadata       `json:"metadata"`
	UnsubscribeLinks    []string             `json:"unsubscribe_links"`
	UnsubscribeResults  []UnsubscribeAttempt `json:"unsubscribe_results"`
	WhoisData           *WhoisData           `json:"whois_data"`
	IdentifiedCompanies []string             `json:"identified_companies"`
	AuthorityReports    []AuthorityReport    `json:"authority_reports"`
	CompanyReports      []CompanyReport      `json:"company_reports"`
	ProcessingTimestamp string               `json:"processing_timestamp"`
}

// MetadataRecord is the persisted email_metadata_<ts>.json document
type MetadataRecord struct {
	CorrelationID       string         `json:"correlation_id"`
	FilePath            string         `json:"file_path"`
	Metadata            *EmailMetadata `json:"metadata"`
	WhoisData           *WhoisData     `json:"whois_data"`
	ProcessingTimestamp string         `json:"processing_timestamp"`
}

// ActionsRecord is the persisted actions_taken_<ts>.json document
type ActionsRecord struct {
	CorrelationID       string               `json:"correlation_id"`
	FilePath            string               `json:"file_path"`
	UnsubscribeAttempts []UnsubscribeAttempt `json:"unsubscribe_attempts"`
	AuthorityReports    []AuthorityReport    `json:"authority_reports"`
	CompanyReports      []CompanyReport      `json:"company_reports"`
	ProcessingTimestamp string               `json:"processing_timestamp"`
	DispatchedAt        string               `json:"dispatched_at,omitempty"`
}

// RunSummary aggregates all persisted records of the store
type RunSummary struct {
	TotalEmailsProcessed     int      `json:"total_emails_processed"`
	ProcessingDate           string   `json:"processing_date"`
	DomainsEncountered       []string `json:"domains_encountered"`
	CompaniesIdentified      []string `json:"companies_identified"`
	TotalUnsubscribeAttempts int      `json:"total_unsubscribe_attempts"`
	SuccessfulUnsubscribes   int      `json:"successful_unsubscribes"`
}

// Now returns the ISO-8601 timestamp used in all persisted records
func Now() string {
	return time.Now().Format(time.RFC3339)
}
