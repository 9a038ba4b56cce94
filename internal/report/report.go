package report

import "github.com/ehr/healthreport/internal/layout"

// GenerateMainReport builds the main report with default options.
func GenerateMainReport(data *Data) (*layout.Document, error) {
	return NewBuilder(DefaultOptions()).BuildMainReport(data)
}

// GenerateSingleRecordDocument builds a one-record document with default
// options.
func GenerateSingleRecordDocument(record MedicalRecord, patientName string) (*layout.Document, error) {
	return NewRecordBuilder(DefaultOptions()).BuildSingleRecord(record, patientName)
}

// GenerateCombinedRecordsDocument builds a combined records document with
// default options.
func GenerateCombinedRecordsDocument(records []MedicalRecord, patientName string) (*layout.Document, error) {
	return NewRecordBuilder(DefaultOptions()).BuildCombinedRecords(records, patientName)
}
