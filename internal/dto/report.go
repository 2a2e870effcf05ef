package dto

// ReportFormat enumerates supported course report encodings.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportFile is a rendered course progress report.
type ReportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
