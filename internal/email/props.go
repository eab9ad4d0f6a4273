package email

import "github.io/infrasutra/emailsync/internal/notion"

// DBProps maps a parsed email onto the property rows of the emails
// database. The archive link lands in "Original Message" once the raw
// message has been uploaded; Hash backs change detection between runs.
func DBProps(e Email) []notion.PropValue {
	return []notion.PropValue{
		{Name: "From", Type: notion.TypeRichText, Value: e.Headers["from"]},
		{Name: "To", Type: notion.TypeRichText, Value: e.Headers["to"]},
		{Name: "Date", Type: notion.TypeDate, Value: e.Headers["date"]},
		{Name: "Name", Type: notion.TypeTitle, Value: e.Headers["subject"]},
		{Name: "Original Message", Type: notion.TypeURL, Value: e.ArchiveURL},
		{Name: "Message ID", Type: notion.TypeRichText, Value: e.ID},
		{Name: "Hash", Type: notion.TypeRichText, Value: e.Hash},
	}
}
