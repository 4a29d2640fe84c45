package lead

// Report titles produced by the pipeline.
const (
	ReportGeneral         = "General Lead Research Report"
	ReportBlog            = "Blog Analysis Report"
	ReportYouTube         = "Youtube Analysis Report"
	ReportFacebook        = "Facebook Analysis Report"
	ReportTwitter         = "Twitter Analysis Report"
	ReportNews            = "News Analysis Report"
	ReportDigitalPresence = "Digital Presence Report"
	ReportGlobal          = "Global Lead Analysis Report"
	ReportOutreach        = "Outreach Report"
	ReportEmail           = "Personalized Email"
	ReportInterview       = "Interview Script"
)

// Report is a titled narrative document attached to the current record.
type Report struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Markdown bool   `json:"is_markdown"`
}

// FindReport returns the content of the last report with the given title.
func FindReport(reports []Report, title string) (string, bool) {
	for i := len(reports) - 1; i >= 0; i-- {
		if reports[i].Title == title {
			return reports[i].Content, true
		}
	}
	return "", false
}

// ReportContent is FindReport without the presence flag.
func ReportContent(reports []Report, title string) string {
	c, _ := FindReport(reports, title)
	return c
}
