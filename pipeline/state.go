package pipeline

import (
	"github.com/smallnest/leadgraph/graph"
	"github.com/smallnest/leadgraph/lead"
)

// State keys.
const (
	KeyLeadIDs            = "lead_ids"
	KeyLeads              = "leads"
	KeyRemaining          = "remaining"
	KeyCurrentLead        = "current_lead"
	KeyCompany            = "company"
	KeyReports            = "reports"
	KeyLeadScore          = "lead_score"
	KeyOutreachReportLink = "outreach_report_link"
	KeyReportsFolderLink  = "reports_folder_link"
	KeyEmailStatus        = "email_status"
	KeyProcessed          = "processed"
)

// Email statuses written to KeyEmailStatus.
const (
	EmailDrafted      = "drafted"
	EmailSent         = "sent"
	EmailFailed       = "failed"
	EmailNotGenerated = "not_generated"
)

// NewSchema returns the state schema of the outreach graph.
func NewSchema() *graph.Schema {
	return graph.MustSchema(
		graph.Field{Name: KeyLeadIDs, Reducer: graph.Replace},
		graph.Field{Name: KeyLeads, Reducer: graph.Replace, Default: func() any { return []lead.Record{} }},
		graph.Field{Name: KeyRemaining, Reducer: graph.Replace, Default: func() any { return 0 }},
		graph.Field{Name: KeyCurrentLead, Reducer: graph.Replace, Default: func() any { return lead.Record{} }},
		graph.Field{Name: KeyCompany, Reducer: graph.Replace, Default: func() any { return lead.Company{} }},
		graph.Field{Name: KeyReports, Reducer: graph.Append, Default: func() any { return []lead.Report{} }},
		graph.Field{Name: KeyLeadScore, Reducer: graph.Replace, Default: func() any { return "" }},
		graph.Field{Name: KeyOutreachReportLink, Reducer: graph.Replace, Default: func() any { return "" }},
		graph.Field{Name: KeyReportsFolderLink, Reducer: graph.Replace, Default: func() any { return "" }},
		graph.Field{Name: KeyEmailStatus, Reducer: graph.Replace, Default: func() any { return "" }},
		graph.Field{Name: KeyProcessed, Reducer: graph.Append, Default: func() any { return []string{} }},
	)
}

func currentLead(s graph.State) lead.Record { return graph.Get[lead.Record](s, KeyCurrentLead) }
func company(s graph.State) lead.Company     { return graph.Get[lead.Company](s, KeyCompany) }
func reports(s graph.State) []lead.Report    { return graph.Get[[]lead.Report](s, KeyReports) }

func report(s graph.State, title string) string {
	return lead.ReportContent(reports(s), title)
}

// folderName names the export folder of the current record.
func folderName(s graph.State) string {
	return currentLead(s).Name + "_" + company(s).Name
}
